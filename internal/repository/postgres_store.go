package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"barsync/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// postgresStore implements DocumentStore on the documents table. The
// revision check is part of the UPDATE/DELETE statement itself, so the check
// and the write it guards are one atomic unit.
type postgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a new PostgreSQL-backed document store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) DocumentStore {
	return &postgresStore{
		pool:   pool,
		logger: logger.With().Str("repository", "postgres").Logger(),
	}
}

// Create inserts a new document.
func (r *postgresStore) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.ID == "" {
		doc.ID = NewID()
	}
	now := time.Now().UTC()
	doc.Rev = nextRevision("")
	doc.CreatedAt = now
	doc.UpdatedAt = now

	query := `
		INSERT INTO documents (collection, id, rev, type, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (collection, id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		string(doc.Collection), doc.ID, doc.Rev, doc.Type, []byte(doc.Body), doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("collection", string(doc.Collection)).
			Str("id", doc.ID).
			Msg("failed to create document")
		return model.Document{}, fmt.Errorf("failed to create document: %w", err)
	}

	if tag.RowsAffected() == 0 {
		r.logger.Debug().
			Str("collection", string(doc.Collection)).
			Str("id", doc.ID).
			Msg("create rejected: id already exists")
		return model.Document{}, conflict(doc.Collection, doc.ID)
	}

	return doc, nil
}

// Get retrieves a document by collection and ID.
func (r *postgresStore) Get(ctx context.Context, collection model.Collection, id string) (model.Document, error) {
	query := `
		SELECT rev, type, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	doc := model.Document{Collection: collection, ID: id}
	var body []byte
	err := r.pool.QueryRow(ctx, query, string(collection), id).Scan(
		&doc.Rev,
		&doc.Type,
		&body,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, notFound(collection, id)
		}
		r.logger.Error().Err(err).Str("collection", string(collection)).Str("id", id).Msg("failed to query document")
		return model.Document{}, fmt.Errorf("failed to query document: %w", err)
	}
	doc.Body = body

	return doc, nil
}

// Update replaces the body of a document iff expectedRev is current.
func (r *postgresStore) Update(ctx context.Context, collection model.Collection, id, expectedRev string, body json.RawMessage) (model.Document, error) {
	query := `
		UPDATE documents
		SET rev = $4, body = $5, updated_at = $6
		WHERE collection = $1 AND id = $2 AND rev = $3
		RETURNING type, created_at
	`

	doc := model.Document{
		Collection: collection,
		ID:         id,
		Rev:        nextRevision(expectedRev),
		Body:       cloneBody(body),
		UpdatedAt:  time.Now().UTC(),
	}

	err := r.pool.QueryRow(ctx, query,
		string(collection), id, expectedRev, doc.Rev, []byte(body), doc.UpdatedAt,
	).Scan(&doc.Type, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Document{}, r.missedWrite(ctx, collection, id, expectedRev)
		}
		r.logger.Error().Err(err).Str("collection", string(collection)).Str("id", id).Msg("failed to update document")
		return model.Document{}, fmt.Errorf("failed to update document: %w", err)
	}

	return doc, nil
}

// Delete removes a document iff expectedRev is current.
func (r *postgresStore) Delete(ctx context.Context, collection model.Collection, id, expectedRev string) error {
	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2 AND rev = $3
	`

	tag, err := r.pool.Exec(ctx, query, string(collection), id, expectedRev)
	if err != nil {
		r.logger.Error().Err(err).Str("collection", string(collection)).Str("id", id).Msg("failed to delete document")
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return r.missedWrite(ctx, collection, id, expectedRev)
	}

	return nil
}

// missedWrite explains why a guarded write touched no row: the document is
// either gone or carries a different revision.
func (r *postgresStore) missedWrite(ctx context.Context, collection model.Collection, id, expectedRev string) error {
	var current string
	err := r.pool.QueryRow(ctx,
		`SELECT rev FROM documents WHERE collection = $1 AND id = $2`,
		string(collection), id,
	).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(collection, id)
		}
		return fmt.Errorf("failed to query document revision: %w", err)
	}

	r.logger.Debug().
		Str("collection", string(collection)).
		Str("id", id).
		Str("expected_rev", expectedRev).
		Str("current_rev", current).
		Msg("write rejected: stale revision")
	return conflict(collection, id)
}

// List streams the collection's rows, filtering with pred.
func (r *postgresStore) List(ctx context.Context, collection model.Collection, pred Predicate) iter.Seq2[model.Document, error] {
	if pred == nil {
		pred = All
	}
	return func(yield func(model.Document, error) bool) {
		query := `
			SELECT id, rev, type, body, created_at, updated_at
			FROM documents
			WHERE collection = $1
			ORDER BY created_at, id
		`

		rows, err := r.pool.Query(ctx, query, string(collection))
		if err != nil {
			r.logger.Error().Err(err).Str("collection", string(collection)).Msg("failed to query documents")
			yield(model.Document{}, fmt.Errorf("failed to query documents: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			doc := model.Document{Collection: collection}
			var body []byte
			if err := rows.Scan(&doc.ID, &doc.Rev, &doc.Type, &body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
				r.logger.Error().Err(err).Msg("failed to scan document row")
				yield(model.Document{}, fmt.Errorf("failed to scan document: %w", err))
				return
			}
			doc.Body = body

			if !pred(doc) {
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			r.logger.Error().Err(err).Msg("error iterating document rows")
			yield(model.Document{}, fmt.Errorf("error iterating documents: %w", err))
		}
	}
}
