package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"time"

	"barsync/internal/model"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog"
)

// PebbleStore is a DocumentStore on an embedded Pebble database. Pebble has
// no compare-and-swap, so each read-check-write runs under the document's
// lock stripe.
type PebbleStore struct {
	db     *pebble.DB
	locks  lockStripes
	logger zerolog.Logger
}

// OpenPebbleStore opens (or creates) a Pebble database in dir.
func OpenPebbleStore(dir string, logger zerolog.Logger) (*PebbleStore, error) {
	logger = logger.With().Str("repository", "pebble").Logger()

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("failed to open pebble database")
		return nil, fmt.Errorf("failed to open pebble database: %w", err)
	}

	logger.Info().Str("dir", dir).Msg("pebble document store opened")

	return &PebbleStore{
		db:     db,
		logger: logger,
	}, nil
}

// Close flushes and closes the database.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Create stores a new document.
func (s *PebbleStore) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.ID == "" {
		doc.ID = NewID()
	}
	unlock := s.locks.lock(doc.Collection, doc.ID)
	defer unlock()

	_, err := s.read(doc.Collection, doc.ID)
	switch {
	case err == nil:
		return model.Document{}, conflict(doc.Collection, doc.ID)
	case !errors.Is(err, model.ErrNotFound):
		return model.Document{}, err
	}

	now := time.Now().UTC()
	doc.Rev = nextRevision("")
	doc.CreatedAt = now
	doc.UpdatedAt = now

	if err := s.write(doc); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// Get returns the current version of a document.
func (s *PebbleStore) Get(ctx context.Context, collection model.Collection, id string) (model.Document, error) {
	return s.read(collection, id)
}

// Update replaces the body of a document iff expectedRev is current.
func (s *PebbleStore) Update(ctx context.Context, collection model.Collection, id, expectedRev string, body json.RawMessage) (model.Document, error) {
	unlock := s.locks.lock(collection, id)
	defer unlock()

	doc, err := s.read(collection, id)
	if err != nil {
		return model.Document{}, err
	}
	if doc.Rev != expectedRev {
		return model.Document{}, conflict(collection, id)
	}

	doc.Rev = nextRevision(doc.Rev)
	doc.Body = cloneBody(body)
	doc.UpdatedAt = time.Now().UTC()

	if err := s.write(doc); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// Delete removes a document iff expectedRev is current.
func (s *PebbleStore) Delete(ctx context.Context, collection model.Collection, id, expectedRev string) error {
	unlock := s.locks.lock(collection, id)
	defer unlock()

	doc, err := s.read(collection, id)
	if err != nil {
		return err
	}
	if doc.Rev != expectedRev {
		return conflict(collection, id)
	}

	if err := s.db.Delete(documentKey(collection, id), pebble.Sync); err != nil {
		s.logger.Error().Err(err).Str("collection", string(collection)).Str("id", id).Msg("failed to delete document")
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// List iterates the collection's key range on a fresh iterator per call.
func (s *PebbleStore) List(ctx context.Context, collection model.Collection, pred Predicate) iter.Seq2[model.Document, error] {
	if pred == nil {
		pred = All
	}
	return func(yield func(model.Document, error) bool) {
		lower := collectionPrefix(collection)
		it, err := s.db.NewIter(&pebble.IterOptions{
			LowerBound: lower,
			UpperBound: prefixUpperBound(lower),
		})
		if err != nil {
			yield(model.Document{}, fmt.Errorf("failed to open iterator: %w", err))
			return
		}
		defer it.Close()

		for it.First(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				yield(model.Document{}, err)
				return
			}

			var doc model.Document
			if err := json.Unmarshal(it.Value(), &doc); err != nil {
				yield(model.Document{}, fmt.Errorf("failed to decode document %s: %w", it.Key(), err))
				return
			}
			if !pred(doc) {
				continue
			}
			if !yield(doc, nil) {
				return
			}
		}

		if err := it.Error(); err != nil {
			yield(model.Document{}, fmt.Errorf("error iterating documents: %w", err))
		}
	}
}

func (s *PebbleStore) read(collection model.Collection, id string) (model.Document, error) {
	val, closer, err := s.db.Get(documentKey(collection, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return model.Document{}, notFound(collection, id)
		}
		s.logger.Error().Err(err).Str("collection", string(collection)).Str("id", id).Msg("failed to read document")
		return model.Document{}, fmt.Errorf("failed to read document: %w", err)
	}
	defer closer.Close()

	var doc model.Document
	if err := json.Unmarshal(val, &doc); err != nil {
		return model.Document{}, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func (s *PebbleStore) write(doc model.Document) error {
	val, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := s.db.Set(documentKey(doc.Collection, doc.ID), val, pebble.Sync); err != nil {
		s.logger.Error().Err(err).Str("collection", string(doc.Collection)).Str("id", doc.ID).Msg("failed to write document")
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func collectionPrefix(collection model.Collection) []byte {
	return []byte(string(collection) + "/")
}

func documentKey(collection model.Collection, id string) []byte {
	return append(collectionPrefix(collection), id...)
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

var _ DocumentStore = (*PebbleStore)(nil)
