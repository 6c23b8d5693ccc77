package repository

import (
	"context"
	"encoding/json"
	"iter"

	"barsync/internal/model"
)

// Predicate selects documents during List.
type Predicate func(doc model.Document) bool

// All matches every document.
func All(model.Document) bool { return true }

// OfType matches documents carrying the given type discriminant.
func OfType(typ string) Predicate {
	return func(doc model.Document) bool {
		return doc.Type == typ
	}
}

// DocumentStore defines versioned storage for document collections with
// per-document optimistic concurrency. Operations on the same document are
// serialized; operations on different documents may run in parallel.
type DocumentStore interface {
	// Create stores a new document. An empty ID is replaced with a generated
	// one. The store assigns the initial revision. Returns model.ErrConflict
	// if the ID already exists in the collection.
	Create(ctx context.Context, doc model.Document) (model.Document, error)

	// Get returns the current version of a document.
	// Returns model.ErrNotFound if it does not exist.
	Get(ctx context.Context, collection model.Collection, id string) (model.Document, error)

	// Update replaces the body of a document iff expectedRev is its current
	// revision, and returns the document with its new revision.
	// Returns model.ErrConflict on a revision mismatch and model.ErrNotFound
	// if the document does not exist.
	Update(ctx context.Context, collection model.Collection, id, expectedRev string, body json.RawMessage) (model.Document, error)

	// Delete removes a document iff expectedRev is its current revision.
	// Same error semantics as Update.
	Delete(ctx context.Context, collection model.Collection, id, expectedRev string) error

	// List yields every document of the collection matching pred. The
	// sequence is finite and may be ranged over more than once; order is
	// unspecified.
	List(ctx context.Context, collection model.Collection, pred Predicate) iter.Seq2[model.Document, error]
}

// Collect drains a List sequence into a slice.
func Collect(seq iter.Seq2[model.Document, error]) ([]model.Document, error) {
	docs := []model.Document{}
	for doc, err := range seq {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
