package repository

import (
	"context"
	"encoding/json"
	"iter"
	"sync"
	"time"

	"barsync/internal/model"

	"github.com/rs/zerolog"
)

type docKey struct {
	collection model.Collection
	id         string
}

type shard struct {
	mu   sync.RWMutex
	docs map[docKey]model.Document
}

// MemoryStore is an in-process DocumentStore. Documents are spread across
// lock-striped shards so unrelated documents never share a lock.
type MemoryStore struct {
	shards [stripeCount]*shard
	logger zerolog.Logger
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	s := &MemoryStore{
		logger: logger.With().Str("repository", "memory").Logger(),
	}
	for i := range s.shards {
		s.shards[i] = &shard{docs: make(map[docKey]model.Document)}
	}
	return s
}

func (s *MemoryStore) shardFor(collection model.Collection, id string) *shard {
	return s.shards[stripeIndex(collection, id)]
}

// Create stores a new document.
func (s *MemoryStore) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.ID == "" {
		doc.ID = NewID()
	}
	key := docKey{doc.Collection, doc.ID}
	sh := s.shardFor(doc.Collection, doc.ID)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.docs[key]; exists {
		s.logger.Debug().
			Str("collection", string(doc.Collection)).
			Str("id", doc.ID).
			Msg("create rejected: id already exists")
		return model.Document{}, conflict(doc.Collection, doc.ID)
	}

	now := time.Now().UTC()
	doc.Rev = nextRevision("")
	doc.Body = cloneBody(doc.Body)
	doc.CreatedAt = now
	doc.UpdatedAt = now
	sh.docs[key] = doc

	return copyDocument(doc), nil
}

// Get returns the current version of a document.
func (s *MemoryStore) Get(ctx context.Context, collection model.Collection, id string) (model.Document, error) {
	sh := s.shardFor(collection, id)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	doc, ok := sh.docs[docKey{collection, id}]
	if !ok {
		return model.Document{}, notFound(collection, id)
	}
	return copyDocument(doc), nil
}

// Update replaces the body of a document iff expectedRev is current.
func (s *MemoryStore) Update(ctx context.Context, collection model.Collection, id, expectedRev string, body json.RawMessage) (model.Document, error) {
	key := docKey{collection, id}
	sh := s.shardFor(collection, id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	doc, ok := sh.docs[key]
	if !ok {
		return model.Document{}, notFound(collection, id)
	}
	if doc.Rev != expectedRev {
		s.logger.Debug().
			Str("collection", string(collection)).
			Str("id", id).
			Str("expected_rev", expectedRev).
			Str("current_rev", doc.Rev).
			Msg("update rejected: stale revision")
		return model.Document{}, conflict(collection, id)
	}

	doc.Rev = nextRevision(doc.Rev)
	doc.Body = cloneBody(body)
	doc.UpdatedAt = time.Now().UTC()
	sh.docs[key] = doc

	return copyDocument(doc), nil
}

// Delete removes a document iff expectedRev is current.
func (s *MemoryStore) Delete(ctx context.Context, collection model.Collection, id, expectedRev string) error {
	key := docKey{collection, id}
	sh := s.shardFor(collection, id)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	doc, ok := sh.docs[key]
	if !ok {
		return notFound(collection, id)
	}
	if doc.Rev != expectedRev {
		s.logger.Debug().
			Str("collection", string(collection)).
			Str("id", id).
			Str("expected_rev", expectedRev).
			Str("current_rev", doc.Rev).
			Msg("delete rejected: stale revision")
		return conflict(collection, id)
	}

	delete(sh.docs, key)
	return nil
}

// List yields matching documents shard by shard. Each shard is copied under
// its read lock, so yield never runs while a lock is held.
func (s *MemoryStore) List(ctx context.Context, collection model.Collection, pred Predicate) iter.Seq2[model.Document, error] {
	if pred == nil {
		pred = All
	}
	return func(yield func(model.Document, error) bool) {
		for _, sh := range s.shards {
			if err := ctx.Err(); err != nil {
				yield(model.Document{}, err)
				return
			}

			sh.mu.RLock()
			var matched []model.Document
			for key, doc := range sh.docs {
				if key.collection == collection && pred(doc) {
					matched = append(matched, copyDocument(doc))
				}
			}
			sh.mu.RUnlock()

			for _, doc := range matched {
				if !yield(doc, nil) {
					return
				}
			}
		}
	}
}

func copyDocument(doc model.Document) model.Document {
	doc.Body = cloneBody(doc.Body)
	return doc
}

var _ DocumentStore = (*MemoryStore)(nil)
