package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"barsync/internal/model"
	"barsync/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ev model.ChangeEvent) {
	m.Called(ev)
}

// expectEvent registers a single expected publish of typ for id.
func (m *MockPublisher) expectEvent(typ model.EventType, id string) *mock.Call {
	return m.On("Publish", mock.MatchedBy(func(ev model.ChangeEvent) bool {
		return ev.Type == typ && (id == "" || ev.ID == id) && !ev.OccurredAt.IsZero()
	})).Once()
}

func newTestController(t *testing.T) (SyncController, *repository.MemoryStore, *MockPublisher) {
	t.Helper()
	store := repository.NewMemoryStore(zerolog.Nop())
	pub := new(MockPublisher)
	return NewSyncController(store, pub, DefaultMaxAttempts, zerolog.Nop()), store, pub
}

// racingStore runs beforeUpdate ahead of the first n Update calls,
// simulating another writer landing between read and write.
type racingStore struct {
	repository.DocumentStore

	mu           sync.Mutex
	n            int
	beforeUpdate func()
	updates      int
}

func (r *racingStore) Update(ctx context.Context, collection model.Collection, id, expectedRev string, body json.RawMessage) (model.Document, error) {
	r.mu.Lock()
	r.updates++
	race := r.n > 0
	if race {
		r.n--
	}
	r.mu.Unlock()

	if race {
		r.beforeUpdate()
	}
	return r.DocumentStore.Update(ctx, collection, id, expectedRev, body)
}

// collidingStore reports the first n creates as duplicate IDs.
type collidingStore struct {
	repository.DocumentStore

	n   int
	ids []string
}

func (c *collidingStore) Create(ctx context.Context, doc model.Document) (model.Document, error) {
	c.ids = append(c.ids, doc.ID)
	if c.n > 0 {
		c.n--
		return model.Document{}, fmt.Errorf("%s/%s: %w", doc.Collection, doc.ID, model.ErrConflict)
	}
	return c.DocumentStore.Create(ctx, doc)
}

func TestNewSyncController_DefaultAttempts(t *testing.T) {
	c := NewSyncController(repository.NewMemoryStore(zerolog.Nop()), new(MockPublisher), 0, zerolog.Nop())
	require.Equal(t, DefaultMaxAttempts, c.(*syncController).maxAttempts)
}
