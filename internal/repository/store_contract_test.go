package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"barsync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the DocumentStore contract against one backend.
func runStoreContract(t *testing.T, newStore func(t *testing.T) DocumentStore) {
	t.Run("Create assigns id and initial revision", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		doc, err := store.Create(ctx, cocktailDoc("", `{"title":"Mojito"}`))
		require.NoError(t, err)

		assert.NotEmpty(t, doc.ID)
		assert.Equal(t, 1, Generation(doc.Rev))
		assert.Equal(t, model.TypeCocktail, doc.Type)

		got, err := store.Get(ctx, model.CollectionCocktails, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, doc.Rev, got.Rev)
		assert.JSONEq(t, `{"title":"Mojito"}`, string(got.Body))
	})

	t.Run("Create with existing id conflicts and keeps original", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		first, err := store.Create(ctx, orderDoc("order1", `{"status":"pending"}`))
		require.NoError(t, err)

		_, err = store.Create(ctx, orderDoc("order1", `{"status":"served"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict))

		got, err := store.Get(ctx, model.CollectionOrders, "order1")
		require.NoError(t, err)
		assert.Equal(t, first.Rev, got.Rev)
		assert.JSONEq(t, `{"status":"pending"}`, string(got.Body))
	})

	t.Run("Same id in different collections is independent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Create(ctx, cocktailDoc("shared", `{}`))
		require.NoError(t, err)
		_, err = store.Create(ctx, orderDoc("shared", `{}`))
		require.NoError(t, err)
	})

	t.Run("Get missing document", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Get(context.Background(), model.CollectionCocktails, "nope")
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("Update with stale revision conflicts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		doc, err := store.Create(ctx, cocktailDoc("", `{"description":"classic"}`))
		require.NoError(t, err)
		r1 := doc.Rev

		updated, err := store.Update(ctx, model.CollectionCocktails, doc.ID, r1, json.RawMessage(`{"description":"minty"}`))
		require.NoError(t, err)
		assert.NotEqual(t, r1, updated.Rev)
		assert.Equal(t, 2, Generation(updated.Rev))
		assert.Equal(t, model.TypeCocktail, updated.Type)

		_, err = store.Update(ctx, model.CollectionCocktails, doc.ID, r1, json.RawMessage(`{"description":"sour"}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict))

		got, err := store.Get(ctx, model.CollectionCocktails, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.Rev, got.Rev)
		assert.JSONEq(t, `{"description":"minty"}`, string(got.Body))
	})

	t.Run("Update missing document", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Update(context.Background(), model.CollectionCocktails, "nope", "1-abc", json.RawMessage(`{}`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("Delete checks revision", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		doc, err := store.Create(ctx, cocktailDoc("", `{}`))
		require.NoError(t, err)

		err = store.Delete(ctx, model.CollectionCocktails, doc.ID, "1-stale")
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict))

		require.NoError(t, store.Delete(ctx, model.CollectionCocktails, doc.ID, doc.Rev))

		_, err = store.Get(ctx, model.CollectionCocktails, doc.ID)
		assert.True(t, errors.Is(err, model.ErrNotFound))

		err = store.Delete(ctx, model.CollectionCocktails, doc.ID, doc.Rev)
		assert.True(t, errors.Is(err, model.ErrNotFound))

		_, err = store.Update(ctx, model.CollectionCocktails, doc.ID, doc.Rev, json.RawMessage(`{}`))
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("List filters by collection and predicate and is restartable", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			_, err := store.Create(ctx, cocktailDoc("", `{}`))
			require.NoError(t, err)
		}
		_, err := store.Create(ctx, model.Document{Collection: model.CollectionCocktails, Type: "ingredient", Body: json.RawMessage(`{}`)})
		require.NoError(t, err)
		_, err = store.Create(ctx, orderDoc("", `{}`))
		require.NoError(t, err)

		seq := store.List(ctx, model.CollectionCocktails, OfType(model.TypeCocktail))

		first, err := Collect(seq)
		require.NoError(t, err)
		assert.Len(t, first, 3)
		for _, doc := range first {
			assert.Equal(t, model.TypeCocktail, doc.Type)
			assert.Equal(t, model.CollectionCocktails, doc.Collection)
		}

		second, err := Collect(seq)
		require.NoError(t, err)
		assert.Len(t, second, 3)

		all, err := Collect(store.List(ctx, model.CollectionCocktails, nil))
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("List stops when the consumer stops", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			_, err := store.Create(ctx, orderDoc("", `{}`))
			require.NoError(t, err)
		}

		count := 0
		for _, err := range store.List(ctx, model.CollectionOrders, All) {
			require.NoError(t, err)
			count++
			if count == 2 {
				break
			}
		}
		assert.Equal(t, 2, count)
	})

	t.Run("Concurrent updates with the same revision admit exactly one", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		doc, err := store.Create(ctx, orderDoc("", `{"n":0}`))
		require.NoError(t, err)

		const writers = 16
		var wins, conflicts atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.Update(ctx, model.CollectionOrders, doc.ID, doc.Rev, json.RawMessage(`{"n":1}`))
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, model.ErrConflict):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(writers-1), conflicts.Load())

		got, err := store.Get(ctx, model.CollectionOrders, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, Generation(got.Rev))
	})

	t.Run("Concurrent creates with the same id admit exactly one", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const writers = 16
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Create(ctx, orderDoc("order42", `{}`)); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
	})
}

func cocktailDoc(id, body string) model.Document {
	return model.Document{
		Collection: model.CollectionCocktails,
		ID:         id,
		Type:       model.TypeCocktail,
		Body:       json.RawMessage(body),
	}
}

func orderDoc(id, body string) model.Document {
	return model.Document{
		Collection: model.CollectionOrders,
		ID:         id,
		Type:       model.TypeOrder,
		Body:       json.RawMessage(body),
	}
}
