package repository

import (
	"context"
	"testing"

	"barsync/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPebbleStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) DocumentStore {
		store, err := OpenPebbleStore(t.TempDir(), zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestPebbleStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenPebbleStore(dir, zerolog.Nop())
	require.NoError(t, err)

	doc, err := store.Create(ctx, cocktailDoc("", `{"title":"Daiquiri"}`))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := OpenPebbleStore(dir, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, model.CollectionCocktails, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Rev, got.Rev)
	assert.JSONEq(t, `{"title":"Daiquiri"}`, string(got.Body))
}

func TestPrefixUpperBound(t *testing.T) {
	assert.Equal(t, []byte("orders0"), prefixUpperBound([]byte("orders/")))
	assert.Equal(t, []byte("b"), prefixUpperBound([]byte{'a', 0xff}))
	assert.Nil(t, prefixUpperBound([]byte{0xff, 0xff}))
}
