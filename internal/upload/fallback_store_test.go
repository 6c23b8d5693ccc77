package upload

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockStore is a mock implementation of the Store interface for testing.
type mockStore struct {
	saveFunc func(ctx context.Context, originalName string, r io.Reader) (string, error)
}

func (m *mockStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, originalName, r)
	}
	return "", errors.New("not implemented")
}

func TestFallbackStore_PrimarySuccess(t *testing.T) {
	primary := &mockStore{
		saveFunc: func(ctx context.Context, name string, r io.Reader) (string, error) {
			return "s3://bucket/uploads/1.png", nil
		},
	}
	fallback := &mockStore{
		saveFunc: func(ctx context.Context, name string, r io.Reader) (string, error) {
			t.Error("fallback store should not be called when primary succeeds")
			return "", errors.New("should not be called")
		},
	}

	store := NewFallbackStore(primary, fallback, zerolog.Nop())

	ref, err := store.Save(context.Background(), "1.png", strings.NewReader("img"))
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/uploads/1.png", ref)
}

func TestFallbackStore_PrimaryFailsReplaysBody(t *testing.T) {
	primary := &mockStore{
		saveFunc: func(ctx context.Context, name string, r io.Reader) (string, error) {
			// Consume part of the body before failing.
			buf := make([]byte, 2)
			_, _ = r.Read(buf)
			return "", errors.New("S3 connection failed")
		},
	}
	var received string
	fallback := &mockStore{
		saveFunc: func(ctx context.Context, name string, r io.Reader) (string, error) {
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			received = string(data)
			return "/uploads/1.png", nil
		},
	}

	store := NewFallbackStore(primary, fallback, zerolog.Nop())

	ref, err := store.Save(context.Background(), "1.png", strings.NewReader("image-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/1.png", ref)
	assert.Equal(t, "image-bytes", received)
}

func TestFallbackStore_BothFail(t *testing.T) {
	primary := &mockStore{}
	fallback := &mockStore{
		saveFunc: func(ctx context.Context, name string, r io.Reader) (string, error) {
			return "", errors.New("disk full")
		},
	}

	store := NewFallbackStore(primary, fallback, zerolog.Nop())

	_, err := store.Save(context.Background(), "1.png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFallbackStore_NilPrimary(t *testing.T) {
	fallback := &mockStore{
		saveFunc: func(ctx context.Context, name string, r io.Reader) (string, error) {
			return "/uploads/" + name, nil
		},
	}

	store := NewFallbackStore(nil, fallback, zerolog.Nop())

	ref, err := store.Save(context.Background(), "x.png", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/x.png", ref)
}
