package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"barsync/internal/broadcast"
	"barsync/internal/config"
	"barsync/internal/handler"
	"barsync/internal/repository"
	"barsync/internal/router"
	"barsync/internal/service"
	"barsync/internal/upload"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockObjectPutter is a mock implementation of upload.ObjectPutter.
type MockObjectPutter struct {
	mock.Mock
}

func (m *MockObjectPutter) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func s3Config(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Upload: config.UploadConfig{Backend: config.UploadS3, Dir: t.TempDir()},
		S3:     config.S3Config{Bucket: "bar-images", Region: "us-east-1", Prefix: "uploads/"},
	}
}

func stubS3Store(t *testing.T, fn func(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (upload.Store, error)) {
	t.Helper()
	prev := newS3Store
	newS3Store = fn
	t.Cleanup(func() { newS3Store = prev })
}

func newTestServer(t *testing.T, cfg *config.Config, uploads upload.Store) http.Handler {
	t.Helper()
	logger := zerolog.Nop()

	hub := broadcast.NewHub(broadcast.DefaultOptions(), logger)
	t.Cleanup(hub.Close)
	controller := service.NewSyncController(repository.NewMemoryStore(logger), hub, service.DefaultMaxAttempts, logger)

	return router.New(
		handler.NewMenuHandler(controller, uploads, logger),
		handler.NewOrderHandler(controller, logger),
		handler.NewWebSocketHandler(hub, logger),
		routerOptions(cfg),
		logger,
	)
}

func fetch(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(w.Result().Body)
	require.NoError(t, err)
	return w.Code, string(body)
}

func TestOpenUploads_S3FailureIsServedLocally(t *testing.T) {
	cfg := s3Config(t)
	client := new(MockObjectPutter)
	client.On("PutObject", mock.Anything, mock.Anything).Return(nil, errors.New("no such host"))
	stubS3Store(t, func(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (upload.Store, error) {
		return upload.NewS3StoreWithClient(client, bucket, prefix, logger), nil
	})

	uploads, err := openUploads(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	ref, err := uploads.Save(context.Background(), "mojito.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, uploadsURLPrefix), "fallback reference %q", ref)

	code, body := fetch(t, newTestServer(t, cfg, uploads), ref)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "png-bytes", body)
	client.AssertExpectations(t)
}

func TestOpenUploads_S3InitFailureIsServedLocally(t *testing.T) {
	cfg := s3Config(t)
	stubS3Store(t, func(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (upload.Store, error) {
		return nil, errors.New("failed to load AWS config")
	})

	uploads, err := openUploads(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)

	ref, err := uploads.Save(context.Background(), "daiquiri.jpg", strings.NewReader("jpg-bytes"))
	require.NoError(t, err)

	code, body := fetch(t, newTestServer(t, cfg, uploads), ref)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "jpg-bytes", body)
}

func TestRouterOptions(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{"local", config.UploadLocal},
		{"s3", config.UploadS3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Server: config.ServerConfig{StaticDir: "public"},
				Upload: config.UploadConfig{Backend: tt.backend, Dir: "uploads"},
			}
			opts := routerOptions(cfg)
			assert.Equal(t, "uploads", opts.UploadDir)
			assert.Equal(t, "public", opts.StaticDir)
		})
	}
}
