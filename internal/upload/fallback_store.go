package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// fallbackStore tries a primary store first and falls back to a secondary
// one when the primary fails.
type fallbackStore struct {
	primary  Store
	fallback Store
	logger   zerolog.Logger
}

// NewFallbackStore creates a store that tries primary first, then fallback.
// A nil primary uses only the fallback.
func NewFallbackStore(primary, fallback Store, logger zerolog.Logger) Store {
	return &fallbackStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("component", "fallback-upload-store").Logger(),
	}
}

// Save buffers the upload so it can be replayed into the fallback store.
func (s *fallbackStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if s.primary == nil {
		return s.fallback.Save(ctx, originalName, r)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	ref, err := s.primary.Save(ctx, originalName, bytes.NewReader(data))
	if err == nil {
		return ref, nil
	}

	s.logger.Warn().
		Err(err).
		Str("original_name", originalName).
		Msg("primary upload store failed, falling back")

	return s.fallback.Save(ctx, originalName, bytes.NewReader(data))
}
