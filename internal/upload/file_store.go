package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxNameAttempts = 100

// fileStore implements Store on the local file system.
type fileStore struct {
	dir       string
	urlPrefix string
	now       func() time.Time
	logger    zerolog.Logger
}

// NewFileStore creates a store writing into dir, which is created if needed.
// References are urlPrefix followed by the file name.
func NewFileStore(dir, urlPrefix string, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "file-upload-store").Logger()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("dir", dir).Msg("failed to create upload directory")
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}

	return &fileStore{
		dir:       dir,
		urlPrefix: urlPrefix,
		now:       time.Now,
		logger:    logger,
	}, nil
}

// Save copies r into a new file in the upload directory.
func (s *fileStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, f, err := s.create(originalName)
	if err != nil {
		return "", err
	}
	path := f.Name()

	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		s.logger.Error().Err(err).Str("path", path).Msg("failed to write upload file")
		return "", fmt.Errorf("failed to write upload file %s: %w", path, err)
	}

	s.logger.Info().
		Str("original_name", originalName).
		Str("path", path).
		Int64("bytes", written).
		Msg("upload stored")

	return s.urlPrefix + name, nil
}

// create opens a new file named after the current time. Uploads landing in
// the same millisecond get a numeric suffix.
func (s *fileStore) create(originalName string) (string, *os.File, error) {
	base := objectName(originalName, s.now())
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := base
	for i := 1; ; i++ {
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return name, f, nil
		}
		if !errors.Is(err, fs.ErrExist) || i >= maxNameAttempts {
			s.logger.Error().Err(err).Str("path", path).Msg("failed to create upload file")
			return "", nil, fmt.Errorf("failed to create upload file %s: %w", path, err)
		}
		name = fmt.Sprintf("%s-%d%s", stem, i, ext)
	}
}
