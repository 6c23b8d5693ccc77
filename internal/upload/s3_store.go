package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectPutter is the subset of *s3.Client the S3 store uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Store implements Store on an S3 bucket.
type s3Store struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
	logger zerolog.Logger
}

// NewS3Store creates an S3-backed upload store using the default AWS
// credential chain.
func NewS3Store(ctx context.Context, bucket, region, prefix string, logger zerolog.Logger) (Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	store := NewS3StoreWithClient(s3.NewFromConfig(cfg), bucket, prefix, logger)

	logger.Info().
		Str("bucket", bucket).
		Str("region", region).
		Str("prefix", prefix).
		Msg("S3 upload store initialised")

	return store, nil
}

// NewS3StoreWithClient creates an S3-backed upload store on an existing
// client.
func NewS3StoreWithClient(client ObjectPutter, bucket, prefix string, logger zerolog.Logger) Store {
	return &s3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		logger: logger.With().Str("component", "s3-upload-store").Logger(),
	}
}

// Save uploads r as a new object and returns its s3:// reference.
func (s *s3Store) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	// PutObject needs a seekable body to sign the payload.
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	name := objectName(originalName, s.now())
	key := s.prefix + name

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType := mime.TypeByExtension(filepath.Ext(name)); contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Error().
			Err(err).
			Str("bucket", s.bucket).
			Str("key", key).
			Msg("failed to put object to S3")
		return "", fmt.Errorf("failed to put object to S3 (bucket=%s, key=%s): %w", s.bucket, key, err)
	}

	s.logger.Info().
		Str("bucket", s.bucket).
		Str("key", key).
		Int("bytes", len(data)).
		Msg("upload stored in S3")

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
