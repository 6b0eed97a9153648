package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/Conte777/affiliate-relay/config"
	"github.com/Conte777/affiliate-relay/internal/domain"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ImageMirror keeps copies of product images in an S3/MinIO bucket so
// repeated deliveries do not hit the shop's CDN
type ImageMirror struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewImageMirror creates a new S3/MinIO client
func NewImageMirror(cfg *config.S3Config, logger zerolog.Logger) (*ImageMirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &ImageMirror{
		client: client,
		bucket: cfg.Bucket,
		logger: logger.With().Str("component", "image_mirror").Logger(),
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (m *ImageMirror) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		m.logger.Info().Str("bucket", m.bucket).Msg("created S3 bucket")
	}

	return nil
}

// ObjectKey derives the object name from the image source URL
func ObjectKey(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("images/%x", sum[:])
}

// Get returns the mirrored image, ok=false when it was never stored
func (m *ImageMirror) Get(ctx context.Context, sourceURL string) ([]byte, bool, error) {
	key := ObjectKey(sourceURL)

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get image from S3: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read image from S3: %w", err)
	}

	m.logger.Debug().Str("object_key", key).Int("bytes", len(data)).Msg("image mirror hit")
	return data, true, nil
}

// Put stores an image under its source URL key
func (m *ImageMirror) Put(ctx context.Context, sourceURL string, data []byte, contentType string) error {
	key := ObjectKey(sourceURL)

	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"source-url": sourceURL},
	})
	if err != nil {
		return fmt.Errorf("failed to upload image to S3: %w", err)
	}

	m.logger.Debug().Str("object_key", key).Str("source_url", sourceURL).Msg("mirrored image to S3")
	return nil
}

// DisabledStore is the ImageStore used when S3_ENDPOINT is empty; it always misses
type DisabledStore struct{}

func (DisabledStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (DisabledStore) Put(context.Context, string, []byte, string) error { return nil }

var (
	_ domain.ImageStore = (*ImageMirror)(nil)
	_ domain.ImageStore = DisabledStore{}
)
