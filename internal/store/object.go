package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultObjectKey is the object name holding the snapshot when none is
// configured.
const DefaultObjectKey = "heartbeat/snapshot.json"

// ObjectClient is the subset of an object storage API needed to keep a
// snapshot. GetObject returns [ErrNoSnapshot] when the object is missing.
type ObjectClient interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte) error
}

// ObjectBackend stores the snapshot as one object in a bucket.
type ObjectBackend struct {
	client ObjectClient
	key    string
}

// NewObjectBackend creates a backend storing the snapshot at key.
// An empty key uses [DefaultObjectKey].
func NewObjectBackend(client ObjectClient, key string) *ObjectBackend {
	if key == "" {
		key = DefaultObjectKey
	}
	return &ObjectBackend{client: client, key: key}
}

// Load fetches the snapshot object.
func (b *ObjectBackend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.client.GetObject(ctx, b.key)
	if errors.Is(err, ErrNoSnapshot) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", b.key, err)
	}
	return data, nil
}

// Save uploads data over the snapshot object.
func (b *ObjectBackend) Save(ctx context.Context, data []byte) error {
	if err := b.client.PutObject(ctx, b.key, data); err != nil {
		return fmt.Errorf("put object %s: %w", b.key, err)
	}
	return nil
}

// MinioConfig configures a [MinioObjectClient].
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// MinioObjectClient implements [ObjectClient] for any S3-compatible service.
type MinioObjectClient struct {
	mc     *minio.Client
	config MinioConfig
	logger *slog.Logger
}

// NewMinioObjectClient creates a client for cfg.Bucket. No request is made
// until [MinioObjectClient.EnsureBucket] or a read/write is performed.
func NewMinioObjectClient(cfg MinioConfig, logger *slog.Logger) (*MinioObjectClient, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &MinioObjectClient{mc: mc, config: cfg, logger: logger}, nil
}

// EnsureBucket creates the configured bucket if it does not already exist.
func (c *MinioObjectClient) EnsureBucket(ctx context.Context) error {
	name := c.config.Bucket
	exists, err := c.mc.BucketExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", name, err)
	}
	if exists {
		return nil
	}

	region := c.config.Region
	if region == "" {
		region = "us-east-1"
	}
	if err := c.mc.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", name, err)
	}
	c.logger.Info("s3 bucket created", "bucket", name)
	return nil
}

// GetObject implements [ObjectClient].
func (c *MinioObjectClient) GetObject(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, c.config.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapMinioError(err)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; a missing key surfaces on the first read
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, mapMinioError(err)
	}
	return data, nil
}

// PutObject implements [ObjectClient].
func (c *MinioObjectClient) PutObject(ctx context.Context, key string, data []byte) error {
	_, err := c.mc.PutObject(ctx, c.config.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}

// mapMinioError converts "no such key" responses to [ErrNoSnapshot].
func mapMinioError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrNoSnapshot
	}
	return err
}
