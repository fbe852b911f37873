package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/jpalmerr/heartbeat/internal/store"
)

// BuildBackend connects the storage backend selected by cfg.Storage.
//
// Remote backends are verified before returning, so a misconfigured
// address fails at startup rather than on the first report. Backends that
// hold connections implement io.Closer.
func BuildBackend(ctx context.Context, cfg *Config, logger *slog.Logger) (store.Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := cfg.Storage

	switch s.Type {
	case StorageMemory:
		logger.Warn("using in-memory storage, statuses will not survive a restart")
		return store.NewMemoryBackend(), nil

	case StorageFile:
		return store.NewFileBackend(s.Path), nil

	case StorageRedis:
		opts := &redis.Options{
			Addr:     s.Redis.Address,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
		}
		if s.Redis.UseTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		backend := store.NewRedisBackend(redis.NewClient(opts), s.Redis.Key)
		if err := backend.Ping(ctx); err != nil {
			_ = backend.Close()
			return nil, err
		}
		return backend, nil

	case StorageS3:
		client, err := store.NewMinioObjectClient(store.MinioConfig{
			Endpoint:  s.S3.Endpoint,
			AccessKey: s.S3.AccessKey,
			SecretKey: s.S3.SecretKey,
			Region:    s.S3.Region,
			Bucket:    s.S3.Bucket,
			UseSSL:    s.S3.UseSSL,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store.NewObjectBackend(client, s.S3.Key), nil

	case StoragePostgres:
		backend, err := store.ConnectPostgres(ctx, s.Postgres.URL)
		if err != nil {
			return nil, err
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", s.Type)
	}
}

// Describe returns a short, credential-free description of the storage
// target for logs and the validate command.
func (s StorageConfig) Describe() string {
	switch s.Type {
	case StorageFile:
		return fmt.Sprintf("file %s", s.Path)
	case StorageRedis:
		return fmt.Sprintf("redis %s key %s", s.Redis.Address, s.Redis.Key)
	case StorageS3:
		return fmt.Sprintf("s3 %s/%s/%s", s.S3.Endpoint, s.S3.Bucket, s.S3.Key)
	case StoragePostgres:
		return "postgres"
	default:
		return s.Type
	}
}
