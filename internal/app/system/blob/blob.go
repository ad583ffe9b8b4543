// internal/app/system/blob/blob.go
//
// Package blob opens the object store team pictures are kept in, on the
// local disk or in S3, from the storage_* settings.
package blob

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/pantry/storage"
)

// Config selects and configures a backend.
type Config struct {
	Type      string // "local" or "s3"
	LocalPath string
	S3Region  string
	S3Bucket  string
	S3Prefix  string
}

// New builds the backend named by cfg.Type.
func New(ctx context.Context, cfg Config) (storage.Store, error) {
	switch cfg.Type {
	case "", "local":
		local, err := storage.NewLocal(storage.LocalConfig{BasePath: cfg.LocalPath})
		if err != nil {
			return nil, err
		}
		return local, nil
	case "s3":
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Bucket: cfg.S3Bucket,
			Region: cfg.S3Region,
			Prefix: cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	return nil, fmt.Errorf("%w: unknown storage type %q", storage.ErrInvalidConfig, cfg.Type)
}
