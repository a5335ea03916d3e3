package archive

import (
	"context"
	"fmt"
)

// Options selects and configures an archive backend.
type Options struct {
	Backend string // local, s3, gcs or none
	Path    string // local base directory
	Bucket  string // s3 or gcs bucket
	S3      S3Config
}

// Open returns the configured backend, or nil when archiving is disabled.
func Open(ctx context.Context, o Options) (Storage, error) {
	switch o.Backend {
	case "", "none":
		return nil, nil
	case "local":
		if o.Path == "" {
			return nil, fmt.Errorf("local archive: path is required")
		}
		return NewLocalStorage(o.Path), nil
	case "s3":
		cfg := o.S3
		if cfg.Bucket == "" {
			cfg.Bucket = o.Bucket
		}
		return NewS3Storage(ctx, cfg)
	case "gcs":
		return NewGCSStorage(ctx, o.Bucket)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", o.Backend)
	}
}
