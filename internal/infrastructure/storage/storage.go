package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"brand-card-studio/internal/config"
)

// Store 图片存储
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	io.Closer
}

// New 按 storage.backend 创建存储
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendGCS:
		g := cfg.Storage.GCS
		return NewGCSStore(ctx, g.Bucket, g.Prefix, g.PublicBaseURL)
	case config.StorageBackendLocal, "":
		l := cfg.Storage.Local
		base := strings.TrimRight(cfg.App.PublicBaseURL, "/") + "/" + strings.Trim(l.URLPrefix, "/")
		return NewLocalStore(l.Dir, base)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q", cfg.Storage.Backend)
	}
}
