package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore 将图片写入本地目录，由 HTTP 层以静态文件方式对外提供
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore 创建本地存储，baseURL 为对外访问前缀（如 http://host/media）
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir 存储根目录
func (s *LocalStore) Dir() string {
	return s.dir
}

// Save 写入文件并返回 URL
func (s *LocalStore) Save(ctx context.Context, key string, data []byte, _ string) (string, error) {
	_, span := tracer.Start(ctx, "storage.LocalStore.Save")
	defer span.End()

	clean := path.Clean("/" + key)[1:]
	if clean == "" || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	full := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create dir for %s: %w", clean, err)
	}

	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to write %s: %w", clean, err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move %s into place: %w", clean, err)
	}
	return s.baseURL + "/" + clean, nil
}

// Read 读取文件内容
func (s *LocalStore) Read(_ context.Context, key string) ([]byte, error) {
	clean := path.Clean("/" + key)[1:]
	return os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(clean)))
}

// Close 本地存储无需释放资源
func (s *LocalStore) Close() error {
	return nil
}
