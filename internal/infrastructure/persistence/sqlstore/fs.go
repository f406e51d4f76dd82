package sqlstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// ensureDir 确保 SQLite 文件所在目录存在
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
	}
	return nil
}
