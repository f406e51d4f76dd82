package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/config"
)

func TestLocalStoreSaveAndRead(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:8080/media/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "images/2026/01/02/a.png", []byte("png"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/images/2026/01/02/a.png", url)

	b, err := os.ReadFile(filepath.Join(dir, "images", "2026", "01", "02", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), b)

	b, err = s.Read(context.Background(), "images/2026/01/02/a.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), b)
}

func TestLocalStoreRejectsEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(filepath.Join(dir, "media"), "/media")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "../../etc/passwd", []byte("x"), "text/plain")
	require.NoError(t, err, "keys are rooted inside the store directory")
	assert.Equal(t, "/media/etc/passwd", url)
	_, statErr := os.Stat(filepath.Join(dir, "etc"))
	assert.True(t, os.IsNotExist(statErr))

	_, err = s.Save(context.Background(), "", []byte("x"), "text/plain")
	assert.Error(t, err)
}

func TestNewLocalBackend(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{PublicBaseURL: "http://example.test/"},
		Storage: config.StorageConfig{
			Backend: config.StorageBackendLocal,
			Local:   config.LocalStore{Dir: t.TempDir(), URLPrefix: "/media"},
		},
	}
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer s.Close()

	url, err := s.Save(context.Background(), "x.png", []byte("1"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/media/x.png", url)

	cfg.Storage.Backend = "s3"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
