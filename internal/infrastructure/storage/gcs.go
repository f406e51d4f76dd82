// Package storage 保存生成的图片：Google Cloud Storage 或本地目录
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("storage")

// GCSStore 将图片写入 GCS 存储桶
type GCSStore struct {
	client        *storage.Client
	bucket        string
	prefix        string
	publicBaseURL string
}

// NewGCSStore 使用默认凭据创建 GCS 客户端
func NewGCSStore(ctx context.Context, bucket, prefix, publicBaseURL string) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{
		client:        client,
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// Save 写入对象并返回公开访问 URL
func (s *GCSStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, span := tracer.Start(ctx, "storage.GCSStore.Save")
	defer span.End()

	objectName := path.Join(s.prefix, key)
	wc := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=31536000, immutable"
	if _, err := wc.Write(data); err != nil {
		_ = wc.Close()
		span.RecordError(err)
		return "", fmt.Errorf("failed to write gcs object %s: %w", objectName, err)
	}
	if err := wc.Close(); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to finalize gcs object %s: %w", objectName, err)
	}
	return s.publicBaseURL + "/" + objectName, nil
}

// Read 读取对象内容
func (s *GCSStore) Read(ctx context.Context, key string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(path.Join(s.prefix, key)).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Close 关闭客户端
func (s *GCSStore) Close() error {
	return s.client.Close()
}
