package imagegen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/config"
	workflowport "brand-card-studio/internal/workflow/port"
	apperrors "brand-card-studio/pkg/errors"
)

type memStore struct {
	mu    sync.Mutex
	saved map[string][]byte
	err   error
}

func (m *memStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[key] = data
	return "https://media.example/" + key, nil
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func imageServer(t *testing.T, onRequest func(body map[string]any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if onRequest != nil {
			onRequest(body)
		}

		dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"images":[{"image_url":{"url":"` + dataURL + `"}}]}}]}`))
	}))
}

func newTestClient(baseURL string, store workflowport.ImageStore) *Client {
	return NewClient(&config.ImageConfig{APIKey: "key-1", BaseURL: baseURL, Model: "google/gemini-2.5-flash-image", Size: "1K"}, store)
}

func TestGenerateTextToImage(t *testing.T) {
	var got map[string]any
	srv := imageServer(t, func(body map[string]any) { got = body })
	defer srv.Close()

	store := &memStore{}
	res, err := newTestClient(srv.URL, store).Generate(context.Background(), workflowport.ImageRequest{Prompt: "a desk"})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.True(t, strings.HasPrefix(res.ImageURL, "https://media.example/images/"))
	assert.True(t, strings.HasSuffix(res.ImageURL, ".png"))

	assert.Equal(t, []any{"image", "text"}, got["modalities"])
	assert.Equal(t, map[string]any{"image_size": "1K"}, got["image_config"])
	msg := got["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "a desk", msg["content"])

	require.Len(t, store.saved, 1)
	for _, v := range store.saved {
		assert.Equal(t, pngBytes, v)
	}
}

func TestGenerateEditModeSendsReferences(t *testing.T) {
	var got map[string]any
	srv := imageServer(t, func(body map[string]any) { got = body })
	defer srv.Close()

	res, err := newTestClient(srv.URL, &memStore{}).Generate(context.Background(), workflowport.ImageRequest{
		Prompt:             "same person jogging",
		ReferenceImageURLs: []string{"https://cdn.example/head.png"},
		ImageSize:          "2K",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	parts := got["messages"].([]any)[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]any)["type"])
	img := parts[1].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	assert.Equal(t, "https://cdn.example/head.png", img["image_url"].(map[string]any)["url"])
	assert.Equal(t, map[string]any{"image_size": "2K"}, got["image_config"])
}

func TestGenerateDownloadsRemoteURL(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/files/out.jpg" {
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte("jpegdata"))
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"images":[{"image_url":{"url":"` + srv.URL + `/files/out.jpg"}}]}}]}`))
	}))
	defer srv.Close()

	store := &memStore{}
	res, err := newTestClient(srv.URL, store).Generate(context.Background(), workflowport.ImageRequest{Prompt: "x"})
	require.NoError(t, err)
	require.True(t, res.Success, res.Error)
	assert.True(t, strings.HasSuffix(res.ImageURL, ".jpg"))
}

func TestGenerateSoftFailures(t *testing.T) {
	errSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer errSrv.Close()

	res, err := newTestClient(errSrv.URL, &memStore{}).Generate(context.Background(), workflowport.ImageRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "rate limited")

	okSrv := imageServer(t, nil)
	defer okSrv.Close()
	res, err = newTestClient(okSrv.URL, &memStore{err: errors.New("bucket gone")}).Generate(context.Background(), workflowport.ImageRequest{Prompt: "x"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "bucket gone")
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	c := NewClient(&config.ImageConfig{BaseURL: "http://unused"}, &memStore{})
	_, err := c.Generate(context.Background(), workflowport.ImageRequest{Prompt: "x"})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.False(t, c.Configured())
}

func TestDecodeDataURL(t *testing.T) {
	raw, mt, err := decodeDataURL("data:image/webp;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), raw)
	assert.Equal(t, "image/webp", mt)
	assert.Equal(t, ".webp", extensionFromMIME(mt))

	_, _, err = decodeDataURL("data:image/png,plain")
	assert.Error(t, err)
}
