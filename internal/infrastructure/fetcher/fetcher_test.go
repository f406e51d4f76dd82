package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brand-card-studio/internal/config"
	apperrors "brand-card-studio/pkg/errors"
)

const page = `<!doctype html><html><head><title>FlowForm</title>
<meta name="description" content="Standing desks for small spaces">
<style>body{color:red}</style><script>var x = 1;</script></head>
<body><nav>Home | Shop</nav>
<h1>Meet the FlowForm desk</h1>
<p>Built for   remote workers.</p><img src="a.png" alt="desk in a studio">
<footer>(c) FlowForm</footer></body></html>`

func TestHTMLToText(t *testing.T) {
	text, err := HTMLToText(page)
	require.NoError(t, err)

	assert.Contains(t, text, "FlowForm")
	assert.Contains(t, text, "Standing desks for small spaces")
	assert.Contains(t, text, "Meet the FlowForm desk")
	assert.Contains(t, text, "Built for remote workers.")
	assert.Contains(t, text, "[Image: desk in a studio]")
	assert.NotContains(t, text, "var x")
	assert.NotContains(t, text, "color:red")
	assert.NotContains(t, text, "Home | Shop")
	assert.NotContains(t, text, "(c) FlowForm")
}

func TestFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("plain words"))
		case "/slow":
			time.Sleep(300 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(&config.OnboardingFeature{FetchTimeout: 100 * time.Millisecond, MaxContentLen: 1000})
	texts, err := f.FetchAll(context.Background(), []string{
		srv.URL + "/ok",
		"FlowForm is a desk company.",
		srv.URL + "/missing",
		srv.URL + "/slow",
		srv.URL + "/plain",
		"  ",
	})
	require.NoError(t, err)
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "Meet the FlowForm desk")
	assert.Equal(t, "FlowForm is a desk company.", texts[1])
	assert.Equal(t, "plain words", texts[2])

	_, err = f.FetchAll(context.Background(), []string{srv.URL + "/missing"})
	assert.ErrorIs(t, err, apperrors.ErrContentFetchFailed)

	_, err = f.FetchAll(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidParam)
}

func TestTruncateAndIsURL(t *testing.T) {
	assert.Equal(t, "品牌", truncate("品牌卡片", 2))
	assert.True(t, IsURL(" HTTPS://x.test"))
	assert.False(t, IsURL("ftp://x"))
}
