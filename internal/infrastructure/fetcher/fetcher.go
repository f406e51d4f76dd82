// Package fetcher 抓取品牌内容来源并转换为纯文本
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"brand-card-studio/internal/config"
	apperrors "brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxChars = 50000
	maxBodyBytes    = 2 << 20
	fetchParallel   = 4
	userAgent       = "Mozilla/5.0 (compatible; brand-card-studio/1.0)"
)

var (
	tracer              = otel.Tracer("fetcher")
	multiNewlinePattern = regexp.MustCompile(`\n{3,}`)
	multiSpacePattern   = regexp.MustCompile(`[ \t]+`)
)

// Fetcher 内容抓取器
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxChars int
}

// New 创建抓取器
func New(cfg *config.OnboardingFeature) *Fetcher {
	f := &Fetcher{client: &http.Client{}, timeout: defaultTimeout, maxChars: defaultMaxChars}
	if cfg != nil {
		if cfg.FetchTimeout > 0 {
			f.timeout = cfg.FetchTimeout
		}
		if cfg.MaxContentLen > 0 {
			f.maxChars = cfg.MaxContentLen
		}
	}
	return f
}

// IsURL 判断来源是否为需要抓取的链接
func IsURL(source string) bool {
	s := strings.ToLower(strings.TrimSpace(source))
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// FetchAll 按来源顺序返回文本：链接被抓取，其他条目视为内联文本。
// 单个抓取失败会记录日志并跳过，全部失败时返回 ErrContentFetchFailed。
func (f *Fetcher) FetchAll(ctx context.Context, sources []string) ([]string, error) {
	results := make([]string, len(sources))
	errs := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchParallel)
	for i, src := range sources {
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		if !IsURL(src) {
			results[i] = truncate(src, f.maxChars)
			continue
		}
		g.Go(func() error {
			text, err := f.Fetch(gctx, src)
			if err != nil {
				logger.Warn(gctx, "content source fetch failed", "url", src, "error", err.Error())
				errs[i] = err
				return nil
			}
			results[i] = text
			return nil
		})
	}
	_ = g.Wait()

	out := make([]string, 0, len(results))
	var lastErr error
	for i, r := range results {
		if r != "" {
			out = append(out, r)
		} else if errs[i] != nil {
			lastErr = errs[i]
		}
	}
	if len(out) == 0 {
		if lastErr == nil {
			return nil, apperrors.ErrInvalidParam.WithDetail("no content sources provided")
		}
		return nil, apperrors.ErrContentFetchFailed.WithError(lastErr)
	}
	return out, nil
}

// Fetch 抓取单个链接，超时由 fetch_timeout 控制
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	ctx, span := tracer.Start(ctx, "fetcher.Fetcher.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", url))

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}

	var text string
	ct := strings.ToLower(resp.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/plain") || strings.Contains(ct, "text/markdown") {
		text = strings.TrimSpace(string(body))
	} else {
		text, err = HTMLToText(string(body))
		if err != nil {
			return "", fmt.Errorf("failed to parse html from %s: %w", url, err)
		}
	}
	if text == "" {
		return "", fmt.Errorf("fetch %s: no readable text", url)
	}
	return truncate(text, f.maxChars), nil
}

// HTMLToText 提取页面可读文本，跳过脚本、样式与导航
func HTMLToText(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	extractText(doc, &sb, 0)

	s := multiSpacePattern.ReplaceAllString(sb.String(), " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = multiNewlinePattern.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s), nil
}

func extractText(n *html.Node, sb *strings.Builder, depth int) {
	if depth > 64 {
		return
	}

	switch n.Type {
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "iframe", "svg", "nav", "footer", "form", "template":
			return
		case "meta":
			if strings.EqualFold(getAttr(n, "name"), "description") || strings.EqualFold(getAttr(n, "property"), "og:description") {
				if c := strings.TrimSpace(getAttr(n, "content")); c != "" {
					sb.WriteString(c)
					sb.WriteString("\n\n")
				}
			}
			return
		case "img":
			if alt := strings.TrimSpace(getAttr(n, "alt")); alt != "" {
				sb.WriteString("[Image: " + alt + "] ")
			}
			return
		case "title", "h1", "h2", "h3", "h4", "h5", "h6", "p", "div", "section", "article", "li", "tr":
			sb.WriteString("\n")
		case "br":
			sb.WriteString("\n")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, sb, depth+1)
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "title", "h1", "h2", "h3", "h4", "h5", "h6", "p", "li":
			sb.WriteString("\n")
		}
	}
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func truncate(s string, maxChars int) string {
	r := []rune(s)
	if maxChars <= 0 || len(r) <= maxChars {
		return s
	}
	return string(r[:maxChars])
}
