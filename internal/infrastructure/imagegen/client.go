// Package imagegen 通过 OpenRouter 兼容的 chat/completions 接口生成图片
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"brand-card-studio/internal/config"
	workflowport "brand-card-studio/internal/workflow/port"
	apperrors "brand-card-studio/pkg/errors"
	"brand-card-studio/pkg/logger"
	"brand-card-studio/pkg/metrics"
)

const (
	modeTextToImage = "text_to_image"
	modeEdit        = "edit"

	maxImageBytes = 20 << 20
)

var tracer = otel.Tracer("imagegen")

type chatCompletionsRequest struct {
	Model       string           `json:"model"`
	Messages    []chatMessage    `json:"messages"`
	Modalities  []string         `json:"modalities"`
	Stream      bool             `json:"stream"`
	ImageConfig *imageConfigBody `json:"image_config,omitempty"`
}

// chatMessage Content 为纯文本或多段内容（文本 + 参考图）
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type imageConfigBody struct {
	ImageSize string `json:"image_size,omitempty"`
}

type chatCompletionsResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Choices []struct {
		Message struct {
			Images []struct {
				ImageURL imageRef `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
}

// Client 图片生成客户端，生成结果写入 ImageStore
type Client struct {
	cfg        config.ImageConfig
	httpClient *http.Client
	store      workflowport.ImageStore
}

// NewClient 创建图片生成客户端
func NewClient(cfg *config.ImageConfig, store workflowport.ImageStore) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		cfg:        *cfg,
		httpClient: &http.Client{Timeout: timeout},
		store:      store,
	}
}

// Configured 是否配置了 API Key
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// Generate 生成图片。未配置 API Key 返回 ErrServiceUnavailable；
// 服务商或存储失败以 Success=false 返回，由调用方决定是否降级。
func (c *Client) Generate(ctx context.Context, req workflowport.ImageRequest) (*workflowport.ImageResult, error) {
	if !c.Configured() {
		return nil, apperrors.ErrServiceUnavailable.WithDetail("image generation api key is not configured")
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("image prompt is empty")
	}

	mode := modeTextToImage
	if len(req.ReferenceImageURLs) > 0 {
		mode = modeEdit
	}

	ctx, span := tracer.Start(ctx, "imagegen.Client.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("image.mode", mode),
		attribute.String("image.model", c.cfg.Model),
		attribute.Int("image.references", len(req.ReferenceImageURLs)),
	)

	start := time.Now()
	url, err := c.generate(ctx, req)
	metrics.ImageGenerationDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ImageGenerationTotal.WithLabelValues(mode, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn(ctx, "image generation failed", "mode", mode, "error", err.Error())
		return &workflowport.ImageResult{Success: false, Error: err.Error()}, nil
	}

	metrics.ImageGenerationTotal.WithLabelValues(mode, "success").Inc()
	return &workflowport.ImageResult{Success: true, ImageURL: url}, nil
}

func (c *Client) generate(ctx context.Context, req workflowport.ImageRequest) (string, error) {
	data, contentType, err := c.requestImage(ctx, req)
	if err != nil {
		return "", err
	}

	key := fmt.Sprintf("images/%s/%s%s", time.Now().UTC().Format("2006/01/02"), uuid.NewString(), extensionFromMIME(contentType))
	url, err := c.store.Save(ctx, key, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store generated image: %w", err)
	}
	return url, nil
}

func (c *Client) requestImage(ctx context.Context, req workflowport.ImageRequest) ([]byte, string, error) {
	size := strings.TrimSpace(req.ImageSize)
	if size == "" {
		size = c.cfg.Size
	}

	msg := chatMessage{Role: "user", Content: req.Prompt}
	if len(req.ReferenceImageURLs) > 0 {
		parts := []contentPart{{Type: "text", Text: req.Prompt}}
		for _, ref := range req.ReferenceImageURLs {
			parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageRef{URL: ref}})
		}
		msg.Content = parts
	}

	body := chatCompletionsRequest{
		Model:      c.cfg.Model,
		Messages:   []chatMessage{msg},
		Modalities: []string{"image", "text"},
	}
	if size != "" {
		body.ImageConfig = &imageConfigBody{ImageSize: size}
	}
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4*maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, "", fmt.Errorf("parse response (%d): %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, "", fmt.Errorf("api error (%d): %s", resp.StatusCode, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("api status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}
	if len(parsed.Choices) == 0 || len(parsed.Choices[0].Message.Images) == 0 {
		return nil, "", fmt.Errorf("no image data returned (%d)", resp.StatusCode)
	}

	imageURL := strings.TrimSpace(parsed.Choices[0].Message.Images[0].ImageURL.URL)
	if imageURL == "" {
		return nil, "", errors.New("image URL is empty")
	}
	if strings.HasPrefix(imageURL, "data:") {
		return decodeDataURL(imageURL)
	}

	data, ct, err := c.download(ctx, imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("download image url: %w", err)
	}
	return data, ct, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	ct := resp.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil && strings.HasPrefix(mt, "image/") {
		return data, mt, nil
	}
	return data, http.DetectContentType(data), nil
}

// decodeDataURL 解析 data:<mime>;base64,<payload>
func decodeDataURL(dataURL string) ([]byte, string, error) {
	const marker = ";base64,"
	idx := strings.Index(dataURL, marker)
	if !strings.HasPrefix(dataURL, "data:") || idx < 0 {
		return nil, "", errors.New("invalid base64 data URL")
	}

	meta := strings.TrimPrefix(dataURL[:idx], "data:")
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len(marker):])
	if err != nil {
		return nil, "", fmt.Errorf("decode image base64: %w", err)
	}
	if meta == "" {
		meta = http.DetectContentType(raw)
	}
	return raw, meta, nil
}

func extensionFromMIME(mt string) string {
	switch strings.ToLower(strings.TrimSpace(mt)) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".img"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
