// Package port 定义工作流层对外部协作者的最小依赖
package port

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/model"

	"brand-card-studio/internal/domain/entity"
)

// ErrMalformedOutput 模型输出无法解析为约定结构
var ErrMalformedOutput = errors.New("malformed agent output")

// ChatModelFactory 定义工作流层对 LLM ChatModel 的最小依赖（port）。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// Combination 一次子流水线的输入：画像 × 场景 × 网红
type Combination struct {
	Brand       *entity.Brand
	Persona     *entity.Persona
	Environment *entity.Environment
	Influencer  *entity.Influencer
}

// AnalyzedItem 内容分析得到的画像或场景
type AnalyzedItem struct {
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// Analysis 内容分析结果
type Analysis struct {
	Personas     []AnalyzedItem `json:"personas"`
	Environments []AnalyzedItem `json:"environments"`
}

// 安全审查建议
const (
	RecommendationApprove = "approve"
	RecommendationRevise  = "revise"
	RecommendationReject  = "reject"
)

// SafetyVerdict 安全审查结论
type SafetyVerdict struct {
	Approved       bool     `json:"approved"`
	Issues         []string `json:"issues"`
	Recommendation string   `json:"recommendation"`
}

// Passed 是否允许生成卡片
func (v *SafetyVerdict) Passed() bool {
	if v == nil {
		return false
	}
	return v.Approved && !strings.EqualFold(strings.TrimSpace(v.Recommendation), RecommendationReject)
}

// ImageBrief 配图说明
type ImageBrief struct {
	Prompt             string   `json:"prompt"`
	ReferenceImageURLs []string `json:"referenceImageUrls"`
	ImageSize          string   `json:"imageSize"`
}

// ImageRequest 图片生成请求；无参考图为文生图，有参考图为编辑模式
type ImageRequest struct {
	Prompt             string
	ReferenceImageURLs []string
	ImageSize          string
}

// ImageResult 图片生成结果
type ImageResult struct {
	Success  bool
	ImageURL string
	Error    string
}

// ContentAnalyzer 从品牌内容中提取画像与场景
type ContentAnalyzer interface {
	Analyze(ctx context.Context, sources []string) (*Analysis, error)
}

// QueryAgent 生成提及网红名字的用户问题
type QueryAgent interface {
	Ask(ctx context.Context, combo Combination) (string, error)
}

// AnswerAgent 以网红第一人称回答问题
type AnswerAgent interface {
	Answer(ctx context.Context, combo Combination, query string) (string, error)
}

// SafetyAgent 审查问答内容；无法解析时返回 ErrMalformedOutput
type SafetyAgent interface {
	Review(ctx context.Context, query, response string) (*SafetyVerdict, error)
}

// ImageBriefAgent 生成配图说明；无法解析时返回 ErrMalformedOutput
type ImageBriefAgent interface {
	Brief(ctx context.Context, combo Combination, query, response string) (*ImageBrief, error)
}

// ImageGenerator 调用外部图片生成服务
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageRequest) (*ImageResult, error)
}

// ImageStore 保存生成的图片并返回可访问的 URL
type ImageStore interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// QueryIndex 按品牌隔离的卡片问题语义索引
type QueryIndex interface {
	// Similarity 返回品牌内与 query 最相近问题的余弦相似度，没有记录时为 0
	Similarity(ctx context.Context, brandID, query string) (float32, error)
	Add(ctx context.Context, cardID, brandID, query string) error
	Remove(ctx context.Context, cardIDs []string) error
}
