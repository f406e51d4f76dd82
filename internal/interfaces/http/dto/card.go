package dto

import (
	"time"

	"brand-card-studio/internal/domain/entity"
)

// UpdateCardRequest 人工修订卡片
type UpdateCardRequest struct {
	Query    *string `json:"query,omitempty" binding:"omitempty,min=1,max=2000"`
	Response *string `json:"response,omitempty" binding:"omitempty,min=1,max=20000"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Apply 把更新应用到卡片
func (r *UpdateCardRequest) Apply(c *entity.Card) {
	if r.Query != nil {
		c.Query = *r.Query
	}
	if r.Response != nil {
		c.Response = *r.Response
	}
	if r.ImageURL != nil {
		c.ImageURL = *r.ImageURL
	}
}

// CardResponse 卡片响应
type CardResponse struct {
	ID            string     `json:"id"`
	BrandID       string     `json:"brand_id"`
	InfluencerID  string     `json:"influencer_id"`
	PersonaID     *string    `json:"persona_id,omitempty"`
	EnvironmentID *string    `json:"environment_id,omitempty"`
	Query         string     `json:"query"`
	Response      string     `json:"response"`
	ImageURL      string     `json:"image_url,omitempty"`
	ImageBrief    string     `json:"image_brief,omitempty"`
	Status        string     `json:"status"`
	ViewCount     int        `json:"view_count"`
	ShareCount    int        `json:"share_count"`
	CreatedAt     time.Time  `json:"created_at"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
}

// ToCardResponse 转换卡片响应
func ToCardResponse(c *entity.Card) *CardResponse {
	if c == nil {
		return nil
	}
	return &CardResponse{
		ID:            c.ID,
		BrandID:       c.BrandID,
		InfluencerID:  c.InfluencerID,
		PersonaID:     c.PersonaID,
		EnvironmentID: c.EnvironmentID,
		Query:         c.Query,
		Response:      c.Response,
		ImageURL:      c.ImageURL,
		ImageBrief:    c.ImageBrief,
		Status:        string(c.Status),
		ViewCount:     c.ViewCount,
		ShareCount:    c.ShareCount,
		CreatedAt:     c.CreatedAt,
		PublishedAt:   c.PublishedAt,
	}
}

// CardListResponse 卡片列表响应
type CardListResponse struct {
	Cards []*CardResponse `json:"cards"`
}

// ToCardListResponse 转换卡片列表
func ToCardListResponse(list []*entity.Card) *CardListResponse {
	out := make([]*CardResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ToCardResponse(c))
	}
	return &CardListResponse{Cards: out}
}

// GenerationAcceptedResponse 异步生成受理响应
type GenerationAcceptedResponse struct {
	BrandID   string `json:"brand_id"`
	MessageID string `json:"message_id"`
}
