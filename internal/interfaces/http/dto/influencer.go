package dto

import (
	"time"

	"brand-card-studio/internal/application/influencer"
	"brand-card-studio/internal/domain/entity"
)

// CreateInfluencerRequest 创建网红请求
type CreateInfluencerRequest struct {
	Name   string `json:"name" binding:"required,max=255"`
	Domain string `json:"domain" binding:"max=255"`
	Bio    string `json:"bio" binding:"max=5000"`
}

// UpdateInfluencerRequest 更新网红请求
type UpdateInfluencerRequest struct {
	Name   *string `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Domain *string `json:"domain,omitempty" binding:"omitempty,max=255"`
	Bio    *string `json:"bio,omitempty" binding:"omitempty,max=5000"`
}

// ToPatch 转换为资料修改
func (r *UpdateInfluencerRequest) ToPatch() influencer.ProfilePatch {
	return influencer.ProfilePatch{Name: r.Name, Domain: r.Domain, Bio: r.Bio}
}

// FindNewRequest 从候选池补充网红
type FindNewRequest struct {
	Count int `json:"count"`
}

// SetEnabledRequest 修改参与开关
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// InfluencerResponse 网红响应
type InfluencerResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Bio             string    `json:"bio,omitempty"`
	Domain          string    `json:"domain,omitempty"`
	ImageURL        string    `json:"image_url,omitempty"`
	ActionImageURLs []string  `json:"action_image_urls"`
	Enabled         bool      `json:"enabled"`
	Status          string    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ToInfluencerResponse 转换网红响应
func ToInfluencerResponse(i *entity.Influencer) *InfluencerResponse {
	if i == nil {
		return nil
	}
	return &InfluencerResponse{
		ID:              i.ID,
		Name:            i.Name,
		Bio:             i.Bio,
		Domain:          i.Domain,
		ImageURL:        i.ImageURL,
		ActionImageURLs: i.ActionImageURLs,
		Enabled:         i.Enabled,
		Status:          string(i.Status),
		ErrorMessage:    i.ErrorMessage,
		CreatedAt:       i.CreatedAt,
		UpdatedAt:       i.UpdatedAt,
	}
}

// InfluencerListResponse 网红列表响应
type InfluencerListResponse struct {
	Influencers []*InfluencerResponse `json:"influencers"`
}

// ToInfluencerListResponse 转换网红列表
func ToInfluencerListResponse(list []*entity.Influencer) *InfluencerListResponse {
	out := make([]*InfluencerResponse, 0, len(list))
	for _, i := range list {
		out = append(out, ToInfluencerResponse(i))
	}
	return &InfluencerListResponse{Influencers: out}
}
