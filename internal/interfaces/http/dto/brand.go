package dto

import (
	"time"

	"brand-card-studio/internal/application/onboarding"
	"brand-card-studio/internal/domain/entity"
)

// OnboardBrandRequest 品牌接入请求
type OnboardBrandRequest struct {
	Name           string   `json:"name" binding:"required,max=255"`
	Domain         string   `json:"domain" binding:"max=255"`
	Description    string   `json:"description" binding:"max=10000"`
	ContentSources []string `json:"content_sources" binding:"required,min=1"`
	ProductImages  []string `json:"product_images,omitempty"`
}

// ToInput 转为接入参数
func (r *OnboardBrandRequest) ToInput() onboarding.Input {
	return onboarding.Input{
		Name:           r.Name,
		Domain:         r.Domain,
		Description:    r.Description,
		ContentSources: r.ContentSources,
		ProductImages:  r.ProductImages,
	}
}

// UpdateBrandRequest 更新品牌请求，slug 不可修改
type UpdateBrandRequest struct {
	Name           *string  `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Domain         *string  `json:"domain,omitempty" binding:"omitempty,max=255"`
	Description    *string  `json:"description,omitempty" binding:"omitempty,max=10000"`
	ContentSources []string `json:"content_sources,omitempty"`
	ProductImages  []string `json:"product_images,omitempty"`
}

// Apply 把更新应用到品牌
func (r *UpdateBrandRequest) Apply(b *entity.Brand) {
	if r.Name != nil {
		b.Name = *r.Name
	}
	if r.Domain != nil {
		b.Domain = *r.Domain
	}
	if r.Description != nil {
		b.Description = *r.Description
	}
	if r.ContentSources != nil {
		b.ContentSources = r.ContentSources
	}
	if r.ProductImages != nil {
		b.ProductImages = r.ProductImages
	}
}

// BrandResponse 品牌响应
type BrandResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Domain         string    `json:"domain,omitempty"`
	Description    string    `json:"description,omitempty"`
	URLSlug        string    `json:"url_slug"`
	DatasetURL     string    `json:"dataset_url"`
	ContentSources []string  `json:"content_sources"`
	ProductImages  []string  `json:"product_images"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ToBrandResponse 转换品牌响应
func ToBrandResponse(b *entity.Brand) *BrandResponse {
	if b == nil {
		return nil
	}
	return &BrandResponse{
		ID:             b.ID,
		Name:           b.Name,
		Domain:         b.Domain,
		Description:    b.Description,
		URLSlug:        b.URLSlug,
		DatasetURL:     "/dataset/" + b.URLSlug,
		ContentSources: b.ContentSources,
		ProductImages:  b.ProductImages,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}

// BrandListResponse 品牌列表响应
type BrandListResponse struct {
	Brands []*BrandResponse `json:"brands"`
}

// ToBrandListResponse 转换品牌列表
func ToBrandListResponse(brands []*entity.Brand) *BrandListResponse {
	out := make([]*BrandResponse, 0, len(brands))
	for _, b := range brands {
		out = append(out, ToBrandResponse(b))
	}
	return &BrandListResponse{Brands: out}
}

// OnboardBrandResponse 品牌接入响应
type OnboardBrandResponse struct {
	Brand        *BrandResponse   `json:"brand"`
	Personas     []*LabelResponse `json:"personas"`
	Environments []*LabelResponse `json:"environments"`
}

// ToOnboardBrandResponse 转换接入结果
func ToOnboardBrandResponse(res *onboarding.Result) *OnboardBrandResponse {
	return &OnboardBrandResponse{
		Brand:        ToBrandResponse(res.Brand),
		Personas:     ToPersonaResponses(res.Personas),
		Environments: ToEnvironmentResponses(res.Environments),
	}
}

// LabelRequest 画像或场景的创建/更新请求
type LabelRequest struct {
	Label       string   `json:"label" binding:"required,max=255"`
	Description string   `json:"description" binding:"max=10000"`
	Tags        []string `json:"tags,omitempty"`
}

// LabelResponse 画像或场景响应
type LabelResponse struct {
	ID          string    `json:"id"`
	BrandID     string    `json:"brand_id"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToPersonaResponse 转换画像响应
func ToPersonaResponse(p *entity.Persona) *LabelResponse {
	return &LabelResponse{
		ID:          p.ID,
		BrandID:     p.BrandID,
		Label:       p.Label,
		Description: p.Description,
		Tags:        p.Tags,
		CreatedAt:   p.CreatedAt,
	}
}

// ToPersonaResponses 转换画像列表
func ToPersonaResponses(list []*entity.Persona) []*LabelResponse {
	out := make([]*LabelResponse, 0, len(list))
	for _, p := range list {
		out = append(out, ToPersonaResponse(p))
	}
	return out
}

// ToEnvironmentResponse 转换场景响应
func ToEnvironmentResponse(e *entity.Environment) *LabelResponse {
	return &LabelResponse{
		ID:          e.ID,
		BrandID:     e.BrandID,
		Label:       e.Label,
		Description: e.Description,
		Tags:        e.Tags,
		CreatedAt:   e.CreatedAt,
	}
}

// ToEnvironmentResponses 转换场景列表
func ToEnvironmentResponses(list []*entity.Environment) []*LabelResponse {
	out := make([]*LabelResponse, 0, len(list))
	for _, e := range list {
		out = append(out, ToEnvironmentResponse(e))
	}
	return out
}
