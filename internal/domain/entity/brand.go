// Package entity 定义领域实体
package entity

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Brand 品牌实体
type Brand struct {
	ID             string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name           string    `json:"name" gorm:"type:varchar(255);not null"`
	Domain         string    `json:"domain,omitempty" gorm:"type:varchar(255)"`
	Description    string    `json:"description,omitempty" gorm:"type:text"`
	URLSlug        string    `json:"url_slug" gorm:"column:url_slug;type:varchar(255);uniqueIndex;not null"`
	ContentSources []string  `json:"content_sources" gorm:"type:text;serializer:json"`
	ProductImages  []string  `json:"product_images" gorm:"type:text;serializer:json"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Brand) TableName() string {
	return "brands"
}

// NewBrand 创建新品牌，slug 由名称派生，冲突后缀由调用方处理
func NewBrand(name, domain, description string) *Brand {
	return &Brand{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(name),
		Domain:         strings.TrimSpace(domain),
		Description:    strings.TrimSpace(description),
		URLSlug:        Slugify(name),
		ContentSources: []string{},
		ProductImages:  []string{},
	}
}

// FirstProductImage 返回首张产品图，没有时返回空串
func (b *Brand) FirstProductImage() string {
	for _, img := range b.ProductImages {
		if s := strings.TrimSpace(img); s != "" {
			return s
		}
	}
	return ""
}

var slugSanitizePattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify 生成 URL 安全的 slug
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = slugSanitizePattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "brand"
	}
	return s
}

// Persona 客户画像
type Persona struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	BrandID     string    `json:"brand_id" gorm:"type:varchar(36);index;not null"`
	Label       string    `json:"label" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Tags        []string  `json:"tags" gorm:"type:text;serializer:json"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Persona) TableName() string {
	return "personas"
}

// NewPersona 创建客户画像
func NewPersona(brandID, label, description string, tags []string) *Persona {
	return &Persona{
		ID:          uuid.NewString(),
		BrandID:     brandID,
		Label:       strings.TrimSpace(label),
		Description: strings.TrimSpace(description),
		Tags:        normalizeTags(tags),
	}
}

// Environment 产品使用场景
type Environment struct {
	ID          string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	BrandID     string    `json:"brand_id" gorm:"type:varchar(36);index;not null"`
	Label       string    `json:"label" gorm:"type:varchar(255);not null"`
	Description string    `json:"description,omitempty" gorm:"type:text"`
	Tags        []string  `json:"tags" gorm:"type:text;serializer:json"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (Environment) TableName() string {
	return "environments"
}

// NewEnvironment 创建使用场景
func NewEnvironment(brandID, label, description string, tags []string) *Environment {
	return &Environment{
		ID:          uuid.NewString(),
		BrandID:     brandID,
		Label:       strings.TrimSpace(label),
		Description: strings.TrimSpace(description),
		Tags:        normalizeTags(tags),
	}
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
