package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InfluencerStatus 网红形象生成状态
type InfluencerStatus string

const (
	InfluencerStatusPending InfluencerStatus = "pending"
	InfluencerStatusReady   InfluencerStatus = "ready"
	InfluencerStatusFailed  InfluencerStatus = "failed"
)

// Influencer 合成代言人
type Influencer struct {
	ID              string           `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name            string           `json:"name" gorm:"type:varchar(255);not null"`
	Bio             string           `json:"bio,omitempty" gorm:"type:text"`
	Domain          string           `json:"domain,omitempty" gorm:"type:varchar(255)"`
	ImageURL        string           `json:"image_url" gorm:"type:text"`
	ActionImageURLs []string         `json:"action_image_urls" gorm:"type:text;serializer:json"`
	Enabled         bool             `json:"enabled" gorm:"not null"`
	Status          InfluencerStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	ErrorMessage    string           `json:"error_message,omitempty" gorm:"type:text"`
	CreatedAt       time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Influencer) TableName() string {
	return "influencers"
}

// NewInfluencer 创建待生成形象的网红
func NewInfluencer(name, domain, bio string) *Influencer {
	return &Influencer{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(name),
		Domain:          strings.TrimSpace(domain),
		Bio:             strings.TrimSpace(bio),
		ActionImageURLs: []string{},
		Enabled:         true,
		Status:          InfluencerStatusPending,
	}
}

// IsReady 形象是否已就绪
func (i *Influencer) IsReady() bool {
	return i.Status == InfluencerStatusReady
}

// Usable 是否参与卡片生成
func (i *Influencer) Usable() bool {
	return i.Enabled && i.IsReady()
}

// MarkReady 形象生成完成
func (i *Influencer) MarkReady(headshot string, actions []string) {
	i.Status = InfluencerStatusReady
	i.ImageURL = headshot
	i.ActionImageURLs = actions
	i.ErrorMessage = ""
}

// MarkFailed 形象生成失败，保留记录便于重试
func (i *Influencer) MarkFailed(errMsg string) {
	i.Status = InfluencerStatusFailed
	i.ImageURL = ""
	i.ErrorMessage = errMsg
}

// MarkPending 重新进入生成流程
func (i *Influencer) MarkPending() {
	i.Status = InfluencerStatusPending
	i.ImageURL = ""
	i.ErrorMessage = ""
}
