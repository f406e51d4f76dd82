package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CardStatus 卡片状态
type CardStatus string

const (
	CardStatusDraft     CardStatus = "draft"
	CardStatusPublished CardStatus = "published"
	CardStatusArchived  CardStatus = "archived"
)

// Valid 状态是否合法
func (s CardStatus) Valid() bool {
	switch s {
	case CardStatusDraft, CardStatusPublished, CardStatusArchived:
		return true
	}
	return false
}

// Card 问答训练卡片
type Card struct {
	ID            string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	BrandID       string     `json:"brand_id" gorm:"type:varchar(36);index;not null"`
	InfluencerID  string     `json:"influencer_id" gorm:"type:varchar(36);index;not null"`
	PersonaID     *string    `json:"persona_id,omitempty" gorm:"type:varchar(36)"`
	EnvironmentID *string    `json:"environment_id,omitempty" gorm:"type:varchar(36)"`
	Query         string     `json:"query" gorm:"type:text;not null"`
	Response      string     `json:"response" gorm:"type:text;not null"`
	ImageURL      string     `json:"image_url" gorm:"type:text"`
	ImageBrief    string     `json:"image_brief,omitempty" gorm:"type:text"`
	Status        CardStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	ViewCount     int        `json:"view_count" gorm:"not null;default:0"`
	ShareCount    int        `json:"share_count" gorm:"not null;default:0"`
	CreatedAt     time.Time  `json:"created_at" gorm:"autoCreateTime"`
	PublishedAt   *time.Time `json:"published_at,omitempty"`
}

// TableName 指定表名
func (Card) TableName() string {
	return "cards"
}

// NewDraftCard 创建草稿卡片
func NewDraftCard(brandID, influencerID, personaID, environmentID string) *Card {
	c := &Card{
		ID:           uuid.NewString(),
		BrandID:      brandID,
		InfluencerID: influencerID,
		Status:       CardStatusDraft,
	}
	if personaID != "" {
		c.PersonaID = &personaID
	}
	if environmentID != "" {
		c.EnvironmentID = &environmentID
	}
	return c
}

// Publish 发布卡片
func (c *Card) Publish(at time.Time) {
	c.Status = CardStatusPublished
	c.PublishedAt = &at
}

// Unpublish 回到草稿
func (c *Card) Unpublish() {
	c.Status = CardStatusDraft
	c.PublishedAt = nil
}

// NormalizeQuery 归一化问题文本，用于精确去重
func NormalizeQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.Join(strings.Fields(q), " ")
	return strings.TrimRight(q, "?!.。？！ ")
}
