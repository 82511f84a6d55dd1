package knowledge

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MediaAttachment struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	KnowledgeID uuid.UUID  `gorm:"type:uuid;column:knowledge_id;not null;index" json:"knowledge_id"`
	Knowledge   *Knowledge `gorm:"constraint:OnDelete:CASCADE;foreignKey:KnowledgeID;references:ID" json:"-"`

	Kind      string `gorm:"column:kind;not null;default:'image'" json:"kind"`
	URL       string `gorm:"column:url;not null" json:"url"`
	MimeType  string `gorm:"column:mime_type" json:"mime_type,omitempty"`
	Width     int    `gorm:"column:width;not null;default:0" json:"width,omitempty"`
	Height    int    `gorm:"column:height;not null;default:0" json:"height,omitempty"`
	SortIndex int    `gorm:"column:sort_index;not null;default:0" json:"sort_index"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (MediaAttachment) TableName() string { return "media_attachment" }

func (m *MediaAttachment) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
