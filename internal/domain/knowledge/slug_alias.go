package knowledge

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SlugAlias keeps a retired slug pointing at the node that absorbed it.
type SlugAlias struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	UserID uuid.UUID `gorm:"type:uuid;column:user_id;not null;uniqueIndex:idx_knowledge_slug_alias_user_slug,priority:1" json:"user_id"`
	Slug   string    `gorm:"column:slug;not null;uniqueIndex:idx_knowledge_slug_alias_user_slug,priority:2" json:"slug"`

	KnowledgeID uuid.UUID  `gorm:"type:uuid;column:knowledge_id;not null;index" json:"knowledge_id"`
	Knowledge   *Knowledge `gorm:"constraint:OnDelete:CASCADE;foreignKey:KnowledgeID;references:ID" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (SlugAlias) TableName() string { return "knowledge_slug_alias" }

func (a *SlugAlias) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
