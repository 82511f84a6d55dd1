package knowledge

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConnectionKind types a directed edge between two knowledge nodes.
type ConnectionKind string

const (
	ConnectionReference        ConnectionKind = "reference"
	ConnectionComment          ConnectionKind = "comment"
	ConnectionPrimaryReference ConnectionKind = "primary_reference"
)

func (k ConnectionKind) Valid() bool {
	switch k {
	case ConnectionReference, ConnectionComment, ConnectionPrimaryReference:
		return true
	}
	return false
}

type Connection struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	SourceID uuid.UUID  `gorm:"type:uuid;column:source_id;not null;index:idx_connection_edge,unique,priority:1" json:"source_id"`
	Source   *Knowledge `gorm:"constraint:OnDelete:CASCADE;foreignKey:SourceID;references:ID" json:"-"`

	TargetID uuid.UUID  `gorm:"type:uuid;column:target_id;not null;index:idx_connection_edge,unique,priority:2" json:"target_id"`
	Target   *Knowledge `gorm:"constraint:OnDelete:CASCADE;foreignKey:TargetID;references:ID" json:"-"`

	Kind ConnectionKind `gorm:"column:kind;not null;index:idx_connection_edge,unique,priority:3" json:"kind"`

	SortIndex  int    `gorm:"column:sort_index;not null;default:0" json:"sort_index"`
	Annotation string `gorm:"column:annotation;type:text" json:"annotation,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Connection) TableName() string { return "connection" }

func (c *Connection) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
