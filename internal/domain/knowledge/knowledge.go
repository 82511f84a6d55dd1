package knowledge

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind discriminates the loosely-typed knowledge node.
type Kind string

const (
	KindBook       Kind = "book"
	KindNote       Kind = "note"
	KindCollection Kind = "collection"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBook, KindNote, KindCollection:
		return true
	}
	return false
}

// NeedsResolution reports whether nodes of this kind are bound to a Book.
func (k Kind) NeedsResolution() bool { return k == KindBook }

// QueryKind selects how a node's query is resolved into a Book.
type QueryKind string

const (
	QueryKindISBN   QueryKind = "isbn"
	QueryKindSearch QueryKind = "search"
)

func (q QueryKind) Valid() bool {
	return q == QueryKindISBN || q == QueryKindSearch
}

type Knowledge struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;column:user_id;not null;index" json:"user_id"`

	Kind        Kind   `gorm:"column:kind;not null;index" json:"kind"`
	Title       string `gorm:"column:title;not null;default:''" json:"title"`
	Description string `gorm:"column:description;type:text" json:"description,omitempty"`
	Content     string `gorm:"column:content;type:text" json:"content,omitempty"`

	// Unique per owner when non-null (partial index, see db.EnsureKnowledgeIndexes).
	BookID *uuid.UUID `gorm:"type:uuid;column:book_id;index" json:"book_id,omitempty"`
	Book   *Book      `gorm:"foreignKey:BookID;references:ID" json:"book,omitempty"`

	Query     *string    `gorm:"column:query" json:"query,omitempty"`
	QueryKind *QueryKind `gorm:"column:query_kind" json:"query_kind,omitempty"`

	// Unique per owner when non-null.
	Slug        *string    `gorm:"column:slug" json:"slug,omitempty"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`

	IsOrigin  bool `gorm:"column:is_origin;not null;default:false" json:"is_origin"`
	IsPrivate bool `gorm:"column:is_private;not null;default:false" json:"is_private"`

	ResolutionError *string `gorm:"column:resolution_error;type:text" json:"resolution_error,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Knowledge) TableName() string { return "knowledge" }

func (k *Knowledge) BeforeCreate(_ *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

// IsResolved reports whether the node is already bound to a Book.
func (k *Knowledge) IsResolved() bool {
	return k != nil && k.BookID != nil && *k.BookID != uuid.Nil
}

// HasSlug reports whether the node has been published.
func (k *Knowledge) HasSlug() bool {
	return k != nil && k.Slug != nil && strings.TrimSpace(*k.Slug) != ""
}

// VisibleTo applies the private-node rule: only the owner sees a private node.
func (k *Knowledge) VisibleTo(actor *uuid.UUID) bool {
	if k == nil {
		return false
	}
	if !k.IsPrivate {
		return true
	}
	return actor != nil && *actor == k.UserID
}
