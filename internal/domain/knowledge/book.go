package knowledge

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Book is the canonical bibliographic record. Every identifier column is
// optional and unique when present.
type Book struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ISBN13        *string `gorm:"column:isbn13;uniqueIndex:idx_book_isbn13" json:"isbn13,omitempty"`
	ISBN10        *string `gorm:"column:isbn10;uniqueIndex:idx_book_isbn10" json:"isbn10,omitempty"`
	ASIN          *string `gorm:"column:asin;uniqueIndex:idx_book_asin" json:"asin,omitempty"`
	GoogleBooksID *string `gorm:"column:google_books_id;uniqueIndex:idx_book_google_books_id" json:"google_books_id,omitempty"`
	OpenLibraryID *string `gorm:"column:open_library_id;uniqueIndex:idx_book_open_library_id" json:"open_library_id,omitempty"`

	Title         string         `gorm:"column:title;not null;default:''" json:"title"`
	Subtitle      string         `gorm:"column:subtitle" json:"subtitle,omitempty"`
	Authors       datatypes.JSON `gorm:"column:authors;type:jsonb" json:"authors,omitempty"`
	Publisher     string         `gorm:"column:publisher" json:"publisher,omitempty"`
	PublishedDate string         `gorm:"column:published_date" json:"published_date,omitempty"`
	PageCount     int            `gorm:"column:page_count;not null;default:0" json:"page_count,omitempty"`
	CoverURL      string         `gorm:"column:cover_url" json:"cover_url,omitempty"`
	Subjects      datatypes.JSON `gorm:"column:subjects;type:jsonb" json:"subjects,omitempty"`
	Language      string         `gorm:"column:language" json:"language,omitempty"`
	Dimensions    datatypes.JSON `gorm:"column:dimensions;type:jsonb" json:"dimensions,omitempty"`
	Synopsis      string         `gorm:"column:synopsis;type:text" json:"synopsis,omitempty"`
	// Other editions' ISBNs as reported upstream. Informational only.
	OtherISBNs    datatypes.JSON `gorm:"column:other_isbns;type:jsonb" json:"other_isbns,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Book) TableName() string { return "book" }

func (b *Book) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BookIdentifierColumns lists the identifier columns in lookup priority order.
var BookIdentifierColumns = []string{"isbn13", "isbn10", "asin", "google_books_id", "open_library_id"}

// BookDescriptiveColumns are overwritten (last write wins) on upsert.
var BookDescriptiveColumns = []string{
	"title",
	"subtitle",
	"authors",
	"publisher",
	"published_date",
	"page_count",
	"cover_url",
	"subjects",
	"language",
	"dimensions",
	"synopsis",
	"other_isbns",
	"updated_at",
}

// Identifiers returns the non-empty identifier values keyed by column.
func (b *Book) Identifiers() map[string]string {
	out := map[string]string{}
	if b == nil {
		return out
	}
	for col, v := range map[string]*string{
		"isbn13":          b.ISBN13,
		"isbn10":          b.ISBN10,
		"asin":            b.ASIN,
		"google_books_id": b.GoogleBooksID,
		"open_library_id": b.OpenLibraryID,
	} {
		if v != nil && *v != "" {
			out[col] = *v
		}
	}
	return out
}

// PrimaryIdentifier returns the highest-priority identifier column and value.
func (b *Book) PrimaryIdentifier() (string, string, bool) {
	ids := b.Identifiers()
	for _, col := range BookIdentifierColumns {
		if v, ok := ids[col]; ok {
			return col, v, true
		}
	}
	return "", "", false
}
