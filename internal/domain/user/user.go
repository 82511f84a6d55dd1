package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the owning actor. Handle doubles as the public namespace for
// published knowledge (/u/:handle/:slug).
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Handle      string    `gorm:"uniqueIndex;not null;column:handle" json:"handle"`
	DisplayName string    `gorm:"column:display_name" json:"display_name,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }

func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
