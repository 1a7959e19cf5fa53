package models

import (
	"time"

	"github.com/google/uuid"
)

// Bookmark is a saved external link on the user's links page.
type Bookmark struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`

	Title string  `gorm:"column:title;not null"`
	URL   string  `gorm:"column:url;not null"`
	Notes *string `gorm:"column:notes"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
