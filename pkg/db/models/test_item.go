package models

import (
	"time"

	"github.com/google/uuid"
)

// TestItem is one entry on the neuropsychological test bookshelf.
type TestItem struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`

	Acronym      string   `gorm:"column:acronym;not null"`
	Name         string   `gorm:"column:name;not null"`
	Domains      string   `gorm:"column:domains"` // comma-separated cognitive domains
	Complete     bool     `gorm:"column:complete;not null;default:true"`
	Sheets       *int     `gorm:"column:sheets"`
	Manual       bool     `gorm:"column:manual;not null;default:false"`
	Booklet      bool     `gorm:"column:booklet;not null;default:false"`
	SheetPrice   *float64 `gorm:"column:sheet_price"`
	Computerized bool     `gorm:"column:computerized;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
