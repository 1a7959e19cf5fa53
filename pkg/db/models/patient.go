package models

import (
	"time"

	"github.com/google/uuid"
)

// Patient is one entry on the professional's roster. Names are kept alongside
// initials so lists can render the abbreviated form only.
type Patient struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID uuid.UUID `gorm:"column:account_id;type:uuid;not null;index"`

	Name       string  `gorm:"column:name;not null"`
	Initials   string  `gorm:"column:initials;not null"`
	Age        *int    `gorm:"column:age"`
	Hypothesis *string `gorm:"column:hypothesis"`

	ProtocolEntries []ProtocolEntry `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`
	SessionDays     []SessionDay    `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ProtocolEntry is one checklist row linking a patient to a bookshelf test.
type ProtocolEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PatientID  uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	TestItemID uuid.UUID `gorm:"column:test_item_id;type:uuid;not null"`
	Done       bool      `gorm:"column:done;not null;default:false"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SessionDay is one dated entry in a patient's session log.
type SessionDay struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PatientID   uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	Date        string    `gorm:"column:date;not null"` // ISO date, e.g. 2025-08-12
	Description string    `gorm:"column:description;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
