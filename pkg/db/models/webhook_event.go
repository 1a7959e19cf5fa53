package models

import "time"

// WebhookEvent is the append-only ledger of processed provider event IDs.
// Presence of an ID means the event must never be processed again.
type WebhookEvent struct {
	EventID     string    `gorm:"primaryKey"`
	Type        string    `gorm:"column:type;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime"`
}
