package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
)

// Account is the canonical per-user record: identity, consent, and the
// entitlement fields mutated by checkout and webhook processing. Field and
// column names are part of the durable compatibility surface.
type Account struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email         string    `gorm:"type:text;not null;uniqueIndex"`
	Name          string    `gorm:"column:name;not null"`
	LicenseNumber *string   `gorm:"column:license_number"`
	PasswordHash  string    `gorm:"column:password_hash;not null"`

	// ConsentAcceptedAt is set exactly once and never cleared.
	ConsentAcceptedAt *time.Time `gorm:"column:consent_accepted_at"`

	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;not null;default:'pending'"`
	TrialEndAt         *time.Time               `gorm:"column:trial_end_at"`
	CurrentPeriodEnd   *time.Time               `gorm:"column:current_period_end"`
	Plan               *string                  `gorm:"column:plan"`

	StripeCustomerID     *string `gorm:"column:stripe_customer_id;uniqueIndex"`
	StripeSubscriptionID *string `gorm:"column:stripe_subscription_id"`
	LastCouponCode       *string `gorm:"column:last_coupon_code"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
