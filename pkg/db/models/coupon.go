package models

import "time"

// Coupon is an administratively created redemption code. Codes are stored
// uppercase; redemption is the only mutation path.
type Coupon struct {
	Code           string  `gorm:"primaryKey"`
	Active         bool    `gorm:"column:active;not null;default:false"`
	Lifetime       bool    `gorm:"column:lifetime;not null;default:false"`
	TrialDays      int     `gorm:"column:trial_days;not null;default:0"`
	RequireCard    bool    `gorm:"column:require_card;not null;default:true"`
	RestrictTo     *string `gorm:"column:restrict_to"`
	MaxRedemptions *int    `gorm:"column:max_redemptions"`
	RedeemedCount  int     `gorm:"column:redeemed_count;not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Exhausted reports whether the redemption limit has been reached.
func (c *Coupon) Exhausted() bool {
	return c.MaxRedemptions != nil && c.RedeemedCount >= *c.MaxRedemptions
}
