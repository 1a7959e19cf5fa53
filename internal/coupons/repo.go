package coupons

import (
	"context"

	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
)

// Repository handles coupon persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByCode(ctx context.Context, code string) (*models.Coupon, error)
	Redeem(ctx context.Context, code string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a coupon repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	if err := r.db.WithContext(ctx).First(&coupon, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &coupon, nil
}

// Redeem increments the redemption counter with a guarded single-statement
// update. Under concurrency exactly one caller wins the final slot; the
// losers see zero affected rows.
func (r *repository) Redeem(ctx context.Context, code string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Coupon{}).
		Where("code = ? AND active = ? AND (max_redemptions IS NULL OR redeemed_count < max_redemptions)", code, true).
		Update("redeemed_count", gorm.Expr("redeemed_count + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
