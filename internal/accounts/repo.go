package accounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
)

// EntitlementUpdate carries the subscription fields mutated by billing flows.
// Nil pointers clear the corresponding column so stale windows never linger.
type EntitlementUpdate struct {
	Status               enums.SubscriptionStatus
	TrialEndAt           *time.Time
	CurrentPeriodEnd     *time.Time
	Plan                 *string
	StripeSubscriptionID *string
	LastCouponCode       *string
}

// Repository handles account persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Account, error)
	AcceptConsent(ctx context.Context, id uuid.UUID, at time.Time) error
	SetStripeCustomerIDIfAbsent(ctx context.Context, id uuid.UUID, customerID string) (bool, error)
	UpdateEntitlement(ctx context.Context, id uuid.UUID, update EntitlementUpdate) error
	UpdateProfile(ctx context.Context, account *models.Account) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an account repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByStripeCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "stripe_customer_id = ?", customerID).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// AcceptConsent stamps the consent timestamp once. Re-running is a no-op so
// the original acceptance time is never rewritten.
func (r *repository) AcceptConsent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND consent_accepted_at IS NULL", id).
		Update("consent_accepted_at", at).Error
}

// SetStripeCustomerIDIfAbsent writes the customer ID only when none is set,
// reporting whether this call won the write. Concurrent checkouts that both
// created a customer resolve to a single stored ID.
func (r *repository) SetStripeCustomerIDIfAbsent(ctx context.Context, id uuid.UUID, customerID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND stripe_customer_id IS NULL", id).
		Update("stripe_customer_id", customerID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateEntitlement overwrites the subscription window columns. Nil window
// timestamps clear their columns so an expired window never lingers; the
// Stripe subscription ID and coupon code are only written when provided.
func (r *repository) UpdateEntitlement(ctx context.Context, id uuid.UUID, update EntitlementUpdate) error {
	values := map[string]any{
		"subscription_status": update.Status,
		"trial_end_at":        update.TrialEndAt,
		"current_period_end":  update.CurrentPeriodEnd,
		"plan":                update.Plan,
	}
	if update.StripeSubscriptionID != nil {
		values["stripe_subscription_id"] = *update.StripeSubscriptionID
	}
	if update.LastCouponCode != nil {
		values["last_coupon_code"] = *update.LastCouponCode
	}
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) UpdateProfile(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"name":           account.Name,
			"license_number": account.LicenseNumber,
		}).Error
}

func (r *repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}
