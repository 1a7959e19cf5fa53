package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

// Kind is the redemption path a coupon resolves to.
type Kind string

const (
	// KindLifetime grants permanent access directly, no provider involved.
	KindLifetime Kind = "lifetime"
	// KindTrialNoCard grants a local trial window without collecting a card.
	KindTrialNoCard Kind = "trial_no_card"
	// KindCheckout goes through the payment provider, carrying any trial days.
	KindCheckout Kind = "checkout"
)

// Resolution is the outcome of validating and classifying a coupon code.
type Resolution struct {
	Kind   Kind
	Coupon *models.Coupon
}

// Service validates, classifies, and redeems coupon codes.
type Service interface {
	Resolve(ctx context.Context, code string, plan enums.Plan) (*Resolution, error)
	Redeem(ctx context.Context, code string) error
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo Repository
}

// NewService constructs a coupon service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

// Resolve normalizes the code, checks every gate in order, and classifies
// the redemption path. Gate order is stable: existence, active, redemption
// limit, then plan restriction, so an exhausted coupon always reports
// exhaustion even when it is also plan-locked.
func (s *service) Resolve(ctx context.Context, code string, plan enums.Plan) (*Resolution, error) {
	normalized := Normalize(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid coupon code")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup coupon")
	}

	if !coupon.Active {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not active")
	}
	if coupon.Exhausted() {
		return nil, pkgerrors.New(pkgerrors.CodeExhausted, "coupon redemption limit reached")
	}
	if coupon.RestrictTo != nil && *coupon.RestrictTo != string(plan) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon is not valid for this plan")
	}

	return &Resolution{Kind: classify(coupon), Coupon: coupon}, nil
}

// Redeem consumes one redemption slot. Losing the race for the last slot
// surfaces as an exhausted error.
func (s *service) Redeem(ctx context.Context, code string) error {
	won, err := s.repo.Redeem(ctx, Normalize(code))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "redeem coupon")
	}
	if !won {
		return pkgerrors.New(pkgerrors.CodeExhausted, "coupon redemption limit reached")
	}
	return nil
}

// Normalize folds a user-entered code into canonical stored form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func classify(coupon *models.Coupon) Kind {
	switch {
	case coupon.Lifetime:
		return KindLifetime
	case coupon.TrialDays > 0 && !coupon.RequireCard:
		return KindTrialNoCard
	default:
		return KindCheckout
	}
}
