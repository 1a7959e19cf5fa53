package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/internal/coupons"
	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

// Success and cancel landing paths appended to the configured base URL.
const (
	successPath = "/login?paid=1"
	cancelPath  = "/cadastro?canceled=1"
)

// StartRequest is the payload for beginning a subscription purchase.
type StartRequest struct {
	Plan       string `json:"plan" validate:"required"`
	CouponCode string `json:"coupon_code,omitempty"`
}

// Direct-grant modes reported to the client in place of a provider redirect.
const (
	ModeLifetime    = "lifetime"
	ModeTrialNoCard = "trial_no_card"
)

// StartResponse reports either a direct grant (Mode set) or a provider
// checkout redirect (URL set).
type StartResponse struct {
	Mode     string `json:"mode,omitempty"`
	Redirect string `json:"redirect,omitempty"`
	Message  string `json:"message,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Granted reports whether access was applied directly, without the provider.
func (r *StartResponse) Granted() bool {
	return r != nil && r.Mode != ""
}

// Service orchestrates the three redemption paths: direct lifetime grants,
// card-free trials, and provider checkout sessions.
type Service interface {
	Start(ctx context.Context, userID uuid.UUID, req StartRequest) (*StartResponse, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type priceResolver interface {
	PriceFor(plan enums.Plan) (string, error)
}

type changeNotifier interface {
	NotifyChanged(ctx context.Context, accountID uuid.UUID)
}

type service struct {
	db       txRunner
	accounts accounts.Repository
	coupons  coupons.Service
	stripe   StripeCheckoutClient
	prices   priceResolver
	notifier changeNotifier
	baseURL  string
	now      func() time.Time
}

// ServiceParams bundles the dependencies for the checkout service.
type ServiceParams struct {
	DB           txRunner
	AccountRepo  accounts.Repository
	Coupons      coupons.Service
	StripeClient StripeCheckoutClient
	Prices       priceResolver
	Notifier     changeNotifier
	BaseURL      string
}

// NewService constructs a checkout service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.AccountRepo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if params.Coupons == nil {
		return nil, fmt.Errorf("coupon service is required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client is required")
	}
	if params.Prices == nil {
		return nil, fmt.Errorf("price resolver is required")
	}
	return &service{
		db:       params.DB,
		accounts: params.AccountRepo,
		coupons:  params.Coupons,
		stripe:   params.StripeClient,
		prices:   params.Prices,
		notifier: params.Notifier,
		baseURL:  params.BaseURL,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Start(ctx context.Context, userID uuid.UUID, req StartRequest) (*StartResponse, error) {
	plan, err := enums.ParsePlan(req.Plan)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan")
	}

	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}

	var resolution *coupons.Resolution
	if req.CouponCode != "" {
		resolution, err = s.coupons.Resolve(ctx, req.CouponCode, plan)
		if err != nil {
			return nil, err
		}
	}

	if resolution != nil {
		switch resolution.Kind {
		case coupons.KindLifetime:
			return s.grantDirect(ctx, account, plan, resolution.Coupon, enums.SubscriptionStatusLifetime, nil, ModeLifetime)

		case coupons.KindTrialNoCard:
			trialEnd := s.now().Add(time.Duration(resolution.Coupon.TrialDays) * 24 * time.Hour)
			return s.grantDirect(ctx, account, plan, resolution.Coupon, enums.SubscriptionStatusTrialing, &trialEnd, ModeTrialNoCard)
		}
	}

	return s.startProviderCheckout(ctx, account, plan, resolution)
}

// grantDirect applies a coupon that bypasses the provider. Redemption and the
// entitlement write commit together; a half-applied grant is impossible.
func (s *service) grantDirect(ctx context.Context, account *models.Account, plan enums.Plan, coupon *models.Coupon, status enums.SubscriptionStatus, trialEndAt *time.Time, mode string) (*StartResponse, error) {
	planName := string(plan)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.coupons.WithTx(tx).Redeem(ctx, coupon.Code); err != nil {
			return err
		}
		return s.accounts.WithTx(tx).UpdateEntitlement(ctx, account.ID, accounts.EntitlementUpdate{
			Status:         status,
			TrialEndAt:     trialEndAt,
			Plan:           &planName,
			LastCouponCode: &coupon.Code,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply coupon grant")
	}

	if s.notifier != nil {
		s.notifier.NotifyChanged(ctx, account.ID)
	}

	message := "Acesso vitalício liberado."
	if mode == ModeTrialNoCard {
		message = fmt.Sprintf("Período de teste de %d dias liberado.", coupon.TrialDays)
	}
	return &StartResponse{
		Mode:     mode,
		Redirect: "/app",
		Message:  message,
	}, nil
}

func (s *service) startProviderCheckout(ctx context.Context, account *models.Account, plan enums.Plan, resolution *coupons.Resolution) (*StartResponse, error) {
	priceID, err := s.prices.PriceFor(plan)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfig, err, "resolve plan price")
	}

	customerID, err := s.ensureCustomer(ctx, account)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{
		"user_id": account.ID.String(),
		"plan":    string(plan),
	}
	couponCode := ""
	if resolution != nil {
		couponCode = resolution.Coupon.Code
		metadata["coupon_code"] = couponCode
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer: stripe.String(customerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(s.baseURL + successPath),
		CancelURL:  stripe.String(s.baseURL + cancelPath),
		Metadata:   metadata,
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if resolution != nil && resolution.Coupon.TrialDays > 0 {
		params.SubscriptionData.TrialPeriodDays = stripe.Int64(int64(resolution.Coupon.TrialDays))
	}

	session, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}
	if session.URL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "checkout session has no redirect url")
	}

	return &StartResponse{URL: session.URL}, nil
}

// ensureCustomer returns the stored provider customer ID, creating one on
// first use. When two checkouts race, the conditional write picks a single
// winner and the loser re-reads the stored ID.
func (s *service) ensureCustomer(ctx context.Context, account *models.Account) (string, error) {
	if account.StripeCustomerID != nil && *account.StripeCustomerID != "" {
		return *account.StripeCustomerID, nil
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(account.Email),
		Name:  stripe.String(account.Name),
		Metadata: map[string]string{
			"user_id": account.ID.String(),
		},
	}
	created, err := s.stripe.CreateCustomer(ctx, params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe customer")
	}

	won, err := s.accounts.SetStripeCustomerIDIfAbsent(ctx, account.ID, created.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store stripe customer id")
	}
	if won {
		return created.ID, nil
	}

	stored, err := s.accounts.FindByID(ctx, account.ID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload account")
	}
	if stored.StripeCustomerID == nil || *stored.StripeCustomerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "customer id missing after concurrent write")
	}
	return *stored.StripeCustomerID, nil
}
