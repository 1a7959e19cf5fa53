package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/internal/entitlement"
	stripewebhook "github.com/NeuroShelf10/Neuroestante/internal/webhooks/stripe"
	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

const portalReturnPath = "/app"

// PortalResponse carries the provider-hosted management URL.
type PortalResponse struct {
	URL string `json:"url"`
}

// VerifySessionResponse reports the reconciled entitlement state after the
// user returns from checkout.
type VerifySessionResponse struct {
	Ok     bool                     `json:"ok"`
	Active bool                     `json:"active"`
	Status enums.SubscriptionStatus `json:"status"`
}

// Service handles post-checkout reconciliation and the billing portal.
type Service interface {
	Portal(ctx context.Context, userID uuid.UUID) (*PortalResponse, error)
	VerifySession(ctx context.Context, userID uuid.UUID, sessionID string) (*VerifySessionResponse, error)
}

type changeNotifier interface {
	NotifyChanged(ctx context.Context, accountID uuid.UUID)
}

type service struct {
	accounts accounts.Repository
	stripe   StripeBillingClient
	notifier changeNotifier
	baseURL  string
}

// ServiceParams bundles the dependencies for the billing service.
type ServiceParams struct {
	AccountRepo  accounts.Repository
	StripeClient StripeBillingClient
	Notifier     changeNotifier
	BaseURL      string
}

// NewService constructs a billing service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.AccountRepo == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client is required")
	}
	return &service{
		accounts: params.AccountRepo,
		stripe:   params.StripeClient,
		notifier: params.Notifier,
		baseURL:  params.BaseURL,
	}, nil
}

// Portal opens a provider-hosted management session for the account's
// customer. Accounts that never went through checkout have nothing to manage.
func (s *service) Portal(ctx context.Context, userID uuid.UUID) (*PortalResponse, error) {
	account, err := s.loadAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account.StripeCustomerID == nil || *account.StripeCustomerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account has no billing profile")
	}

	session, err := s.stripe.CreatePortalSession(ctx, &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*account.StripeCustomerID),
		ReturnURL: stripe.String(s.baseURL + portalReturnPath),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create portal session")
	}
	return &PortalResponse{URL: session.URL}, nil
}

// VerifySession reconciles entitlement immediately after the user returns
// from checkout, without waiting for the webhook to arrive.
func (s *service) VerifySession(ctx context.Context, userID uuid.UUID, sessionID string) (*VerifySessionResponse, error) {
	account, err := s.loadAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	session, err := s.stripe.GetCheckoutSession(ctx, sessionID, &stripe.CheckoutSessionParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch checkout session")
	}
	if session.Metadata["user_id"] != userID.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "session belongs to another account")
	}

	if session.Subscription == nil || session.Subscription.ID == "" {
		return &VerifySessionResponse{
			Ok:     false,
			Active: entitlement.AccountHasAccess(account, time.Now()),
			Status: account.SubscriptionStatus,
		}, nil
	}

	sub, err := s.stripe.GetSubscription(ctx, session.Subscription.ID, &stripe.SubscriptionParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch subscription")
	}

	trialEnd, periodEnd := stripewebhook.WindowsFromSubscription(sub)
	update := accounts.EntitlementUpdate{
		Status:               stripewebhook.MapSubscriptionStatus(sub.Status),
		TrialEndAt:           trialEnd,
		CurrentPeriodEnd:     periodEnd,
		Plan:                 account.Plan,
		StripeSubscriptionID: &sub.ID,
	}
	if plan := session.Metadata["plan"]; plan != "" {
		update.Plan = &plan
	}
	if coupon := session.Metadata["coupon_code"]; coupon != "" {
		update.LastCouponCode = &coupon
	}

	if err := s.accounts.UpdateEntitlement(ctx, account.ID, update); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update entitlement")
	}

	if s.notifier != nil {
		s.notifier.NotifyChanged(ctx, account.ID)
	}

	refreshed, err := s.loadAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &VerifySessionResponse{
		Ok:     true,
		Active: entitlement.AccountHasAccess(refreshed, time.Now()),
		Status: refreshed.SubscriptionStatus,
	}, nil
}

func (s *service) loadAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
	}
	return account, nil
}
