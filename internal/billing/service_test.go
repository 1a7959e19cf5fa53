package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
)

type stubAccountRepo struct {
	accounts.Repository
	account      *models.Account
	entitlements []accounts.EntitlementUpdate
}

func (s *stubAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if s.account == nil || s.account.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.account, nil
}

func (s *stubAccountRepo) UpdateEntitlement(ctx context.Context, id uuid.UUID, update accounts.EntitlementUpdate) error {
	s.entitlements = append(s.entitlements, update)
	return nil
}

type stubStripe struct {
	portal  *stripe.BillingPortalSession
	session *stripe.CheckoutSession
	sub     *stripe.Subscription

	portalParams *stripe.BillingPortalSessionParams
}

func (s *stubStripe) CreatePortalSession(ctx context.Context, params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error) {
	s.portalParams = params
	return s.portal, nil
}

func (s *stubStripe) GetCheckoutSession(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return s.session, nil
}

func (s *stubStripe) GetSubscription(ctx context.Context, id string, params *stripe.SubscriptionParams) (*stripe.Subscription, error) {
	return s.sub, nil
}

type stubNotifier struct {
	notified []uuid.UUID
}

func (s *stubNotifier) NotifyChanged(ctx context.Context, accountID uuid.UUID) {
	s.notified = append(s.notified, accountID)
}

func newTestService(t *testing.T, repo *stubAccountRepo, stripeStub *stubStripe, notifier *stubNotifier) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		AccountRepo:  repo,
		StripeClient: stripeStub,
		Notifier:     notifier,
		BaseURL:      "https://app.example.com",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestPortalRequiresBillingProfile(t *testing.T) {
	account := &models.Account{ID: uuid.New()}
	repo := &stubAccountRepo{account: account}
	svc := newTestService(t, repo, &stubStripe{}, nil)

	_, err := svc.Portal(context.Background(), account.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without customer, got %v", err)
	}
}

func TestPortalReturnsProviderURL(t *testing.T) {
	customerID := "cus_123"
	account := &models.Account{ID: uuid.New(), StripeCustomerID: &customerID}
	repo := &stubAccountRepo{account: account}
	stripeStub := &stubStripe{portal: &stripe.BillingPortalSession{URL: "https://billing.stripe.com/p/123"}}
	svc := newTestService(t, repo, stripeStub, nil)

	resp, err := svc.Portal(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("portal: %v", err)
	}
	if resp.URL != "https://billing.stripe.com/p/123" {
		t.Fatalf("unexpected url %q", resp.URL)
	}
	if got := *stripeStub.portalParams.Customer; got != customerID {
		t.Fatalf("portal customer = %q", got)
	}
}

func TestVerifySessionRejectsForeignSession(t *testing.T) {
	account := &models.Account{ID: uuid.New()}
	repo := &stubAccountRepo{account: account}
	stripeStub := &stubStripe{
		session: &stripe.CheckoutSession{Metadata: map[string]string{"user_id": uuid.NewString()}},
	}
	svc := newTestService(t, repo, stripeStub, nil)

	_, err := svc.VerifySession(context.Background(), account.ID, "cs_123")
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for mismatched metadata, got %v", err)
	}
}

func TestVerifySessionSyncsEntitlement(t *testing.T) {
	account := &models.Account{ID: uuid.New(), SubscriptionStatus: enums.SubscriptionStatusPending}
	repo := &stubAccountRepo{account: account}
	stripeStub := &stubStripe{
		session: &stripe.CheckoutSession{
			Subscription: &stripe.Subscription{ID: "sub_123"},
			Metadata: map[string]string{
				"user_id":     account.ID.String(),
				"plan":        "yearly",
				"coupon_code": "DESC10",
			},
		},
		sub: &stripe.Subscription{
			ID:     "sub_123",
			Status: stripe.SubscriptionStatusActive,
			Items: &stripe.SubscriptionItemList{
				Data: []*stripe.SubscriptionItem{{CurrentPeriodEnd: 1755264000}},
			},
		},
	}
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, stripeStub, notifier)

	resp, err := svc.VerifySession(context.Background(), account.ID, "cs_123")
	if err != nil {
		t.Fatalf("verify session: %v", err)
	}
	if !resp.Ok {
		t.Fatal("expected synced response")
	}
	if len(repo.entitlements) != 1 {
		t.Fatalf("expected one entitlement write, got %d", len(repo.entitlements))
	}
	update := repo.entitlements[0]
	if update.Status != enums.SubscriptionStatusActive {
		t.Fatalf("status = %q", update.Status)
	}
	if update.Plan == nil || *update.Plan != "yearly" {
		t.Fatal("expected plan from session metadata")
	}
	if update.LastCouponCode == nil || *update.LastCouponCode != "DESC10" {
		t.Fatal("expected coupon code recorded")
	}
	if len(notifier.notified) != 1 {
		t.Fatal("expected change notification")
	}
}

func TestVerifySessionWithoutSubscriptionIsNoop(t *testing.T) {
	account := &models.Account{ID: uuid.New()}
	repo := &stubAccountRepo{account: account}
	stripeStub := &stubStripe{
		session: &stripe.CheckoutSession{
			Metadata: map[string]string{"user_id": account.ID.String()},
		},
	}
	svc := newTestService(t, repo, stripeStub, nil)

	resp, err := svc.VerifySession(context.Background(), account.ID, "cs_123")
	if err != nil {
		t.Fatalf("verify session: %v", err)
	}
	if resp.Ok {
		t.Fatal("no subscription means nothing to sync")
	}
	if resp.Status != account.SubscriptionStatus {
		t.Fatalf("status = %q", resp.Status)
	}
	if len(repo.entitlements) != 0 {
		t.Fatal("expected no entitlement writes")
	}
}
