package checkout

import (
	"context"
	"strings"
	"testing"
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

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubAccountRepo struct {
	accounts.Repository
	account      *models.Account
	entitlements []accounts.EntitlementUpdate
	customerSet  []string
	setWins      bool
}

func (s *stubAccountRepo) WithTx(tx *gorm.DB) accounts.Repository {
	return s
}

func (s *stubAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if s.account == nil || s.account.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.account, nil
}

func (s *stubAccountRepo) SetStripeCustomerIDIfAbsent(ctx context.Context, id uuid.UUID, customerID string) (bool, error) {
	s.customerSet = append(s.customerSet, customerID)
	if s.setWins {
		s.account.StripeCustomerID = &customerID
	}
	return s.setWins, nil
}

func (s *stubAccountRepo) UpdateEntitlement(ctx context.Context, id uuid.UUID, update accounts.EntitlementUpdate) error {
	s.entitlements = append(s.entitlements, update)
	return nil
}

type stubCoupons struct {
	resolution *coupons.Resolution
	resolveErr error
	redeemed   []string
	redeemErr  error
}

func (s *stubCoupons) Resolve(ctx context.Context, code string, plan enums.Plan) (*coupons.Resolution, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return s.resolution, nil
}

func (s *stubCoupons) Redeem(ctx context.Context, code string) error {
	if s.redeemErr != nil {
		return s.redeemErr
	}
	s.redeemed = append(s.redeemed, code)
	return nil
}

func (s *stubCoupons) WithTx(tx *gorm.DB) coupons.Service {
	return s
}

type stubStripe struct {
	customer      *stripe.Customer
	session       *stripe.CheckoutSession
	sessionParams *stripe.CheckoutSessionParams
}

func (s *stubStripe) CreateCustomer(ctx context.Context, params *stripe.CustomerParams) (*stripe.Customer, error) {
	return s.customer, nil
}

func (s *stubStripe) CreateSession(ctx context.Context, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.sessionParams = params
	return s.session, nil
}

type stubPrices struct {
	prices map[enums.Plan]string
}

func (s *stubPrices) PriceFor(plan enums.Plan) (string, error) {
	price, ok := s.prices[plan]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeConfig, "price not configured")
	}
	return price, nil
}

type stubNotifier struct {
	notified []uuid.UUID
}

func (s *stubNotifier) NotifyChanged(ctx context.Context, accountID uuid.UUID) {
	s.notified = append(s.notified, accountID)
}

func newTestAccount() *models.Account {
	return &models.Account{
		ID:                 uuid.New(),
		Email:              "ana@example.com",
		Name:               "Ana",
		SubscriptionStatus: enums.SubscriptionStatusPending,
	}
}

func newTestService(t *testing.T, repo *stubAccountRepo, couponSvc *stubCoupons, stripeStub *stubStripe, notifier *stubNotifier) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		DB:           stubTxRunner{},
		AccountRepo:  repo,
		Coupons:      couponSvc,
		StripeClient: stripeStub,
		Prices:       &stubPrices{prices: map[enums.Plan]string{enums.PlanMonthly: "price_month"}},
		Notifier:     notifier,
		BaseURL:      "https://app.example.com",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestStartLifetimeCouponGrantsDirectly(t *testing.T) {
	repo := &stubAccountRepo{account: newTestAccount(), setWins: true}
	couponSvc := &stubCoupons{
		resolution: &coupons.Resolution{
			Kind:   coupons.KindLifetime,
			Coupon: &models.Coupon{Code: "VITALICIO", Active: true, Lifetime: true},
		},
	}
	notifier := &stubNotifier{}
	svc := newTestService(t, repo, couponSvc, &stubStripe{}, notifier)

	resp, err := svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "monthly", CouponCode: "VITALICIO"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !resp.Granted() || resp.URL != "" {
		t.Fatalf("expected direct grant, got %+v", resp)
	}
	if resp.Mode != ModeLifetime || resp.Redirect != "/app" {
		t.Fatalf("unexpected grant response %+v", resp)
	}
	if len(couponSvc.redeemed) != 1 {
		t.Fatalf("expected one redemption, got %d", len(couponSvc.redeemed))
	}
	if len(repo.entitlements) != 1 {
		t.Fatalf("expected one entitlement write, got %d", len(repo.entitlements))
	}
	update := repo.entitlements[0]
	if update.Status != enums.SubscriptionStatusLifetime {
		t.Fatalf("expected lifetime status, got %q", update.Status)
	}
	if update.TrialEndAt != nil {
		t.Fatal("lifetime grant must not set a trial window")
	}
	if update.LastCouponCode == nil || *update.LastCouponCode != "VITALICIO" {
		t.Fatal("expected coupon code recorded on account")
	}
	if len(notifier.notified) != 1 {
		t.Fatal("expected entitlement change notification")
	}
}

func TestStartTrialNoCardSetsTrialWindow(t *testing.T) {
	repo := &stubAccountRepo{account: newTestAccount(), setWins: true}
	couponSvc := &stubCoupons{
		resolution: &coupons.Resolution{
			Kind:   coupons.KindTrialNoCard,
			Coupon: &models.Coupon{Code: "TRIAL30", Active: true, TrialDays: 30},
		},
	}
	svc := newTestService(t, repo, couponSvc, &stubStripe{}, &stubNotifier{})

	before := time.Now().UTC()
	resp, err := svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "monthly", CouponCode: "TRIAL30"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !resp.Granted() {
		t.Fatal("expected direct grant")
	}
	if resp.Mode != ModeTrialNoCard {
		t.Fatalf("mode = %q", resp.Mode)
	}

	update := repo.entitlements[0]
	if update.Status != enums.SubscriptionStatusTrialing {
		t.Fatalf("expected trialing status, got %q", update.Status)
	}
	if update.TrialEndAt == nil {
		t.Fatal("expected trial window to be set")
	}
	want := before.Add(30 * 24 * time.Hour)
	if update.TrialEndAt.Before(want.Add(-time.Minute)) || update.TrialEndAt.After(want.Add(time.Minute)) {
		t.Fatalf("trial end %v too far from expected %v", update.TrialEndAt, want)
	}
}

func TestStartRedeemFailureAbortsGrant(t *testing.T) {
	repo := &stubAccountRepo{account: newTestAccount(), setWins: true}
	couponSvc := &stubCoupons{
		resolution: &coupons.Resolution{
			Kind:   coupons.KindLifetime,
			Coupon: &models.Coupon{Code: "VITALICIO", Active: true, Lifetime: true},
		},
		redeemErr: pkgerrors.New(pkgerrors.CodeExhausted, "coupon redemption limit reached"),
	}
	svc := newTestService(t, repo, couponSvc, &stubStripe{}, &stubNotifier{})

	_, err := svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "monthly", CouponCode: "VITALICIO"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	if len(repo.entitlements) != 0 {
		t.Fatal("entitlement must not be written when redemption fails")
	}
}

func TestStartCheckoutCreatesSessionWithMetadata(t *testing.T) {
	repo := &stubAccountRepo{account: newTestAccount(), setWins: true}
	couponSvc := &stubCoupons{
		resolution: &coupons.Resolution{
			Kind:   coupons.KindCheckout,
			Coupon: &models.Coupon{Code: "DESC10", Active: true, TrialDays: 7, RequireCard: true},
		},
	}
	stripeStub := &stubStripe{
		customer: &stripe.Customer{ID: "cus_123"},
		session:  &stripe.CheckoutSession{URL: "https://checkout.stripe.com/pay/cs_123"},
	}
	svc := newTestService(t, repo, couponSvc, stripeStub, &stubNotifier{})

	resp, err := svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "monthly", CouponCode: "DESC10"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if resp.Granted() {
		t.Fatal("checkout path must not grant directly")
	}
	if resp.URL != "https://checkout.stripe.com/pay/cs_123" {
		t.Fatalf("unexpected redirect url %q", resp.URL)
	}
	if len(couponSvc.redeemed) != 0 {
		t.Fatal("checkout coupons are redeemed on webhook confirmation, not at session start")
	}

	params := stripeStub.sessionParams
	if params == nil {
		t.Fatal("expected session params captured")
	}
	if got := params.Metadata["user_id"]; got != repo.account.ID.String() {
		t.Fatalf("metadata user_id = %q", got)
	}
	if got := params.Metadata["coupon_code"]; got != "DESC10" {
		t.Fatalf("metadata coupon_code = %q", got)
	}
	if got := params.Metadata["plan"]; got != "monthly" {
		t.Fatalf("metadata plan = %q", got)
	}
	if params.SubscriptionData == nil || params.SubscriptionData.TrialPeriodDays == nil || *params.SubscriptionData.TrialPeriodDays != 7 {
		t.Fatal("expected trial days carried into subscription data")
	}
	if !strings.HasSuffix(*params.SuccessURL, "/login?paid=1") {
		t.Fatalf("success url = %q", *params.SuccessURL)
	}
	if !strings.HasSuffix(*params.CancelURL, "/cadastro?canceled=1") {
		t.Fatalf("cancel url = %q", *params.CancelURL)
	}
}

func TestStartCreatesCustomerOnce(t *testing.T) {
	repo := &stubAccountRepo{account: newTestAccount(), setWins: true}
	stripeStub := &stubStripe{
		customer: &stripe.Customer{ID: "cus_123"},
		session:  &stripe.CheckoutSession{URL: "https://checkout.stripe.com/pay/cs_123"},
	}
	svc := newTestService(t, repo, &stubCoupons{}, stripeStub, &stubNotifier{})

	if _, err := svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "monthly"}); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if len(repo.customerSet) != 1 {
		t.Fatalf("expected one customer write, got %d", len(repo.customerSet))
	}

	// second checkout reuses the stored customer
	if _, err := svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "monthly"}); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if len(repo.customerSet) != 1 {
		t.Fatalf("expected no further customer writes, got %d", len(repo.customerSet))
	}
}

func TestStartRejectsInvalidPlanAndMissingPrice(t *testing.T) {
	repo := &stubAccountRepo{account: newTestAccount(), setWins: true}
	stripeStub := &stubStripe{customer: &stripe.Customer{ID: "cus_123"}}
	svc := newTestService(t, repo, &stubCoupons{}, stripeStub, &stubNotifier{})

	_, err := svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "weekly"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for bad plan, got %v", err)
	}

	// yearly has no price configured in the test fixture
	_, err = svc.Start(context.Background(), repo.account.ID, StartRequest{Plan: "yearly"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConfig) {
		t.Fatalf("expected config error for missing price, got %v", err)
	}
}
