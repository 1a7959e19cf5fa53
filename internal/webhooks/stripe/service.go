package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/internal/coupons"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type changeNotifier interface {
	NotifyChanged(ctx context.Context, accountID uuid.UUID)
}

// Outcome describes what Handle did with an event.
type Outcome struct {
	Duplicate bool
	Handled   bool
	Skipped   bool
}

// ServiceParams bundles the dependencies for the webhook service.
type ServiceParams struct {
	AccountRepo       accounts.Repository
	Coupons           coupons.Service
	Ledger            Repository
	StripeClient      StripeSubscriptionClient
	TransactionRunner txRunner
	Notifier          changeNotifier
	Logger            *logger.Logger
}

// Service applies provider events to account entitlement state. Every
// mutation commits atomically with the ledger insert for its event ID, so a
// redelivered event either replays nothing or nothing happened the first time.
type Service struct {
	accounts accounts.Repository
	coupons  coupons.Service
	ledger   Repository
	stripe   StripeSubscriptionClient
	txRunner txRunner
	notifier changeNotifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.AccountRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account repo required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupon service required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "webhook ledger required")
	}
	if params.StripeClient == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &Service{
		accounts: params.AccountRepo,
		coupons:  params.Coupons,
		ledger:   params.Ledger,
		stripe:   params.StripeClient,
		txRunner: params.TransactionRunner,
		notifier: params.Notifier,
		logg:     params.Logger,
	}, nil
}

// Handle dispatches one verified event. Unrecognized types are acknowledged
// without ledger writes so the provider stops retrying them.
func (s *Service) Handle(ctx context.Context, event *stripe.Event) (*Outcome, error) {
	if event == nil || event.Data == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	if s.logg != nil {
		debugCtx := s.logg.WithFields(ctx, map[string]any{
			"event_id":   event.ID,
			"event_type": string(event.Type),
		})
		s.logg.Debug(debugCtx, "webhook.event.received")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.handleCheckoutCompleted(ctx, event, &session)

	case stripe.EventTypeCustomerSubscriptionCreated,
		stripe.EventTypeCustomerSubscriptionUpdated,
		stripe.EventTypeCustomerSubscriptionDeleted:
		var stripeSub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode subscription event")
		}
		deleted := event.Type == stripe.EventTypeCustomerSubscriptionDeleted
		return s.syncSubscription(ctx, event, &stripeSub, deleted, "")

	case stripe.EventTypeInvoicePaid, stripe.EventTypeInvoicePaymentFailed:
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode invoice event")
		}
		failed := event.Type == stripe.EventTypeInvoicePaymentFailed
		return s.handleInvoice(ctx, event, &invoice, failed)

	default:
		return &Outcome{}, nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripe.Event, session *stripe.CheckoutSession) (*Outcome, error) {
	if session.Subscription == nil || session.Subscription.ID == "" {
		// one-off payments carry no subscription; nothing to sync
		return &Outcome{}, nil
	}

	stripeSub, err := s.stripe.Get(ctx, session.Subscription.ID, &stripe.SubscriptionParams{})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch stripe subscription")
	}
	return s.syncSubscription(ctx, event, stripeSub, false, session.Metadata["coupon_code"])
}

// handleInvoice applies billing outcomes straight from the invoice payload:
// a paid invoice reactivates the account and advances its billing window, a
// failed payment parks it in past_due until the provider resolves it. The
// stored trial and plan columns are carried over untouched.
func (s *Service) handleInvoice(ctx context.Context, event *stripe.Event, invoice *stripe.Invoice, failed bool) (*Outcome, error) {
	outcome := &Outcome{}
	var accountID uuid.UUID

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		first, err := s.ledger.WithTx(tx).Record(ctx, event.ID, string(event.Type))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record webhook event")
		}
		if !first {
			outcome.Duplicate = true
			return nil
		}

		if invoice.Customer == nil || invoice.Customer.ID == "" {
			outcome.Skipped = true
			s.logSkip(ctx, event, "invoice carries no customer reference")
			return nil
		}

		repo := s.accounts.WithTx(tx)
		stored, err := repo.FindByStripeCustomerID(ctx, invoice.Customer.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				outcome.Skipped = true
				s.logSkip(ctx, event, "no account for customer "+invoice.Customer.ID)
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account by customer")
		}
		accountID = stored.ID

		update := accounts.EntitlementUpdate{
			Status:           enums.SubscriptionStatusActive,
			TrialEndAt:       stored.TrialEndAt,
			CurrentPeriodEnd: periodEndFromInvoice(invoice),
			Plan:             stored.Plan,
		}
		if update.CurrentPeriodEnd == nil {
			update.CurrentPeriodEnd = stored.CurrentPeriodEnd
		}
		if failed {
			update.Status = enums.SubscriptionStatusPastDue
			update.CurrentPeriodEnd = stored.CurrentPeriodEnd
		}

		if err := repo.UpdateEntitlement(ctx, stored.ID, update); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update entitlement")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.Duplicate && !outcome.Skipped {
		outcome.Handled = true
		if s.notifier != nil && accountID != uuid.Nil {
			s.notifier.NotifyChanged(ctx, accountID)
		}
	}
	return outcome, nil
}

// syncSubscription rewrites the owning account's entitlement columns from
// the provider's view of the subscription, consuming a coupon slot when
// checkout carried one.
func (s *Service) syncSubscription(ctx context.Context, event *stripe.Event, stripeSub *stripe.Subscription, deleted bool, couponCode string) (*Outcome, error) {
	if stripeSub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}

	outcome := &Outcome{}
	var accountID uuid.UUID

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		first, err := s.ledger.WithTx(tx).Record(ctx, event.ID, string(event.Type))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record webhook event")
		}
		if !first {
			outcome.Duplicate = true
			return nil
		}

		repo := s.accounts.WithTx(tx)
		account, err := s.resolveAccount(ctx, repo, stripeSub)
		if err != nil {
			// The account may not exist yet or the event arrived out of
			// order. Keep the ledger entry and ack so the provider stops
			// redelivering.
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				outcome.Skipped = true
				s.logSkip(ctx, event, "no account for subscription "+stripeSub.ID)
				return nil
			}
			return err
		}
		accountID = account.ID

		update := accounts.EntitlementUpdate{
			Status:               MapSubscriptionStatus(stripeSub.Status),
			TrialEndAt:           trialEndFromSubscription(stripeSub),
			CurrentPeriodEnd:     periodEndFromSubscription(stripeSub),
			Plan:                 account.Plan,
			StripeSubscriptionID: &stripeSub.ID,
		}
		if deleted {
			update.Status = enums.SubscriptionStatusCanceled
			update.TrialEndAt = nil
			update.CurrentPeriodEnd = nil
		}
		if plan := stripeSub.Metadata["plan"]; plan != "" {
			update.Plan = &plan
		}
		if couponCode != "" {
			update.LastCouponCode = &couponCode
		}

		if err := repo.UpdateEntitlement(ctx, account.ID, update); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update entitlement")
		}

		if couponCode != "" {
			if err := s.coupons.WithTx(tx).Redeem(ctx, couponCode); err != nil {
				// payment already settled; an exhausted counter must not void it
				if pkgerrors.IsCode(err, pkgerrors.CodeExhausted) {
					if s.logg != nil {
						s.logg.Warn(ctx, "coupon exhausted at webhook time, keeping paid grant: "+couponCode)
					}
					return nil
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !outcome.Duplicate && !outcome.Skipped {
		outcome.Handled = true
		if s.notifier != nil && accountID != uuid.Nil {
			s.notifier.NotifyChanged(ctx, accountID)
		}
	}
	return outcome, nil
}

func (s *Service) logSkip(ctx context.Context, event *stripe.Event, reason string) {
	if s.logg == nil {
		return
	}
	skipCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": string(event.Type),
	})
	s.logg.Warn(skipCtx, "webhook.event.skipped: "+reason)
}

// resolveAccount finds the owner via our own metadata first, falling back to
// the stored provider customer ID.
func (s *Service) resolveAccount(ctx context.Context, repo accounts.Repository, stripeSub *stripe.Subscription) (*account, error) {
	if raw := stripeSub.Metadata["user_id"]; raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed user_id metadata")
		}
		stored, err := repo.FindByID(ctx, id)
		if err == nil {
			return &account{ID: stored.ID, Plan: stored.Plan}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account")
		}
	}

	if stripeSub.Customer != nil && stripeSub.Customer.ID != "" {
		stored, err := repo.FindByStripeCustomerID(ctx, stripeSub.Customer.ID)
		if err == nil {
			return &account{ID: stored.ID, Plan: stored.Plan}, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup account by customer")
		}
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no account for subscription")
}

type account struct {
	ID   uuid.UUID
	Plan *string
}
