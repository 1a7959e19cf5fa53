package stripewebhook

import (
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
)

// MapSubscriptionStatus folds the provider's status vocabulary into the
// application's. Unknown statuses map to active so a new provider status
// never locks out a paying user.
func MapSubscriptionStatus(status stripe.SubscriptionStatus) enums.SubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return enums.SubscriptionStatusTrialing
	case stripe.SubscriptionStatusActive:
		return enums.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusPaused:
		return enums.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncomplete, stripe.SubscriptionStatusIncompleteExpired:
		return enums.SubscriptionStatusCanceled
	default:
		return enums.SubscriptionStatusActive
	}
}

// WindowsFromSubscription extracts the trial and billing window ends used by
// the entitlement columns.
func WindowsFromSubscription(sub *stripe.Subscription) (trialEnd, periodEnd *time.Time) {
	return trialEndFromSubscription(sub), periodEndFromSubscription(sub)
}

// periodEndFromSubscription pulls the billing window end off the first item.
func periodEndFromSubscription(sub *stripe.Subscription) *time.Time {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return toTimePtr(sub.Items.Data[0].CurrentPeriodEnd)
}

// periodEndFromInvoice pulls the billing window end off the first invoice
// line, falling back to the invoice-level period end.
func periodEndFromInvoice(inv *stripe.Invoice) *time.Time {
	if inv == nil {
		return nil
	}
	if inv.Lines != nil && len(inv.Lines.Data) > 0 {
		if line := inv.Lines.Data[0]; line != nil && line.Period != nil && line.Period.End != 0 {
			return toTimePtr(line.Period.End)
		}
	}
	return toTimePtr(inv.PeriodEnd)
}

func trialEndFromSubscription(sub *stripe.Subscription) *time.Time {
	if sub == nil {
		return nil
	}
	return toTimePtr(sub.TrialEnd)
}

func toTimePtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
