package entitlement

import (
	"time"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
)

// Reason explains an access decision in machine-readable form.
type Reason string

const (
	ReasonLifetime     Reason = "lifetime"
	ReasonActivePeriod Reason = "active_period"
	ReasonTrialWindow  Reason = "trial_window"
	ReasonPeriodEnded  Reason = "period_ended"
	ReasonTrialEnded   Reason = "trial_ended"
	ReasonNoTimestamp  Reason = "missing_timestamp"
	ReasonStatusDenied Reason = "status_denied"
)

// HasAccess decides whether a subscription state grants access at the given
// instant. Lifetime grants unconditionally. Active and trialing grant only
// while their respective window timestamp lies in the future; a missing
// timestamp denies. Every other status denies.
func HasAccess(status enums.SubscriptionStatus, trialEndAt, currentPeriodEnd *time.Time, now time.Time) bool {
	granted, _ := Evaluate(status, trialEndAt, currentPeriodEnd, now)
	return granted
}

// Evaluate is HasAccess plus the reason behind the decision.
func Evaluate(status enums.SubscriptionStatus, trialEndAt, currentPeriodEnd *time.Time, now time.Time) (bool, Reason) {
	switch status {
	case enums.SubscriptionStatusLifetime:
		return true, ReasonLifetime

	case enums.SubscriptionStatusActive:
		if currentPeriodEnd == nil {
			return false, ReasonNoTimestamp
		}
		if now.Before(*currentPeriodEnd) {
			return true, ReasonActivePeriod
		}
		return false, ReasonPeriodEnded

	case enums.SubscriptionStatusTrialing:
		if trialEndAt == nil {
			return false, ReasonNoTimestamp
		}
		if now.Before(*trialEndAt) {
			return true, ReasonTrialWindow
		}
		return false, ReasonTrialEnded

	default:
		return false, ReasonStatusDenied
	}
}

// AccountHasAccess applies the access rule to a stored account.
func AccountHasAccess(account *models.Account, now time.Time) bool {
	if account == nil {
		return false
	}
	return HasAccess(account.SubscriptionStatus, account.TrialEndAt, account.CurrentPeriodEnd, now)
}
