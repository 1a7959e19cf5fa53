package entitlement

import (
	"testing"
	"time"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
	"github.com/NeuroShelf10/Neuroestante/pkg/enums"
)

func TestHasAccess(t *testing.T) {
	now := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name             string
		status           enums.SubscriptionStatus
		trialEndAt       *time.Time
		currentPeriodEnd *time.Time
		want             bool
		wantReason       Reason
	}{
		{
			name:       "lifetime always grants",
			status:     enums.SubscriptionStatusLifetime,
			want:       true,
			wantReason: ReasonLifetime,
		},
		{
			name:             "lifetime ignores expired timestamps",
			status:           enums.SubscriptionStatusLifetime,
			trialEndAt:       &past,
			currentPeriodEnd: &past,
			want:             true,
			wantReason:       ReasonLifetime,
		},
		{
			name:             "active within period grants",
			status:           enums.SubscriptionStatusActive,
			currentPeriodEnd: &future,
			want:             true,
			wantReason:       ReasonActivePeriod,
		},
		{
			name:             "active past period denies",
			status:           enums.SubscriptionStatusActive,
			currentPeriodEnd: &past,
			want:             false,
			wantReason:       ReasonPeriodEnded,
		},
		{
			name:       "active without period end fails closed",
			status:     enums.SubscriptionStatusActive,
			want:       false,
			wantReason: ReasonNoTimestamp,
		},
		{
			name:       "trialing within window grants",
			status:     enums.SubscriptionStatusTrialing,
			trialEndAt: &future,
			want:       true,
			wantReason: ReasonTrialWindow,
		},
		{
			name:       "trialing past window denies",
			status:     enums.SubscriptionStatusTrialing,
			trialEndAt: &past,
			want:       false,
			wantReason: ReasonTrialEnded,
		},
		{
			name:       "trialing without trial end fails closed",
			status:     enums.SubscriptionStatusTrialing,
			want:       false,
			wantReason: ReasonNoTimestamp,
		},
		{
			name:             "trialing ignores period end",
			status:           enums.SubscriptionStatusTrialing,
			currentPeriodEnd: &future,
			want:             false,
			wantReason:       ReasonNoTimestamp,
		},
		{
			name:       "pending denies",
			status:     enums.SubscriptionStatusPending,
			want:       false,
			wantReason: ReasonStatusDenied,
		},
		{
			name:             "past_due denies even with future period",
			status:           enums.SubscriptionStatusPastDue,
			currentPeriodEnd: &future,
			want:             false,
			wantReason:       ReasonStatusDenied,
		},
		{
			name:       "canceled denies",
			status:     enums.SubscriptionStatusCanceled,
			want:       false,
			wantReason: ReasonStatusDenied,
		},
		{
			name:       "unknown status fails closed",
			status:     enums.SubscriptionStatus("mystery"),
			want:       false,
			wantReason: ReasonStatusDenied,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason := Evaluate(tc.status, tc.trialEndAt, tc.currentPeriodEnd, now)
			if got != tc.want {
				t.Fatalf("Evaluate() = %v, want %v", got, tc.want)
			}
			if reason != tc.wantReason {
				t.Fatalf("Evaluate() reason = %q, want %q", reason, tc.wantReason)
			}
			if HasAccess(tc.status, tc.trialEndAt, tc.currentPeriodEnd, now) != tc.want {
				t.Fatalf("HasAccess disagrees with Evaluate")
			}
		})
	}
}

func TestHasAccessBoundaryIsExclusive(t *testing.T) {
	now := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)

	// exactly at the boundary the window has ended
	if HasAccess(enums.SubscriptionStatusActive, nil, &now, now) {
		t.Fatal("access at exact period end should be denied")
	}
	if HasAccess(enums.SubscriptionStatusTrialing, &now, nil, now) {
		t.Fatal("access at exact trial end should be denied")
	}

	oneSecondLater := now.Add(time.Second)
	if !HasAccess(enums.SubscriptionStatusActive, nil, &oneSecondLater, now) {
		t.Fatal("access one second before period end should be granted")
	}
}

func TestAccountHasAccess(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)

	if AccountHasAccess(nil, now) {
		t.Fatal("nil account must never have access")
	}

	account := &models.Account{
		SubscriptionStatus: enums.SubscriptionStatusActive,
		CurrentPeriodEnd:   &future,
	}
	if !AccountHasAccess(account, now) {
		t.Fatal("active account within period should have access")
	}
}
