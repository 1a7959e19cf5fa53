package entitlement

import (
	"time"

	"github.com/NeuroShelf10/Neuroestante/pkg/db/models"
)

// State is the routing outcome for a request hitting a gated area.
type State string

const (
	StateLoading           State = "loading"
	StateUnauthenticated   State = "unauthenticated"
	StateNeedsConsent      State = "needs_consent"
	StateNeedsSubscription State = "needs_subscription"
	StateGranted           State = "granted"
)

// Destination routes shown to clients for each state. Kept stable so the
// frontend can redirect without its own decision logic.
const (
	RouteLogin        = "/login"
	RouteConsent      = "/consentimento"
	RouteSubscription = "/assinatura"
	RouteApp          = "/app"
)

// Decision is the full guard verdict for one account at one instant.
type Decision struct {
	State     State  `json:"state"`
	Redirect  string `json:"redirect"`
	HasAccess bool   `json:"has_access"`
	Reason    Reason `json:"reason,omitempty"`
}

// Input carries everything the guard reducer needs for one evaluation.
// Resolved is false while authentication or the account record is still
// being fetched; the reducer then reports Loading and routes nowhere.
type Input struct {
	Authenticated     bool
	ConsentAcceptedAt *time.Time
	Account           *models.Account
	Path              string
	Resolved          bool
	Now               time.Time
}

// Guard is the routing state machine over access decisions.
type Guard struct{}

// Evaluate runs the gate chain in order: resolution, authentication,
// consent, then subscription. The first failing gate wins; later gates are
// not consulted. A redirect is only issued when the caller is not already
// on the destination; a granted caller sitting on the login, consent, or
// root path is sent into the protected area.
func (Guard) Evaluate(in Input) Decision {
	if !in.Resolved {
		return Decision{State: StateLoading}
	}
	if !in.Authenticated {
		return Decision{State: StateUnauthenticated, Redirect: redirectUnless(in.Path, RouteLogin)}
	}

	consentAt := in.ConsentAcceptedAt
	if consentAt == nil && in.Account != nil {
		consentAt = in.Account.ConsentAcceptedAt
	}
	if consentAt == nil {
		return Decision{State: StateNeedsConsent, Redirect: redirectUnless(in.Path, RouteConsent)}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	var (
		granted bool
		reason  Reason
	)
	if in.Account != nil {
		granted, reason = Evaluate(in.Account.SubscriptionStatus, in.Account.TrialEndAt, in.Account.CurrentPeriodEnd, now)
	}
	if !granted {
		return Decision{State: StateNeedsSubscription, Redirect: redirectUnless(in.Path, RouteSubscription), Reason: reason}
	}

	decision := Decision{State: StateGranted, HasAccess: true, Reason: reason}
	switch in.Path {
	case "", "/", RouteLogin, RouteConsent:
		decision.Redirect = RouteApp
	}
	return decision
}

func redirectUnless(path, destination string) string {
	if path == destination {
		return ""
	}
	return destination
}

// Decide is the server-side shorthand: the request authenticated and the
// account row already loaded, with no path to preserve. A nil account means
// the session resolved to nobody and fails closed to login.
func Decide(account *models.Account, now time.Time) Decision {
	return Guard{}.Evaluate(Input{
		Authenticated: account != nil,
		Account:       account,
		Resolved:      true,
		Now:           now,
	})
}
