package controllers

import (
	"net/http"

	"github.com/NeuroShelf10/Neuroestante/api/middleware"
	"github.com/NeuroShelf10/Neuroestante/api/responses"
	"github.com/NeuroShelf10/Neuroestante/api/validators"
	"github.com/NeuroShelf10/Neuroestante/internal/billing"
	"github.com/NeuroShelf10/Neuroestante/internal/checkout"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
)

// CheckoutStart resolves the coupon and either grants access directly or
// returns a provider checkout URL.
func CheckoutStart(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var body checkout.StartRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Start(r.Context(), middleware.UserIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// BillingPortal opens a provider portal session for subscription management.
func BillingPortal(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		result, err := svc.Portal(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// BillingVerifySession confirms a completed checkout session and syncs the
// account's subscription fields from the provider.
func BillingVerifySession(svc billing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		sessionID, err := validators.RequireQueryString(r, "session_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VerifySession(r.Context(), middleware.UserIDFromContext(r.Context()), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
