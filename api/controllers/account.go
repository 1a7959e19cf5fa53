package controllers

import (
	"net/http"

	"github.com/NeuroShelf10/Neuroestante/api/middleware"
	"github.com/NeuroShelf10/Neuroestante/api/responses"
	"github.com/NeuroShelf10/Neuroestante/api/validators"
	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
)

// AccountProfile returns the caller's profile and subscription fields.
func AccountProfile(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		result, err := svc.Profile(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AccountUpdateProfile changes the caller's name and license number.
func AccountUpdateProfile(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		var body accounts.UpdateProfileRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.UpdateProfile(r.Context(), middleware.UserIDFromContext(r.Context()), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

// AccountAcceptConsent records the one-time consent acceptance.
func AccountAcceptConsent(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		result, err := svc.AcceptConsent(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
