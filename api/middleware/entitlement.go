package middleware

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/api/responses"
	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/internal/entitlement"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
)

// Entitlement loads the caller's account and blocks everything short of a
// granted decision. Downstream handlers can read the account from the context.
func Entitlement(repo accounts.Repository, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			account, err := repo.FindByID(ctx, userID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "account not found"))
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account"))
				return
			}

			decision := entitlement.Decide(account, time.Now())
			if decision.State != entitlement.StateGranted {
				responses.WriteError(ctx, logg, w,
					pkgerrors.New(pkgerrors.CodeForbidden, "subscription required").WithDetails(decision))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(ctx, account)))
		})
	}
}
