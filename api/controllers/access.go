package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/NeuroShelf10/Neuroestante/api/middleware"
	"github.com/NeuroShelf10/Neuroestante/api/responses"
	"github.com/NeuroShelf10/Neuroestante/internal/accounts"
	"github.com/NeuroShelf10/Neuroestante/internal/entitlement"
	pkgerrors "github.com/NeuroShelf10/Neuroestante/pkg/errors"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
)

const accessStreamHeartbeat = 25 * time.Second

// AccessDecision returns the routing decision for the caller's account.
func AccessDecision(repo accounts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account repository unavailable"))
			return
		}

		decision, err := decideForRequest(r, repo)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, decision)
	}
}

// AccessStream pushes decision updates over server-sent events whenever the
// account's subscription state changes.
func AccessStream(repo accounts.Repository, watcher *entitlement.Watcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil || watcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access stream unavailable"))
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "streaming unsupported"))
			return
		}

		ctx := r.Context()
		userID := middleware.UserIDFromContext(ctx)

		changes, err := watcher.Watch(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribe to account changes"))
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		if err := writeDecisionEvent(w, flusher, r, repo); err != nil {
			return
		}

		heartbeat := time.NewTicker(accessStreamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case _, open := <-changes:
				if !open {
					return
				}
				if err := writeDecisionEvent(w, flusher, r, repo); err != nil {
					return
				}
			}
		}
	}
}

func writeDecisionEvent(w http.ResponseWriter, flusher http.Flusher, r *http.Request, repo accounts.Repository) error {
	decision, err := decideForRequest(r, repo)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: access\ndata: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// decideForRequest evaluates the guard for the caller, honoring an optional
// `path` query parameter so clients get routing relative to where the user
// currently is.
func decideForRequest(r *http.Request, repo accounts.Repository) (entitlement.Decision, error) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	guard := entitlement.Guard{}
	path := r.URL.Query().Get("path")

	account, err := repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return guard.Evaluate(entitlement.Input{Resolved: true, Path: path, Now: time.Now()}), nil
		}
		return entitlement.Decision{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account")
	}
	return guard.Evaluate(entitlement.Input{
		Authenticated: true,
		Account:       account,
		Path:          path,
		Resolved:      true,
		Now:           time.Now(),
	}), nil
}
