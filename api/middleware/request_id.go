package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
)

const (
	requestIDHeader = "X-Request-Id"

	// Inbound ids longer than this are replaced so a caller cannot
	// stuff arbitrary payloads into every log line of the request.
	maxRequestIDLen = 64
)

// RequestID echoes a caller-supplied X-Request-Id or generates one, and
// stamps it onto the context logger for the rest of the chain.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" || len(reqID) > maxRequestIDLen {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
