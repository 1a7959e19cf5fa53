package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000", // local dev
	"https://neuroestante.com.br",
	"https://www.neuroestante.com.br",
}

// CORS returns middleware that applies the API's allowed origin policy.
// The configured frontend base URL is appended when it is not already listed.
func CORS(baseURL string) func(http.Handler) http.Handler {
	origins := defaultCORSOrigins
	if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" && !contains(origins, trimmed) {
		origins = append(append([]string{}, origins...), trimmed)
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
