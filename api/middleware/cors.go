package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets browser dashboards on the listed origins read the health and
// metrics endpoints. The ops surface is read-only, so only GET is allowed.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}).Handler
}
