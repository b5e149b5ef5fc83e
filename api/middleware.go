package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/config"
	"github.com/geijin5/apsar-emergency-api/identity"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Auth rejects requests without a valid bearer token and stores the caller's actor in the
// request context
func Auth(gate identity.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := gate.Authenticate(r)
			if err != nil {
				zap.S().Debugw("unauthorized", "url", r.URL.Path)
				config.ErrorStatus(string(services.KindUnauthorized), "missing or invalid token", http.StatusUnauthorized, w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// RequireRole lets through callers whose role is at least min. It must run after Auth.
func RequireRole(min models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := ActorFrom(r.Context())
			if !ok {
				config.ErrorStatus(string(services.KindUnauthorized), "missing or invalid token", http.StatusUnauthorized, w, nil)
				return
			}
			if !actor.HasRole(min) {
				config.ErrorStatus(string(services.KindForbidden), "requires role "+string(min), http.StatusForbidden, w, nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
