package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/config"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
	"github.com/geijin5/apsar-emergency-api/services"
)

// TokenAuthenticator validates a raw bearer token
type TokenAuthenticator interface {
	AuthenticateToken(ctx context.Context, token string) (models.Actor, error)
}

// Socket exported for testing purposes
type Socket struct {
	Hub  *notify.Hub
	Gate TokenAuthenticator
}

// NotificationsSocketHandler upgrades to a websocket that receives the caller's notifications
// as they are delivered. Browsers cannot set headers on the handshake, so the token comes from
// ?token=.
func (s Socket) NotificationsSocketHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		config.ErrorStatus(string(services.KindUnauthorized), "token is required", http.StatusUnauthorized, w, nil)
		return
	}
	actor, err := s.Gate.AuthenticateToken(r.Context(), token)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	zap.S().Debugw("notification socket opened", "userId", actor.UserID)
	s.Hub.Serve(w, r, actor.UserID)
}
