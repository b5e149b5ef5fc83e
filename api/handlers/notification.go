package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Notification exported for testing purposes
type Notification struct {
	Svc *services.NotificationService
}

type pushTokenBody struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// NotificationsHandler returns the caller's notifications; ?unread=true limits to unread ones
func (n Notification) NotificationsHandler(w http.ResponseWriter, r *http.Request) {
	unread := r.URL.Query().Get("unread") == "true"
	items, err := n.Svc.ListNotifications(r.Context(), actorOf(r), unread, getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// MarkReadHandler marks one notification read
func (n Notification) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	note, err := n.Svc.MarkRead(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, note, err)
}

// MarkAllReadHandler marks every notification of the caller read
func (n Notification) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	count, err := n.Svc.MarkAllRead(r.Context(), actorOf(r))
	respond(w, http.StatusOK, map[string]int64{"updated": count}, err)
}

// RegisterPushTokenHandler registers an Expo push token for the caller's device
func (n Notification) RegisterPushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var body pushTokenBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	token, err := n.Svc.RegisterPushToken(r.Context(), actorOf(r), body.Token, body.Platform)
	respond(w, http.StatusCreated, token, err)
}

// RemovePushTokenHandler unregisters a push token, for example on sign out
func (n Notification) RemovePushTokenHandler(w http.ResponseWriter, r *http.Request) {
	var body pushTokenBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	err := n.Svc.RemovePushToken(r.Context(), actorOf(r), body.Token)
	respond(w, http.StatusOK, map[string]string{"message": "push token removed"}, err)
}
