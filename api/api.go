// Package api holds the HTTP middleware and the response envelope shared by the handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/config"
	"github.com/geijin5/apsar-emergency-api/identity"
	"github.com/geijin5/apsar-emergency-api/services"
)

// wireNotFound keeps the 404 kind the mobile client already parses
const wireNotFound = "Not Found"

var kindStatus = map[services.Kind]int{
	services.KindUnauthorized:      http.StatusUnauthorized,
	services.KindForbidden:         http.StatusForbidden,
	services.KindNotFound:          http.StatusNotFound,
	services.KindInvalidState:      http.StatusConflict,
	services.KindInvalidTransition: http.StatusConflict,
	services.KindConflict:          http.StatusConflict,
	services.KindCallOutClosed:     http.StatusConflict,
	services.KindIncidentClosed:    http.StatusConflict,
	services.KindMissionClosed:     http.StatusConflict,
	services.KindValidation:        http.StatusBadRequest,
	services.KindInternal:          http.StatusInternalServerError,
}

// StatusOf returns the HTTP status a service error kind is reported with
func StatusOf(kind services.Kind) int {
	if s, ok := kindStatus[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// WriteError writes the error envelope for err
func WriteError(w http.ResponseWriter, err error) {
	if errors.Is(err, identity.ErrUnauthorized) || errors.Is(err, identity.ErrInvalidCredentials) {
		config.ErrorStatus(string(services.KindUnauthorized), err.Error(), http.StatusUnauthorized, w, nil)
		return
	}

	var se *services.Error
	if !errors.As(err, &se) {
		config.ErrorStatus(string(services.KindInternal), "unexpected error", http.StatusInternalServerError, w, err)
		return
	}
	kind := string(se.Kind)
	if se.Kind == services.KindNotFound {
		kind = wireNotFound
	}
	config.ErrorStatus(kind, se.Message, StatusOf(se.Kind), w, se.Err)
}

// WriteJSON marshals v and writes it with status
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		config.ErrorStatus(string(services.KindInternal), "failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		zap.S().Debugw("failed to write response", "error", err)
	}
}
