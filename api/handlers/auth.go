package handlers

import (
	"net/http"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Auth exported for testing purposes
type Auth struct {
	Gate Sessions
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler exchanges email and password for a bearer token
func (a Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	if body.Email == "" || body.Password == "" {
		api.WriteError(w, services.Validation("email and password are required"))
		return
	}
	session, err := a.Gate.Login(r.Context(), body.Email, body.Password)
	respond(w, http.StatusOK, session, err)
}

// RefreshHandler exchanges a valid token for a new one
func (a Auth) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	session, err := a.Gate.Refresh(r)
	respond(w, http.StatusOK, session, err)
}

// LogoutHandler revokes the bearer token
func (a Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	err := a.Gate.Logout(r)
	respond(w, http.StatusOK, map[string]string{"message": "logged out"}, err)
}

// VerifyHandler returns the caller behind a valid token
func (a Auth) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{"valid": true, "user": actorOf(r)})
}
