package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// User exported for testing purposes
type User struct {
	Svc *services.UserService
}

type profileBody struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Unit  *string `json:"unit"`
}

// MeHandler returns the caller's user record
func (u User) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := u.Svc.GetMe(r.Context(), actorOf(r))
	respond(w, http.StatusOK, user, err)
}

// UpdateMeHandler changes the caller's profile
func (u User) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	var body profileBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	user, err := u.Svc.UpdateMe(r.Context(), actorOf(r), databases.UserProfile{Name: body.Name, Phone: body.Phone, Unit: body.Unit})
	respond(w, http.StatusOK, user, err)
}

// UsersHandler returns a page of users filtered by ?role=, ?unit= and ?active=true
func (u User) UsersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := databases.UserFilter{Unit: q.Get("unit"), ActiveOnly: q.Get("active") == "true"}
	if role := q.Get("role"); role != "" {
		parsed, ok := models.ParseRole(role)
		if !ok {
			api.WriteError(w, services.Validation("role must be one of member, officer, admin"))
			return
		}
		filter.MinRole = parsed
	}
	items, err := u.Svc.ListUsers(r.Context(), actorOf(r), filter, getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateUserHandler provisions a user
func (u User) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var in services.UserInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	user, err := u.Svc.CreateUser(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, user, err)
}

// SetRoleHandler changes a user's role
func (u User) SetRoleHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	user, err := u.Svc.SetRole(r.Context(), actorOf(r), mux.Vars(r)["id"], body.Role)
	respond(w, http.StatusOK, user, err)
}

// DeactivateHandler disables a user's account
func (u User) DeactivateHandler(w http.ResponseWriter, r *http.Request) {
	user, err := u.Svc.Deactivate(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, user, err)
}
