package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Incident exported for testing purposes
type Incident struct {
	Svc *services.IncidentService
}

// IncidentsHandler returns a page of incidents, optionally filtered by ?status=
func (i Incident) IncidentsHandler(w http.ResponseWriter, r *http.Request) {
	filter := databases.IncidentFilter{Status: models.IncidentStatus(r.URL.Query().Get("status"))}
	items, err := i.Svc.ListIncidents(r.Context(), actorOf(r), filter, getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateIncidentHandler opens an incident
func (i Incident) CreateIncidentHandler(w http.ResponseWriter, r *http.Request) {
	var in services.IncidentInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	inc, err := i.Svc.CreateIncident(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, inc, err)
}

// IncidentByIDHandler returns one incident
func (i Incident) IncidentByIDHandler(w http.ResponseWriter, r *http.Request) {
	inc, err := i.Svc.GetIncident(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, inc, err)
}

// ResolveIncidentHandler resolves an incident
func (i Incident) ResolveIncidentHandler(w http.ResponseWriter, r *http.Request) {
	inc, err := i.Svc.ResolveIncident(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, inc, err)
}

// CancelIncidentHandler cancels an incident
func (i Incident) CancelIncidentHandler(w http.ResponseWriter, r *http.Request) {
	inc, err := i.Svc.CancelIncident(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, inc, err)
}

// ResourcesHandler returns the resources assigned to an incident
func (i Incident) ResourcesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := i.Svc.ListResources(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, list(items), err)
}

// AssignResourceHandler assigns a resource to an incident
func (i Incident) AssignResourceHandler(w http.ResponseWriter, r *http.Request) {
	var in services.ResourceInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	res, err := i.Svc.AssignResource(r.Context(), actorOf(r), mux.Vars(r)["id"], in)
	respond(w, http.StatusCreated, res, err)
}

// ResourceStatusHandler moves a resource along assigned, en_route, on_scene
func (i Incident) ResourceStatusHandler(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	vars := mux.Vars(r)
	res, err := i.Svc.TransitionResourceStatus(r.Context(), actorOf(r), vars["id"], vars["resourceId"], models.ResourceStatus(body.Status))
	respond(w, http.StatusOK, res, err)
}
