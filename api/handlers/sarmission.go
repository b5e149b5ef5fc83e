package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Mission exported for testing purposes
type Mission struct {
	Svc *services.MissionService
}

// MissionsHandler returns a page of missions filtered by ?status= and ?type=
func (m Mission) MissionsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := databases.MissionFilter{
		Status: models.MissionStatus(q.Get("status")),
		Type:   models.MissionType(q.Get("type")),
	}
	items, err := m.Svc.ListSARMissions(r.Context(), actorOf(r), filter, getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// PublicMissionsHandler returns active missions marked public, without authentication
func (m Mission) PublicMissionsHandler(w http.ResponseWriter, r *http.Request) {
	items, err := m.Svc.ListPublicMissions(r.Context(), getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateMissionHandler plans a mission
func (m Mission) CreateMissionHandler(w http.ResponseWriter, r *http.Request) {
	var in services.MissionInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	mission, err := m.Svc.CreateSARMission(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, mission, err)
}

// MissionByIDHandler returns a mission with its areas
func (m Mission) MissionByIDHandler(w http.ResponseWriter, r *http.Request) {
	mission, err := m.Svc.GetSARMission(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, mission, err)
}

// UpdateMissionHandler changes a mission's descriptive fields
func (m Mission) UpdateMissionHandler(w http.ResponseWriter, r *http.Request) {
	var d databases.MissionDetails
	if err := decode(w, r, &d); err != nil {
		api.WriteError(w, err)
		return
	}
	mission, err := m.Svc.UpdateSARMission(r.Context(), actorOf(r), mux.Vars(r)["id"], d)
	respond(w, http.StatusOK, mission, err)
}

// StartMissionHandler moves a planned mission to active
func (m Mission) StartMissionHandler(w http.ResponseWriter, r *http.Request) {
	mission, err := m.Svc.StartMission(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, mission, err)
}

// CompleteMissionHandler completes an active mission
func (m Mission) CompleteMissionHandler(w http.ResponseWriter, r *http.Request) {
	mission, err := m.Svc.CompleteMission(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, mission, err)
}

// CancelMissionHandler cancels a planned or active mission
func (m Mission) CancelMissionHandler(w http.ResponseWriter, r *http.Request) {
	mission, err := m.Svc.CancelMission(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, mission, err)
}

// AreasHandler returns a mission's search areas in creation order
func (m Mission) AreasHandler(w http.ResponseWriter, r *http.Request) {
	items, err := m.Svc.ListAreas(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, list(items), err)
}

// CreateAreaHandler adds a search area to a mission
func (m Mission) CreateAreaHandler(w http.ResponseWriter, r *http.Request) {
	var in services.AreaInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	area, err := m.Svc.CreateArea(r.Context(), actorOf(r), mux.Vars(r)["id"], in)
	respond(w, http.StatusCreated, area, err)
}

// UpdateAreaHandler changes an area's status, assignee or notes
func (m Mission) UpdateAreaHandler(w http.ResponseWriter, r *http.Request) {
	var u databases.AreaUpdate
	if err := decode(w, r, &u); err != nil {
		api.WriteError(w, err)
		return
	}
	vars := mux.Vars(r)
	area, err := m.Svc.UpdateArea(r.Context(), actorOf(r), vars["id"], vars["areaId"], u)
	respond(w, http.StatusOK, area, err)
}
