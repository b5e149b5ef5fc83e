package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/services"
)

// EquipmentHandler returns a page of equipment
func (a Asset) EquipmentHandler(w http.ResponseWriter, r *http.Request) {
	items, err := a.Svc.ListEquipment(r.Context(), actorOf(r), getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateEquipmentHandler adds a piece of equipment
func (a Asset) CreateEquipmentHandler(w http.ResponseWriter, r *http.Request) {
	var in services.EquipmentChange
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	e, err := a.Svc.CreateEquipment(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, e, err)
}

// EquipmentByIDHandler returns one piece of equipment
func (a Asset) EquipmentByIDHandler(w http.ResponseWriter, r *http.Request) {
	e, err := a.Svc.GetEquipment(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, e, err)
}

// UpdateEquipmentHandler changes a piece of equipment
func (a Asset) UpdateEquipmentHandler(w http.ResponseWriter, r *http.Request) {
	var in services.EquipmentChange
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	e, err := a.Svc.UpdateEquipment(r.Context(), actorOf(r), mux.Vars(r)["id"], in)
	respond(w, http.StatusOK, e, err)
}
