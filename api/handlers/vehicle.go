package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Asset exported for testing purposes
type Asset struct {
	Svc *services.AssetService
}

// VehiclesHandler returns a page of vehicles
func (a Asset) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := a.Svc.ListVehicles(r.Context(), actorOf(r), getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateVehicleHandler adds a vehicle
func (a Asset) CreateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	var in services.VehicleChange
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	v, err := a.Svc.CreateVehicle(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, v, err)
}

// VehicleByIDHandler returns one vehicle
func (a Asset) VehicleByIDHandler(w http.ResponseWriter, r *http.Request) {
	v, err := a.Svc.GetVehicle(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, v, err)
}

// UpdateVehicleHandler changes a vehicle
func (a Asset) UpdateVehicleHandler(w http.ResponseWriter, r *http.Request) {
	var in services.VehicleChange
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	v, err := a.Svc.UpdateVehicle(r.Context(), actorOf(r), mux.Vars(r)["id"], in)
	respond(w, http.StatusOK, v, err)
}
