package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// CallOut exported for testing purposes
type CallOut struct {
	Svc *services.CallOutService
}

// CallOutsHandler returns a page of call-outs, optionally filtered by ?status=
func (c CallOut) CallOutsHandler(w http.ResponseWriter, r *http.Request) {
	filter := databases.CallOutFilter{Status: models.CallOutStatus(r.URL.Query().Get("status"))}
	items, err := c.Svc.ListCallOuts(r.Context(), actorOf(r), filter, getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CallOutByIDHandler returns a call-out with its response summary
func (c CallOut) CallOutByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	zap.S().Debugf("call-out id: %v", id)
	callOut, err := c.Svc.GetCallOut(r.Context(), actorOf(r), id)
	respond(w, http.StatusOK, callOut, err)
}

// CreateCallOutHandler creates and announces a call-out
func (c CallOut) CreateCallOutHandler(w http.ResponseWriter, r *http.Request) {
	var in services.CallOutInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	callOut, err := c.Svc.CreateCallOut(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, callOut, err)
}

// RespondHandler records the caller's availability for a call-out
func (c CallOut) RespondHandler(w http.ResponseWriter, r *http.Request) {
	var in services.ResponseInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	resp, err := c.Svc.RespondToCallOut(r.Context(), actorOf(r), mux.Vars(r)["id"], in)
	respond(w, http.StatusOK, resp, err)
}

// ResponsesHandler returns the responses to a call-out. Members only see their own.
func (c CallOut) ResponsesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := c.Svc.ListResponses(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, list(items), err)
}

// CloseCallOutHandler completes or cancels a call-out
func (c CallOut) CloseCallOutHandler(w http.ResponseWriter, r *http.Request) {
	body := statusBody{Status: string(models.CallOutCompleted)}
	if err := decodeOptional(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	callOut, err := c.Svc.CloseCallOut(r.Context(), actorOf(r), mux.Vars(r)["id"], models.CallOutStatus(body.Status))
	respond(w, http.StatusOK, callOut, err)
}
