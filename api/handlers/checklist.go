package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Checklist exported for testing purposes
type Checklist struct {
	Svc *services.ChecklistService
}

// TemplatesHandler returns a page of checklist templates
func (c Checklist) TemplatesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := c.Svc.ListTemplates(r.Context(), actorOf(r), getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateTemplateHandler creates a checklist template
func (c Checklist) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	var in services.TemplateInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	tpl, err := c.Svc.CreateTemplate(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, tpl, err)
}

// TemplateByIDHandler returns one template
func (c Checklist) TemplateByIDHandler(w http.ResponseWriter, r *http.Request) {
	tpl, err := c.Svc.GetTemplate(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, tpl, err)
}

// ChecklistsHandler returns checklists, filtered by ?assignedTo= and ?status=
func (c Checklist) ChecklistsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := databases.ChecklistFilter{
		AssignedTo: q.Get("assignedTo"),
		Status:     models.ChecklistStatus(q.Get("status")),
	}
	items, err := c.Svc.ListChecklists(r.Context(), actorOf(r), filter, getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateChecklistHandler instantiates a checklist from a template
func (c Checklist) CreateChecklistHandler(w http.ResponseWriter, r *http.Request) {
	var in services.ChecklistInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	cl, err := c.Svc.CreateChecklist(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, cl, err)
}

// ChecklistByIDHandler returns one checklist
func (c Checklist) ChecklistByIDHandler(w http.ResponseWriter, r *http.Request) {
	cl, err := c.Svc.GetChecklist(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, cl, err)
}

// UpdateItemHandler sets an item's status or notes
func (c Checklist) UpdateItemHandler(w http.ResponseWriter, r *http.Request) {
	var change services.ItemChange
	if err := decode(w, r, &change); err != nil {
		api.WriteError(w, err)
		return
	}
	vars := mux.Vars(r)
	cl, err := c.Svc.UpdateChecklistItem(r.Context(), actorOf(r), vars["id"], vars["itemId"], change)
	respond(w, http.StatusOK, cl, err)
}

// CancelChecklistHandler cancels a checklist
func (c Checklist) CancelChecklistHandler(w http.ResponseWriter, r *http.Request) {
	cl, err := c.Svc.CancelChecklist(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, cl, err)
}

// ReviewChecklistHandler approves or rejects a completed checklist
func (c Checklist) ReviewChecklistHandler(w http.ResponseWriter, r *http.Request) {
	var body reviewBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	cl, err := c.Svc.ReviewChecklist(r.Context(), actorOf(r), mux.Vars(r)["id"], body.Action, body.Notes)
	respond(w, http.StatusOK, cl, err)
}
