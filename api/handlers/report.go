package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/geijin5/apsar-emergency-api/api"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

// Report exported for testing purposes
type Report struct {
	Svc *services.ReportService
}

// ReportsHandler returns reports visible to the caller, optionally filtered by ?status=
func (rp Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	status := models.ReportStatus(r.URL.Query().Get("status"))
	items, err := rp.Svc.ListReports(r.Context(), actorOf(r), status, getPage(r))
	respond(w, http.StatusOK, list(items), err)
}

// CreateReportHandler starts a draft report
func (rp Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	var in services.ReportInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	report, err := rp.Svc.CreateReport(r.Context(), actorOf(r), in)
	respond(w, http.StatusCreated, report, err)
}

// ReportByIDHandler returns one report to its author or an officer
func (rp Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	report, err := rp.Svc.GetReport(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, report, err)
}

// UpdateReportHandler edits a draft or rejected report
func (rp Report) UpdateReportHandler(w http.ResponseWriter, r *http.Request) {
	var in services.ReportInput
	if err := decode(w, r, &in); err != nil {
		api.WriteError(w, err)
		return
	}
	report, err := rp.Svc.UpdateReport(r.Context(), actorOf(r), mux.Vars(r)["id"], in)
	respond(w, http.StatusOK, report, err)
}

// SubmitReportHandler submits a report for review
func (rp Report) SubmitReportHandler(w http.ResponseWriter, r *http.Request) {
	report, err := rp.Svc.SubmitReport(r.Context(), actorOf(r), mux.Vars(r)["id"])
	respond(w, http.StatusOK, report, err)
}

// ReviewReportHandler claims, approves or rejects a report
func (rp Report) ReviewReportHandler(w http.ResponseWriter, r *http.Request) {
	var body reviewBody
	if err := decode(w, r, &body); err != nil {
		api.WriteError(w, err)
		return
	}
	report, err := rp.Svc.ReviewReport(r.Context(), actorOf(r), mux.Vars(r)["id"], body.Action, body.Notes)
	respond(w, http.StatusOK, report, err)
}
