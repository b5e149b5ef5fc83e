package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
)

// ReportInput holds the submitter-editable body of a callout report
type ReportInput struct {
	CalloutID    string              `json:"calloutId"`
	MissionID    string              `json:"missionId"`
	Date         *time.Time          `json:"date"`
	StartTime    *time.Time          `json:"startTime"`
	EndTime      *time.Time          `json:"endTime"`
	IncidentType string              `json:"incidentType"`
	Location     string              `json:"location"`
	Notes        string              `json:"notes"`
	Observations string              `json:"observations"`
	Photos       []models.Attachment `json:"photos"`
	Documents    []models.Attachment `json:"documents"`
}

// ReportService runs the draft, submit and review workflow of callout reports
type ReportService struct {
	reports    databases.CalloutReportDatabase
	dispatcher notify.Dispatcher
	clock      *clock
}

func (in ReportInput) validate() error {
	if in.StartTime != nil && in.EndTime != nil && in.EndTime.Before(*in.StartTime) {
		return Validation("endTime must not be before startTime")
	}
	return nil
}

func (in ReportInput) apply(r *models.CalloutReport) {
	r.CalloutID = in.CalloutID
	r.MissionID = in.MissionID
	if in.Date != nil {
		r.Date = *in.Date
	}
	r.StartTime = in.StartTime
	r.EndTime = in.EndTime
	r.IncidentType = in.IncidentType
	r.Location = in.Location
	r.Notes = in.Notes
	r.Observations = in.Observations
	r.Photos = in.Photos
	r.Documents = in.Documents
	if r.Photos == nil {
		r.Photos = []models.Attachment{}
	}
	if r.Documents == nil {
		r.Documents = []models.Attachment{}
	}
}

// CreateReport starts a draft owned by the caller
func (s *ReportService) CreateReport(ctx context.Context, actor models.Actor, in ReportInput) (*models.CalloutReport, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	r := &models.CalloutReport{
		ID:              databases.NewID(),
		SubmittedBy:     actor.UserID,
		SubmittedByName: actor.Name,
		Date:            now,
		Status:          models.ReportDraft,
		ReviewHistory:   []models.ReviewEntry{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	in.apply(r)
	if err := s.reports.InsertOne(ctx, r); err != nil {
		return nil, storeErr(err, "report")
	}
	return r, nil
}

// GetReport returns a report to its owner or an officer
func (s *ReportService) GetReport(ctx context.Context, actor models.Actor, id string) (*models.CalloutReport, error) {
	r, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "report")
	}
	if r.SubmittedBy != actor.UserID && !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("you can only view your own reports")
	}
	return r, nil
}

// ListReports returns the caller's reports, or every report for officers
func (s *ReportService) ListReports(ctx context.Context, actor models.Actor, status models.ReportStatus, page databases.Page) ([]models.CalloutReport, error) {
	filter := databases.ReportFilter{Status: status}
	if !actor.HasRole(models.RoleOfficer) {
		filter.SubmittedBy = actor.UserID
	}
	list, err := s.reports.Find(ctx, filter, page)
	if err != nil {
		return nil, storeErr(err, "reports")
	}
	return list, nil
}

func (s *ReportService) owned(ctx context.Context, actor models.Actor, id string) (*models.CalloutReport, error) {
	r, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "report")
	}
	if r.SubmittedBy != actor.UserID {
		return nil, Forbidden("only the submitter can change this report")
	}
	return r, nil
}

// UpdateReport replaces the body of a draft or rejected report
func (s *ReportService) UpdateReport(ctx context.Context, actor models.Actor, id string, in ReportInput) (*models.CalloutReport, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.Editable() {
		return nil, InvalidState("a %s report cannot be edited", r.Status)
	}
	in.apply(r)
	r.UpdatedAt = s.clock.Now()
	if err := s.reports.Replace(ctx, r, r.Version); err != nil {
		return nil, storeErr(err, "report")
	}
	return r, nil
}

// SubmitReport sends a draft or rejected report to the review queue and notifies officers
func (s *ReportService) SubmitReport(ctx context.Context, actor models.Actor, id string) (*models.CalloutReport, error) {
	r, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !r.Status.Editable() {
		return nil, InvalidState("a %s report cannot be submitted", r.Status)
	}
	now := s.clock.Now()
	r.Status = models.ReportSubmitted
	r.SubmittedAt = &now
	r.UpdatedAt = now
	r.ReviewHistory = append(r.ReviewHistory, models.ReviewEntry{
		Action:    models.ReviewSubmit,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		At:        now,
	})
	if err := s.reports.Replace(ctx, r, r.Version); err != nil {
		return nil, storeErr(err, "report")
	}
	zap.S().Infow("report submitted", "reportId", id, "submittedBy", actor.UserID)

	s.dispatcher.Dispatch(ctx, notify.Message{
		Type:     models.NotificationReviewRequest,
		Title:    "Report ready for review",
		Body:     r.SubmittedByName + " submitted a callout report",
		Data:     map[string]interface{}{"reportId": id},
		Audience: &notify.Audience{MinRole: models.RoleOfficer, ExcludeUserID: actor.UserID},
	})
	return r, nil
}

// ReviewReport claims, approves or rejects a submitted report. Approval is final and a
// rejection must carry notes. Every decision is appended to the review history.
func (s *ReportService) ReviewReport(ctx context.Context, actor models.Actor, id string, action models.ReviewAction, notes string) (*models.CalloutReport, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can review reports")
	}
	switch action {
	case models.ReviewClaim, models.ReviewApprove:
	case models.ReviewReject:
		if blank(notes) {
			return nil, Validation("notes are required when rejecting a report")
		}
	default:
		return nil, Validation("action must be one of claim, approve, reject")
	}

	r, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "report")
	}
	switch r.Status {
	case models.ReportDraft:
		return nil, InvalidState("report has not been submitted")
	case models.ReportApproved:
		return nil, InvalidState("report is already approved")
	case models.ReportRejected:
		return nil, InvalidState("report was rejected and has not been resubmitted")
	case models.ReportUnderReview:
		if action == models.ReviewClaim {
			return nil, InvalidState("report is already under review")
		}
	}

	now := s.clock.Now()
	switch action {
	case models.ReviewClaim:
		r.Status = models.ReportUnderReview
	case models.ReviewApprove:
		r.Status = models.ReportApproved
	case models.ReviewReject:
		r.Status = models.ReportRejected
	}
	if action != models.ReviewClaim {
		r.ReviewedBy = actor.UserID
		r.ReviewedAt = &now
		r.ReviewNotes = notes
	}
	r.UpdatedAt = now
	r.ReviewHistory = append(r.ReviewHistory, models.ReviewEntry{
		Action:    action,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		Notes:     notes,
		At:        now,
	})
	if err := s.reports.Replace(ctx, r, r.Version); err != nil {
		return nil, storeErr(err, "report")
	}
	zap.S().Infow("report reviewed", "reportId", id, "action", action, "reviewer", actor.UserID)

	if action != models.ReviewClaim && r.SubmittedBy != actor.UserID {
		s.dispatcher.Dispatch(ctx, notify.Message{
			Type:         models.NotificationReviewDecision,
			Title:        "Report " + string(r.Status),
			Body:         notes,
			Data:         map[string]interface{}{"reportId": id, "status": r.Status},
			RecipientIDs: []string{r.SubmittedBy},
		})
	}
	return r, nil
}
