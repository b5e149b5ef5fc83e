package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
)

// CallOutInput holds the fields of a new call-out
type CallOutInput struct {
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Unit      string     `json:"unit"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// ResponseInput is a member's answer to a call-out
type ResponseInput struct {
	Status           models.ResponseStatus `json:"status"`
	EstimatedArrival *time.Time            `json:"estimatedArrival"`
	Notes            string                `json:"notes"`
}

// CallOutService broadcasts call-outs and aggregates member responses
type CallOutService struct {
	callOuts   databases.CallOutDatabase
	responses  databases.CallOutResponseDatabase
	dispatcher notify.Dispatcher
	clock      *clock
}

// CreateCallOut persists an active call-out and notifies personnel in its scope
func (s *CallOutService) CreateCallOut(ctx context.Context, actor models.Actor, in CallOutInput) (*models.CallOut, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can create call-outs")
	}
	if blank(in.Title) || blank(in.Message) {
		return nil, Validation("title and message are required")
	}
	now := s.clock.Now()
	if in.ExpiresAt != nil && !in.ExpiresAt.After(now) {
		return nil, Validation("expiresAt must be in the future")
	}

	c := &models.CallOut{
		ID:        databases.NewID(),
		Title:     in.Title,
		Message:   in.Message,
		Unit:      in.Unit,
		Status:    models.CallOutActive,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: in.ExpiresAt,
	}
	if err := s.callOuts.InsertOne(ctx, c); err != nil {
		return nil, storeErr(err, "call-out")
	}
	zap.S().Infow("call-out created", "callOutId", c.ID, "createdBy", actor.UserID, "unit", c.Unit)

	s.dispatcher.Dispatch(ctx, notify.Message{
		Type:      models.NotificationCallOut,
		Title:     c.Title,
		Body:      c.Message,
		Data:      map[string]interface{}{"callOutId": c.ID},
		Audience:  &notify.Audience{MinRole: models.RoleMember, Unit: c.Unit, ExcludeUserID: actor.UserID},
		ExpiresAt: c.ExpiresAt,
	})
	c.ResponseSummary = map[models.ResponseStatus]int{}
	return c, nil
}

// GetCallOut returns a call-out with its computed expiry and response counts
func (s *CallOutService) GetCallOut(ctx context.Context, actor models.Actor, id string) (*models.CallOut, error) {
	c, err := s.callOuts.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "call-out")
	}
	out := []models.CallOut{*c}
	if err := s.decorate(ctx, out); err != nil {
		return nil, err
	}
	return &out[0], nil
}

// ListCallOuts returns a page of call-outs, newest first
func (s *CallOutService) ListCallOuts(ctx context.Context, actor models.Actor, filter databases.CallOutFilter, page databases.Page) ([]models.CallOut, error) {
	list, err := s.callOuts.Find(ctx, filter, page)
	if err != nil {
		return nil, storeErr(err, "call-outs")
	}
	if err := s.decorate(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// decorate fills the read-time fields. Expiry is computed, never written.
func (s *CallOutService) decorate(ctx context.Context, list []models.CallOut) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	summaries, err := s.responses.Summaries(ctx, ids)
	if err != nil {
		return storeErr(err, "call-out responses")
	}
	now := s.clock.Now()
	for i := range list {
		c := &list[i]
		c.IsExpired = c.Status == models.CallOutActive && c.Expired(now)
		c.ResponseSummary = summaries[c.ID]
		if c.ResponseSummary == nil {
			c.ResponseSummary = map[models.ResponseStatus]int{}
		}
		c.ResponseCount = 0
		for _, n := range c.ResponseSummary {
			c.ResponseCount += n
		}
	}
	return nil
}

// RespondToCallOut records the actor's availability. A second answer from the same member
// updates the existing response.
func (s *CallOutService) RespondToCallOut(ctx context.Context, actor models.Actor, callOutID string, in ResponseInput) (*models.CallOutResponse, error) {
	if !in.Status.Valid() {
		return nil, Validation("status must be one of available, en_route, unavailable")
	}
	c, err := s.callOuts.FindByID(ctx, callOutID)
	if err != nil {
		return nil, storeErr(err, "call-out")
	}
	now := s.clock.Now()
	if !c.AcceptsResponses(now) {
		if c.Status == models.CallOutActive {
			return nil, &Error{Kind: KindCallOutClosed, Message: "call-out has expired"}
		}
		return nil, &Error{Kind: KindCallOutClosed, Message: "call-out is " + string(c.Status)}
	}

	prev, err := s.responses.FindOne(ctx, callOutID, actor.UserID)
	if errors.Is(err, databases.ErrNotFound) {
		prev = nil
	} else if err != nil {
		return nil, storeErr(err, "call-out response")
	}

	resp, err := s.responses.Upsert(ctx, &models.CallOutResponse{
		CallOutID:        callOutID,
		UserID:           actor.UserID,
		UserName:         actor.Name,
		Status:           in.Status,
		EstimatedArrival: in.EstimatedArrival,
		Notes:            in.Notes,
		RespondedAt:      now,
		UpdatedAt:        now,
	})
	if err != nil {
		return nil, storeErr(err, "call-out response")
	}
	if err := s.undoIfClosed(ctx, callOutID, resp, prev); err != nil {
		return nil, err
	}
	zap.S().Infow("call-out response recorded", "callOutId", callOutID, "userId", actor.UserID, "status", in.Status)
	return resp, nil
}

// undoIfClosed re-reads the call-out after a response was written and takes the response back
// when a close committed in between
func (s *CallOutService) undoIfClosed(ctx context.Context, callOutID string, written, prev *models.CallOutResponse) error {
	c, err := s.callOuts.FindByID(ctx, callOutID)
	if err != nil {
		return storeErr(err, "call-out")
	}
	if !c.Status.IsTerminal() {
		return nil
	}
	if err := s.responses.Revert(ctx, written, prev); err != nil {
		zap.S().Errorw("failed to revert response to closed call-out", "callOutId", callOutID, "responseId", written.ID, "error", err)
	}
	return &Error{Kind: KindCallOutClosed, Message: "call-out is " + string(c.Status)}
}

// ListResponses returns every response to officers and only the caller's own to members
func (s *CallOutService) ListResponses(ctx context.Context, actor models.Actor, callOutID string) ([]models.CallOutResponse, error) {
	if _, err := s.callOuts.FindByID(ctx, callOutID); err != nil {
		return nil, storeErr(err, "call-out")
	}
	if !actor.HasRole(models.RoleOfficer) {
		own, err := s.responses.FindOne(ctx, callOutID, actor.UserID)
		if errors.Is(err, databases.ErrNotFound) {
			return []models.CallOutResponse{}, nil
		}
		if err != nil {
			return nil, storeErr(err, "call-out response")
		}
		return []models.CallOutResponse{*own}, nil
	}
	list, err := s.responses.FindByCallOut(ctx, callOutID)
	if err != nil {
		return nil, storeErr(err, "call-out responses")
	}
	return list, nil
}

// CloseCallOut moves an active call-out to completed or cancelled. Closing an already closed
// call-out returns it unchanged.
func (s *CallOutService) CloseCallOut(ctx context.Context, actor models.Actor, id string, outcome models.CallOutStatus) (*models.CallOut, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can close call-outs")
	}
	if !outcome.IsTerminal() {
		return nil, Validation("outcome must be completed or cancelled")
	}
	c, err := s.callOuts.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "call-out")
	}
	if c.Status.IsTerminal() {
		return s.GetCallOut(ctx, actor, id)
	}

	closed, err := s.callOuts.Close(ctx, id, outcome, actor.UserID, s.clock.Now())
	if errors.Is(err, databases.ErrConditionFailed) {
		// another request closed it first
		return s.GetCallOut(ctx, actor, id)
	}
	if err != nil {
		return nil, storeErr(err, "call-out")
	}
	zap.S().Infow("call-out closed", "callOutId", id, "status", outcome, "closedBy", actor.UserID)

	s.notifyResponders(ctx, closed, actor)
	return s.GetCallOut(ctx, actor, id)
}

func (s *CallOutService) notifyResponders(ctx context.Context, c *models.CallOut, actor models.Actor) {
	responses, err := s.responses.FindByCallOut(ctx, c.ID)
	if err != nil {
		zap.S().Errorw("failed to load responders for closure notice", "callOutId", c.ID, "error", err)
		return
	}
	var ids []string
	for _, r := range responses {
		if r.UserID != actor.UserID {
			ids = append(ids, r.UserID)
		}
	}
	if len(ids) == 0 {
		return
	}
	s.dispatcher.Dispatch(ctx, notify.Message{
		Type:         models.NotificationCallOutClosed,
		Title:        "Call-out " + string(c.Status),
		Body:         c.Title,
		Data:         map[string]interface{}{"callOutId": c.ID, "status": c.Status},
		RecipientIDs: ids,
	})
}
