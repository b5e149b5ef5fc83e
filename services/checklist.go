package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
)

// TemplateInput holds a new checklist template
type TemplateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Items       []struct {
		Label    string `json:"label"`
		Required bool   `json:"required"`
	} `json:"items"`
}

// ChecklistInput starts a checklist from a template
type ChecklistInput struct {
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	AssignedTo string `json:"assignedTo"`
	CalloutID  string `json:"calloutId"`
	MissionID  string `json:"missionId"`
}

// ItemChange updates one checklist item
type ItemChange struct {
	Status models.ItemStatus `json:"status"`
	Notes  *string           `json:"notes"`
}

// ChecklistService manages templates, checklist instances and the review of completed checklists
type ChecklistService struct {
	templates  databases.ChecklistTemplateDatabase
	checklists databases.ChecklistDatabase
	dispatcher notify.Dispatcher
	clock      *clock
}

// CreateTemplate stores a template. Item ids are generated.
func (s *ChecklistService) CreateTemplate(ctx context.Context, actor models.Actor, in TemplateInput) (*models.ChecklistTemplate, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can create checklist templates")
	}
	if blank(in.Name) {
		return nil, Validation("name is required")
	}
	if len(in.Items) == 0 {
		return nil, Validation("a template needs at least one item")
	}
	now := s.clock.Now()
	t := &models.ChecklistTemplate{
		ID:          databases.NewID(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, it := range in.Items {
		if blank(it.Label) {
			return nil, Validation("every item needs a label")
		}
		t.Items = append(t.Items, models.ChecklistTemplateItem{
			ItemID:   uuid.NewString(),
			Label:    it.Label,
			Required: it.Required,
		})
	}
	if err := s.templates.InsertOne(ctx, t); err != nil {
		return nil, storeErr(err, "checklist template")
	}
	return t, nil
}

// GetTemplate returns one template
func (s *ChecklistService) GetTemplate(ctx context.Context, actor models.Actor, id string) (*models.ChecklistTemplate, error) {
	t, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "checklist template")
	}
	return t, nil
}

// ListTemplates returns a page of templates by name
func (s *ChecklistService) ListTemplates(ctx context.Context, actor models.Actor, page databases.Page) ([]models.ChecklistTemplate, error) {
	list, err := s.templates.Find(ctx, page)
	if err != nil {
		return nil, storeErr(err, "checklist templates")
	}
	return list, nil
}

// CreateChecklist instantiates a template. Members can only assign checklists to themselves.
func (s *ChecklistService) CreateChecklist(ctx context.Context, actor models.Actor, in ChecklistInput) (*models.Checklist, error) {
	if in.TemplateID == "" {
		return nil, Validation("templateId is required")
	}
	assignee := in.AssignedTo
	if assignee == "" {
		assignee = actor.UserID
	}
	if assignee != actor.UserID && !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can assign checklists to others")
	}
	t, err := s.templates.FindByID(ctx, in.TemplateID)
	if err != nil {
		return nil, storeErr(err, "checklist template")
	}

	now := s.clock.Now()
	name := in.Name
	if blank(name) {
		name = t.Name
	}
	c := &models.Checklist{
		ID:            databases.NewID(),
		TemplateID:    t.ID,
		Name:          name,
		CalloutID:     in.CalloutID,
		MissionID:     in.MissionID,
		AssignedTo:    assignee,
		CreatedBy:     actor.UserID,
		ReviewHistory: []models.ReviewEntry{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, it := range t.Items {
		c.Items = append(c.Items, models.ChecklistItem{
			ItemID:   it.ItemID,
			Label:    it.Label,
			Required: it.Required,
			Status:   models.ItemPending,
		})
	}
	c.Status = c.DeriveStatus()
	if err := s.checklists.InsertOne(ctx, c); err != nil {
		return nil, storeErr(err, "checklist")
	}
	return c, nil
}

func canWork(actor models.Actor, c *models.Checklist) bool {
	return c.AssignedTo == actor.UserID || c.CreatedBy == actor.UserID || actor.HasRole(models.RoleOfficer)
}

// GetChecklist returns a checklist to its assignee, its creator or an officer
func (s *ChecklistService) GetChecklist(ctx context.Context, actor models.Actor, id string) (*models.Checklist, error) {
	c, err := s.checklists.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "checklist")
	}
	if !canWork(actor, c) {
		return nil, Forbidden("you can only view your own checklists")
	}
	return c, nil
}

// ListChecklists returns the caller's checklists, or every checklist for officers
func (s *ChecklistService) ListChecklists(ctx context.Context, actor models.Actor, filter databases.ChecklistFilter, page databases.Page) ([]models.Checklist, error) {
	if !actor.HasRole(models.RoleOfficer) {
		filter.AssignedTo = actor.UserID
	}
	list, err := s.checklists.Find(ctx, filter, page)
	if err != nil {
		return nil, storeErr(err, "checklists")
	}
	return list, nil
}

func (s *ChecklistService) editable(ctx context.Context, actor models.Actor, id string) (*models.Checklist, error) {
	c, err := s.checklists.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "checklist")
	}
	if !canWork(actor, c) {
		return nil, Forbidden("only the assignee or an officer can change this checklist")
	}
	if c.ReviewStatus == models.ChecklistReviewApproved {
		return nil, InvalidState("checklist is approved")
	}
	return c, nil
}

// UpdateChecklistItem sets one item's status. The overall status is derived from the items;
// a checklist that becomes completed enters review.
func (s *ChecklistService) UpdateChecklistItem(ctx context.Context, actor models.Actor, id, itemID string, change ItemChange) (*models.Checklist, error) {
	if !change.Status.Valid() {
		return nil, Validation("status must be one of pending, complete, na")
	}
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.ChecklistCancelled {
		return nil, InvalidState("checklist is cancelled")
	}
	idx := -1
	for i := range c.Items {
		if c.Items[i].ItemID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, NotFound("checklist item not found")
	}

	now := s.clock.Now()
	item := &c.Items[idx]
	item.Status = change.Status
	if change.Notes != nil {
		item.Notes = *change.Notes
	}
	if change.Status == models.ItemPending {
		item.CompletedBy = ""
		item.CompletedAt = nil
	} else {
		item.CompletedBy = actor.UserID
		item.CompletedAt = &now
	}

	before := c.Status
	c.Status = c.DeriveStatus()
	c.UpdatedAt = now
	// a rejected checklist re-enters review on the next item update that leaves it completed
	completed := c.Status == models.ChecklistCompleted &&
		(before != models.ChecklistCompleted || c.ReviewStatus == models.ChecklistReviewRejected)
	switch {
	case completed:
		c.CompletedAt = &now
		c.ReviewStatus = models.ChecklistReviewPending
	case c.Status != models.ChecklistCompleted:
		c.CompletedAt = nil
		if c.ReviewStatus == models.ChecklistReviewPending {
			c.ReviewStatus = ""
		}
	}
	if err := s.checklists.Replace(ctx, c, c.Version); err != nil {
		return nil, storeErr(err, "checklist")
	}

	if completed {
		zap.S().Infow("checklist completed", "checklistId", id, "assignedTo", c.AssignedTo)
		s.dispatcher.Dispatch(ctx, notify.Message{
			Type:     models.NotificationChecklistReview,
			Title:    "Checklist ready for review",
			Body:     c.Name,
			Data:     map[string]interface{}{"checklistId": id},
			Audience: &notify.Audience{MinRole: models.RoleOfficer, ExcludeUserID: actor.UserID},
			Channels: []string{models.ChannelInApp},
		})
	}
	return c, nil
}

// CancelChecklist cancels a checklist. Cancelling a cancelled checklist returns it unchanged.
func (s *ChecklistService) CancelChecklist(ctx context.Context, actor models.Actor, id string) (*models.Checklist, error) {
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.ChecklistCancelled {
		return c, nil
	}
	c.Status = models.ChecklistCancelled
	c.UpdatedAt = s.clock.Now()
	if err := s.checklists.Replace(ctx, c, c.Version); err != nil {
		return nil, storeErr(err, "checklist")
	}
	return c, nil
}

// ReviewChecklist approves or rejects a completed checklist. Approval freezes it; a rejected
// checklist goes back to its assignee.
func (s *ChecklistService) ReviewChecklist(ctx context.Context, actor models.Actor, id string, action models.ReviewAction, notes string) (*models.Checklist, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can review checklists")
	}
	switch action {
	case models.ReviewApprove:
	case models.ReviewReject:
		if blank(notes) {
			return nil, Validation("notes are required when rejecting a checklist")
		}
	default:
		return nil, Validation("action must be approve or reject")
	}
	c, err := s.checklists.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "checklist")
	}
	if c.Status != models.ChecklistCompleted {
		return nil, InvalidState("a %s checklist cannot be reviewed", c.Status)
	}
	if c.ReviewStatus != models.ChecklistReviewPending {
		return nil, InvalidState("checklist is already %s", c.ReviewStatus)
	}

	now := s.clock.Now()
	if action == models.ReviewApprove {
		c.ReviewStatus = models.ChecklistReviewApproved
	} else {
		c.ReviewStatus = models.ChecklistReviewRejected
	}
	c.ReviewedBy = actor.UserID
	c.ReviewedAt = &now
	c.ReviewNotes = notes
	c.UpdatedAt = now
	c.ReviewHistory = append(c.ReviewHistory, models.ReviewEntry{
		Action:    action,
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		Notes:     notes,
		At:        now,
	})
	if err := s.checklists.Replace(ctx, c, c.Version); err != nil {
		return nil, storeErr(err, "checklist")
	}

	if c.AssignedTo != actor.UserID {
		s.dispatcher.Dispatch(ctx, notify.Message{
			Type:         models.NotificationReviewDecision,
			Title:        "Checklist " + string(c.ReviewStatus),
			Body:         c.Name,
			Data:         map[string]interface{}{"checklistId": id, "reviewStatus": c.ReviewStatus},
			RecipientIDs: []string{c.AssignedTo},
		})
	}
	return c, nil
}
