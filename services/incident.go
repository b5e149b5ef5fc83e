package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
)

// IncidentInput holds the fields of a new incident
type IncidentInput struct {
	Title               string           `json:"title"`
	Description         string           `json:"description"`
	Type                string           `json:"type"`
	IncidentCommanderID string           `json:"incidentCommanderId"`
	Location            *models.Location `json:"location"`
}

// ResourceInput describes a unit to assign to an incident
type ResourceInput struct {
	ResourceType models.ResourceType `json:"resourceType"`
	ResourceName string              `json:"resourceName"`
	UserID       string              `json:"userId"`
	Notes        string              `json:"notes"`
}

// resourceEdges lists the forward moves of a resource. Unavailable is reachable from any
// non-terminal status and handled separately.
var resourceEdges = map[models.ResourceStatus]models.ResourceStatus{
	models.ResourceAssigned: models.ResourceEnRoute,
	models.ResourceEnRoute:  models.ResourceOnScene,
}

// IncidentService tracks incidents and the resources assigned to them
type IncidentService struct {
	incidents  databases.IncidentDatabase
	resources  databases.IncidentResourceDatabase
	dispatcher notify.Dispatcher
	clock      *clock
}

// CreateIncident opens an active incident and notifies personnel
func (s *IncidentService) CreateIncident(ctx context.Context, actor models.Actor, in IncidentInput) (*models.Incident, error) {
	if !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("only officers can create incidents")
	}
	if blank(in.Title) {
		return nil, Validation("title is required")
	}
	now := s.clock.Now()
	commander := in.IncidentCommanderID
	if commander == "" {
		commander = actor.UserID
	}
	inc := &models.Incident{
		ID:                  databases.NewID(),
		Title:               in.Title,
		Description:         in.Description,
		Type:                in.Type,
		Status:              models.IncidentActive,
		IncidentCommanderID: commander,
		Location:            in.Location,
		CreatedBy:           actor.UserID,
		StartedAt:           now,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.incidents.InsertOne(ctx, inc); err != nil {
		return nil, storeErr(err, "incident")
	}
	zap.S().Infow("incident created", "incidentId", inc.ID, "createdBy", actor.UserID)

	s.dispatcher.Dispatch(ctx, notify.Message{
		Type:     models.NotificationIncident,
		Title:    "New incident: " + inc.Title,
		Body:     inc.Description,
		Data:     map[string]interface{}{"incidentId": inc.ID},
		Audience: &notify.Audience{MinRole: models.RoleMember, ExcludeUserID: actor.UserID},
	})
	return inc, nil
}

// GetIncident returns one incident
func (s *IncidentService) GetIncident(ctx context.Context, actor models.Actor, id string) (*models.Incident, error) {
	inc, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "incident")
	}
	return inc, nil
}

// ListIncidents returns a page of incidents, most recent first
func (s *IncidentService) ListIncidents(ctx context.Context, actor models.Actor, filter databases.IncidentFilter, page databases.Page) ([]models.Incident, error) {
	list, err := s.incidents.Find(ctx, filter, page)
	if err != nil {
		return nil, storeErr(err, "incidents")
	}
	return list, nil
}

func canCommand(actor models.Actor, commanderID string) bool {
	return actor.HasRole(models.RoleOfficer) || (commanderID != "" && actor.UserID == commanderID)
}

func (s *IncidentService) openIncident(ctx context.Context, id string) (*models.Incident, error) {
	inc, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "incident")
	}
	if inc.Status.IsTerminal() {
		return nil, &Error{Kind: KindIncidentClosed, Message: "incident is " + string(inc.Status)}
	}
	return inc, nil
}

// AssignResource adds a resource to an open incident. A resource name may only have one live
// assignment per incident.
func (s *IncidentService) AssignResource(ctx context.Context, actor models.Actor, incidentID string, in ResourceInput) (*models.IncidentResource, error) {
	if !in.ResourceType.Valid() {
		return nil, Validation("resourceType must be one of personnel, equipment, vehicle")
	}
	if blank(in.ResourceName) {
		return nil, Validation("resourceName is required")
	}
	inc, err := s.openIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !canCommand(actor, inc.IncidentCommanderID) {
		return nil, Forbidden("only the incident commander or an officer can assign resources")
	}

	now := s.clock.Now()
	res := &models.IncidentResource{
		ID:           databases.NewID(),
		IncidentID:   incidentID,
		ResourceType: in.ResourceType,
		ResourceName: in.ResourceName,
		UserID:       in.UserID,
		Status:       models.ResourceAssigned,
		Notes:        in.Notes,
		AssignedAt:   now,
		UpdatedAt:    now,
	}
	if err := s.resources.InsertOne(ctx, res); err != nil {
		if errors.Is(err, databases.ErrDuplicate) {
			return nil, Conflict("%s is already assigned to this incident", in.ResourceName)
		}
		return nil, storeErr(err, "incident resource")
	}
	if err := s.undoIfClosed(ctx, incidentID, res, nil); err != nil {
		return nil, err
	}
	zap.S().Infow("resource assigned", "incidentId", incidentID, "resourceId", res.ID, "name", res.ResourceName)

	if res.UserID != "" && res.UserID != actor.UserID {
		s.dispatcher.Dispatch(ctx, notify.Message{
			Type:         models.NotificationResource,
			Title:        "Assigned to " + inc.Title,
			Body:         "You have been assigned as " + res.ResourceName,
			Data:         map[string]interface{}{"incidentId": incidentID, "resourceId": res.ID},
			RecipientIDs: []string{res.UserID},
		})
	}
	return res, nil
}

// ListResources returns the resources of an incident in assignment order
func (s *IncidentService) ListResources(ctx context.Context, actor models.Actor, incidentID string) ([]models.IncidentResource, error) {
	if _, err := s.incidents.FindByID(ctx, incidentID); err != nil {
		return nil, storeErr(err, "incident")
	}
	list, err := s.resources.FindByIncident(ctx, incidentID)
	if err != nil {
		return nil, storeErr(err, "incident resources")
	}
	return list, nil
}

// TransitionResourceStatus moves a resource along assigned, en_route, on_scene or to unavailable.
// Asking for the current status is a no-op.
func (s *IncidentService) TransitionResourceStatus(ctx context.Context, actor models.Actor, incidentID, resourceID string, to models.ResourceStatus) (*models.IncidentResource, error) {
	if !to.Valid() {
		return nil, Validation("status must be one of assigned, en_route, on_scene, unavailable")
	}
	res, err := s.resources.FindByID(ctx, resourceID)
	if err != nil {
		return nil, storeErr(err, "incident resource")
	}
	if res.IncidentID != incidentID {
		return nil, NotFound("incident resource not found")
	}
	inc, err := s.openIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	if !canCommand(actor, inc.IncidentCommanderID) && (res.UserID == "" || res.UserID != actor.UserID) {
		return nil, Forbidden("only the incident commander, an officer or the assigned member can update this resource")
	}
	if res.Status == to {
		return res, nil
	}
	if !resourceMoveAllowed(res.Status, to) {
		return nil, InvalidTransition("cannot move resource from %s to %s", res.Status, to)
	}

	updated, err := s.resources.Transition(ctx, resourceID, res.Status, to, s.clock.Now())
	if err != nil {
		return nil, storeErr(err, "incident resource")
	}
	if err := s.undoIfClosed(ctx, incidentID, updated, res); err != nil {
		return nil, err
	}
	zap.S().Infow("resource status changed", "resourceId", resourceID, "from", res.Status, "to", to)

	if inc.IncidentCommanderID != "" && inc.IncidentCommanderID != actor.UserID {
		s.dispatcher.Dispatch(ctx, notify.Message{
			Type:         models.NotificationResource,
			Title:        updated.ResourceName + " is " + string(to),
			Body:         inc.Title,
			Data:         map[string]interface{}{"incidentId": incidentID, "resourceId": resourceID, "status": to},
			RecipientIDs: []string{inc.IncidentCommanderID},
			Channels:     []string{models.ChannelInApp},
		})
	}
	return updated, nil
}

// undoIfClosed re-reads the incident after a resource write and puts the resource back the
// way it was when the incident closed in between
func (s *IncidentService) undoIfClosed(ctx context.Context, incidentID string, written, prev *models.IncidentResource) error {
	inc, err := s.incidents.FindByID(ctx, incidentID)
	if err != nil {
		return storeErr(err, "incident")
	}
	if !inc.Status.IsTerminal() {
		return nil
	}
	if err := s.resources.Revert(ctx, written, prev); err != nil {
		zap.S().Errorw("failed to revert resource on closed incident", "incidentId", incidentID, "resourceId", written.ID, "error", err)
	}
	return &Error{Kind: KindIncidentClosed, Message: "incident is " + string(inc.Status)}
}

func resourceMoveAllowed(from, to models.ResourceStatus) bool {
	if from == models.ResourceUnavailable {
		return false
	}
	if to == models.ResourceUnavailable {
		return true
	}
	return resourceEdges[from] == to
}

// ResolveIncident closes the incident as resolved
func (s *IncidentService) ResolveIncident(ctx context.Context, actor models.Actor, id string) (*models.Incident, error) {
	return s.closeIncident(ctx, actor, id, models.IncidentResolved)
}

// CancelIncident closes the incident as cancelled
func (s *IncidentService) CancelIncident(ctx context.Context, actor models.Actor, id string) (*models.Incident, error) {
	return s.closeIncident(ctx, actor, id, models.IncidentCancelled)
}

// closeIncident is idempotent for the same terminal status and rejects the other one
func (s *IncidentService) closeIncident(ctx context.Context, actor models.Actor, id string, to models.IncidentStatus) (*models.Incident, error) {
	inc, err := s.incidents.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "incident")
	}
	if !canCommand(actor, inc.IncidentCommanderID) {
		return nil, Forbidden("only the incident commander or an officer can close incidents")
	}
	if done, err := closedAs(inc, to); done {
		if err != nil {
			return nil, err
		}
		return inc, nil
	}

	closed, err := s.incidents.Close(ctx, id, to, s.clock.Now())
	if errors.Is(err, databases.ErrConditionFailed) {
		inc, err = s.incidents.FindByID(ctx, id)
		if err != nil {
			return nil, storeErr(err, "incident")
		}
		if _, err := closedAs(inc, to); err != nil {
			return nil, err
		}
		return inc, nil
	}
	if err != nil {
		return nil, storeErr(err, "incident")
	}
	zap.S().Infow("incident closed", "incidentId", id, "status", to, "by", actor.UserID)

	s.notifyAssigned(ctx, closed, actor)
	return closed, nil
}

func closedAs(inc *models.Incident, to models.IncidentStatus) (bool, error) {
	if !inc.Status.IsTerminal() {
		return false, nil
	}
	if inc.Status == to {
		return true, nil
	}
	return true, &Error{Kind: KindIncidentClosed, Message: "incident is already " + string(inc.Status)}
}

func (s *IncidentService) notifyAssigned(ctx context.Context, inc *models.Incident, actor models.Actor) {
	resources, err := s.resources.FindByIncident(ctx, inc.ID)
	if err != nil {
		zap.S().Errorw("failed to load resources for closure notice", "incidentId", inc.ID, "error", err)
		return
	}
	var ids []string
	for _, r := range resources {
		if r.UserID != "" && r.UserID != actor.UserID {
			ids = append(ids, r.UserID)
		}
	}
	if len(ids) == 0 {
		return
	}
	s.dispatcher.Dispatch(ctx, notify.Message{
		Type:         models.NotificationIncident,
		Title:        "Incident " + string(inc.Status),
		Body:         inc.Title,
		Data:         map[string]interface{}{"incidentId": inc.ID, "status": inc.Status},
		RecipientIDs: ids,
	})
}
