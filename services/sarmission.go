package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
)

// MissionInput holds the fields of a new SAR mission
type MissionInput struct {
	Name                string             `json:"name"`
	Description         string             `json:"description"`
	MissionType         models.MissionType `json:"missionType"`
	IncidentCommanderID string             `json:"incidentCommanderId"`
	IsPublicVisible     bool               `json:"isPublicVisible"`
	PublicMessage       string             `json:"publicMessage"`
}

// AreaInput holds the fields of a new search area
type AreaInput struct {
	Name        string              `json:"name"`
	Coordinates []models.Coordinate `json:"coordinates"`
	AssignedTo  string              `json:"assignedTo"`
	Notes       string              `json:"notes"`
}

// missionSources lists the statuses each transition may start from
var missionSources = map[models.MissionStatus][]models.MissionStatus{
	models.MissionActive:    {models.MissionPlanning},
	models.MissionCompleted: {models.MissionActive},
	models.MissionCancelled: {models.MissionPlanning, models.MissionActive},
}

var areaEdges = map[models.AreaStatus][]models.AreaStatus{
	models.AreaUnassigned: {models.AreaSearching},
	models.AreaSearching:  {models.AreaCleared, models.AreaCompleted},
}

// MissionService manages SAR missions and their search areas
type MissionService struct {
	missions   databases.SARMissionDatabase
	areas      databases.SARMissionAreaDatabase
	dispatcher notify.Dispatcher
	clock      *clock
}

// CreateSARMission plans a mission. Training missions are open to every member; active
// missions need an officer.
func (s *MissionService) CreateSARMission(ctx context.Context, actor models.Actor, in MissionInput) (*models.SARMission, error) {
	if in.MissionType == "" {
		in.MissionType = models.MissionTypeTraining
	}
	switch in.MissionType {
	case models.MissionTypeTraining:
	case models.MissionTypeActive:
		if !actor.HasRole(models.RoleOfficer) {
			return nil, Forbidden("only officers can create active missions")
		}
	default:
		return nil, Validation("missionType must be active or training")
	}
	if blank(in.Name) {
		return nil, Validation("name is required")
	}

	now := s.clock.Now()
	commander := in.IncidentCommanderID
	if commander == "" {
		commander = actor.UserID
	}
	m := &models.SARMission{
		ID:                  databases.NewID(),
		Name:                in.Name,
		Description:         in.Description,
		MissionType:         in.MissionType,
		Status:              models.MissionPlanning,
		IncidentCommanderID: commander,
		IsPublicVisible:     in.IsPublicVisible,
		PublicMessage:       in.PublicMessage,
		CreatedBy:           actor.UserID,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.missions.InsertOne(ctx, m); err != nil {
		return nil, storeErr(err, "mission")
	}
	zap.S().Infow("mission created", "missionId", m.ID, "type", m.MissionType, "createdBy", actor.UserID)
	m.Areas = []models.SARMissionArea{}
	return m, nil
}

// GetSARMission returns a mission with its areas in order
func (s *MissionService) GetSARMission(ctx context.Context, actor models.Actor, id string) (*models.SARMission, error) {
	m, err := s.missions.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "mission")
	}
	areas, err := s.areas.FindByMission(ctx, id)
	if err != nil {
		return nil, storeErr(err, "mission areas")
	}
	m.Areas = areas
	return m, nil
}

// ListSARMissions returns a page of missions
func (s *MissionService) ListSARMissions(ctx context.Context, actor models.Actor, filter databases.MissionFilter, page databases.Page) ([]models.SARMission, error) {
	list, err := s.missions.Find(ctx, filter, page)
	if err != nil {
		return nil, storeErr(err, "missions")
	}
	return list, nil
}

// ListPublicMissions returns the public view of active missions flagged as public. It needs no actor.
func (s *MissionService) ListPublicMissions(ctx context.Context, page databases.Page) ([]models.PublicMission, error) {
	list, err := s.missions.Find(ctx, databases.MissionFilter{Status: models.MissionActive, PublicOnly: true}, page)
	if err != nil {
		return nil, storeErr(err, "missions")
	}
	out := make([]models.PublicMission, 0, len(list))
	for _, m := range list {
		out = append(out, models.PublicMission{
			ID:            m.ID,
			Name:          m.Name,
			Status:        m.Status,
			PublicMessage: m.PublicMessage,
			StartedAt:     m.StartedAt,
		})
	}
	return out, nil
}

func missionClosed(m *models.SARMission) error {
	return &Error{Kind: KindMissionClosed, Message: "mission is " + string(m.Status)}
}

func (s *MissionService) commandable(ctx context.Context, actor models.Actor, id string) (*models.SARMission, error) {
	m, err := s.missions.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "mission")
	}
	if !canCommand(actor, m.IncidentCommanderID) {
		return nil, Forbidden("only the incident commander or an officer can manage this mission")
	}
	return m, nil
}

// UpdateSARMission changes descriptive and public fields of a mission that is not finished
func (s *MissionService) UpdateSARMission(ctx context.Context, actor models.Actor, id string, d databases.MissionDetails) (*models.SARMission, error) {
	m, err := s.commandable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if m.Status.IsTerminal() {
		return nil, missionClosed(m)
	}
	if d.Name != nil && blank(*d.Name) {
		return nil, Validation("name cannot be empty")
	}
	updated, err := s.missions.UpdateDetails(ctx, id, d, s.clock.Now())
	if errors.Is(err, databases.ErrConditionFailed) {
		if m, err = s.missions.FindByID(ctx, id); err == nil {
			return nil, missionClosed(m)
		}
	}
	if err != nil {
		return nil, storeErr(err, "mission")
	}
	return updated, nil
}

// StartMission moves a planned mission to active
func (s *MissionService) StartMission(ctx context.Context, actor models.Actor, id string) (*models.SARMission, error) {
	return s.transition(ctx, actor, id, models.MissionActive)
}

// CompleteMission moves an active mission to completed
func (s *MissionService) CompleteMission(ctx context.Context, actor models.Actor, id string) (*models.SARMission, error) {
	return s.transition(ctx, actor, id, models.MissionCompleted)
}

// CancelMission cancels a planned or active mission
func (s *MissionService) CancelMission(ctx context.Context, actor models.Actor, id string) (*models.SARMission, error) {
	return s.transition(ctx, actor, id, models.MissionCancelled)
}

// transition is idempotent when the mission already has status to
func (s *MissionService) transition(ctx context.Context, actor models.Actor, id string, to models.MissionStatus) (*models.SARMission, error) {
	m, err := s.commandable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := checkMissionMove(m, to); err != nil {
		return nil, err
	}
	if m.Status == to {
		return m, nil
	}

	updated, err := s.missions.Transition(ctx, id, missionSources[to], to, s.clock.Now())
	if errors.Is(err, databases.ErrConditionFailed) {
		if m, err = s.missions.FindByID(ctx, id); err != nil {
			return nil, storeErr(err, "mission")
		}
		if m.Status == to {
			return m, nil
		}
		if err := checkMissionMove(m, to); err != nil {
			return nil, err
		}
		return nil, Conflict("mission was modified concurrently")
	}
	if err != nil {
		return nil, storeErr(err, "mission")
	}
	zap.S().Infow("mission status changed", "missionId", id, "from", m.Status, "to", to, "by", actor.UserID)

	if to == models.MissionActive && updated.MissionType == models.MissionTypeActive {
		s.dispatcher.Dispatch(ctx, notify.Message{
			Type:     models.NotificationMission,
			Title:    "SAR mission started: " + updated.Name,
			Body:     updated.Description,
			Data:     map[string]interface{}{"missionId": id},
			Audience: &notify.Audience{MinRole: models.RoleMember, ExcludeUserID: actor.UserID},
		})
	}
	return updated, nil
}

// checkMissionMove reports why m cannot move to to, or nil when it can or already has
func checkMissionMove(m *models.SARMission, to models.MissionStatus) error {
	if m.Status == to {
		return nil
	}
	if m.Status.IsTerminal() {
		return missionClosed(m)
	}
	for _, from := range missionSources[to] {
		if m.Status == from {
			return nil
		}
	}
	return InvalidTransition("cannot move mission from %s to %s", m.Status, to)
}

// CreateArea appends a search area to a mission that is not finished
func (s *MissionService) CreateArea(ctx context.Context, actor models.Actor, missionID string, in AreaInput) (*models.SARMissionArea, error) {
	if blank(in.Name) {
		return nil, Validation("name is required")
	}
	m, err := s.commandable(ctx, actor, missionID)
	if err != nil {
		return nil, err
	}
	if m.Status.IsTerminal() {
		return nil, missionClosed(m)
	}
	order, err := s.areas.CountByMission(ctx, missionID)
	if err != nil {
		return nil, storeErr(err, "mission areas")
	}

	now := s.clock.Now()
	a := &models.SARMissionArea{
		ID:          databases.NewID(),
		MissionID:   missionID,
		Order:       int(order),
		Name:        in.Name,
		Coordinates: in.Coordinates,
		Status:      models.AreaUnassigned,
		AssignedTo:  in.AssignedTo,
		Notes:       in.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if a.Coordinates == nil {
		a.Coordinates = []models.Coordinate{}
	}
	if err := s.areas.InsertOne(ctx, a); err != nil {
		return nil, storeErr(err, "mission area")
	}
	if err := s.undoIfClosed(ctx, missionID, a, nil); err != nil {
		return nil, err
	}
	s.notifyAssignee(ctx, m, a, actor)
	return a, nil
}

// ListAreas returns the areas of a mission in order
func (s *MissionService) ListAreas(ctx context.Context, actor models.Actor, missionID string) ([]models.SARMissionArea, error) {
	if _, err := s.missions.FindByID(ctx, missionID); err != nil {
		return nil, storeErr(err, "mission")
	}
	list, err := s.areas.FindByMission(ctx, missionID)
	if err != nil {
		return nil, storeErr(err, "mission areas")
	}
	return list, nil
}

// UpdateArea changes an area. The assigned member may move its status and add notes; everything
// else needs the incident commander or an officer.
func (s *MissionService) UpdateArea(ctx context.Context, actor models.Actor, missionID, areaID string, u databases.AreaUpdate) (*models.SARMissionArea, error) {
	a, err := s.areas.FindByID(ctx, areaID)
	if err != nil {
		return nil, storeErr(err, "mission area")
	}
	if a.MissionID != missionID {
		return nil, NotFound("mission area not found")
	}
	m, err := s.missions.FindByID(ctx, missionID)
	if err != nil {
		return nil, storeErr(err, "mission")
	}
	if m.Status.IsTerminal() {
		return nil, missionClosed(m)
	}
	if !canCommand(actor, m.IncidentCommanderID) {
		assignee := a.AssignedTo != "" && a.AssignedTo == actor.UserID
		if !assignee || u.Name != nil || u.AssignedTo != nil || u.Coordinates != nil {
			return nil, Forbidden("only the incident commander or an officer can change this area")
		}
	}
	if u.Name != nil && blank(*u.Name) {
		return nil, Validation("name cannot be empty")
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, Validation("status must be one of unassigned, searching, cleared, completed")
		}
		if *u.Status == a.Status {
			u.Status = nil
		} else if !areaMoveAllowed(a.Status, *u.Status) {
			return nil, InvalidTransition("cannot move area from %s to %s", a.Status, *u.Status)
		}
	}

	updated, err := s.areas.Update(ctx, areaID, a.Status, u, s.clock.Now())
	if err != nil {
		return nil, storeErr(err, "mission area")
	}
	if err := s.undoIfClosed(ctx, missionID, updated, a); err != nil {
		return nil, err
	}
	if u.AssignedTo != nil && *u.AssignedTo != a.AssignedTo {
		s.notifyAssignee(ctx, m, updated, actor)
	}
	return updated, nil
}

// undoIfClosed re-reads the mission after an area write and puts the area back the way it was
// when the mission finished in between
func (s *MissionService) undoIfClosed(ctx context.Context, missionID string, written, prev *models.SARMissionArea) error {
	m, err := s.missions.FindByID(ctx, missionID)
	if err != nil {
		return storeErr(err, "mission")
	}
	if !m.Status.IsTerminal() {
		return nil
	}
	if err := s.areas.Revert(ctx, written, prev); err != nil {
		zap.S().Errorw("failed to revert area on finished mission", "missionId", missionID, "areaId", written.ID, "error", err)
	}
	return missionClosed(m)
}

func areaMoveAllowed(from, to models.AreaStatus) bool {
	for _, next := range areaEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *MissionService) notifyAssignee(ctx context.Context, m *models.SARMission, a *models.SARMissionArea, actor models.Actor) {
	if a.AssignedTo == "" || a.AssignedTo == actor.UserID {
		return
	}
	s.dispatcher.Dispatch(ctx, notify.Message{
		Type:         models.NotificationMissionArea,
		Title:        "Search area assigned: " + a.Name,
		Body:         m.Name,
		Data:         map[string]interface{}{"missionId": m.ID, "areaId": a.ID},
		RecipientIDs: []string{a.AssignedTo},
	})
}
