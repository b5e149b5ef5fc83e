package databases

// go generate: mockery --name SARMissionDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const (
	sarMissionName     = "sarmissions"
	sarMissionAreaName = "sarmissionareas"
)

// MissionFilter narrows mission listings
type MissionFilter struct {
	Status     models.MissionStatus
	Type       models.MissionType
	PublicOnly bool
}

// MissionDetails holds the mutable descriptive fields of a mission. Nil fields are left unchanged.
type MissionDetails struct {
	Name                *string
	Description         *string
	IncidentCommanderID *string
	IsPublicVisible     *bool
	PublicMessage       *string
}

// AreaUpdate holds the mutable fields of a mission area. Nil fields are left unchanged.
type AreaUpdate struct {
	Name        *string
	Status      *models.AreaStatus
	AssignedTo  *string
	Notes       *string
	Coordinates []models.Coordinate
}

// SARMissionDatabase contains the methods to use with the SAR mission database
type SARMissionDatabase interface {
	InsertOne(context.Context, *models.SARMission) error
	FindByID(context.Context, string) (*models.SARMission, error)
	Find(context.Context, MissionFilter, Page) ([]models.SARMission, error)
	// Transition moves a mission whose status is one of from to the status to and stamps the
	// matching timestamp. ErrConditionFailed means the stored status was not in from.
	Transition(ctx context.Context, id string, from []models.MissionStatus, to models.MissionStatus, at time.Time) (*models.SARMission, error)
	// UpdateDetails changes descriptive fields of a non-terminal mission
	UpdateDetails(ctx context.Context, id string, d MissionDetails, at time.Time) (*models.SARMission, error)
}

// SARMissionAreaDatabase contains the methods to use with the SAR mission area database
type SARMissionAreaDatabase interface {
	InsertOne(context.Context, *models.SARMissionArea) error
	FindByID(context.Context, string) (*models.SARMissionArea, error)
	FindByMission(context.Context, string) ([]models.SARMissionArea, error)
	CountByMission(context.Context, string) (int64, error)
	// Update applies u when the area's stored status still equals from
	Update(ctx context.Context, id string, from models.AreaStatus, u AreaUpdate, at time.Time) (*models.SARMissionArea, error)
	// Revert puts prev back in place of written, or removes written when prev is nil
	Revert(ctx context.Context, written, prev *models.SARMissionArea) error
}

type sarMissionDatabase struct {
	db DatabaseHelper
}

type sarMissionAreaDatabase struct {
	db DatabaseHelper
}

// NewSARMissionDatabase initializes a new instance of SAR mission database with the provided db connection
func NewSARMissionDatabase(db DatabaseHelper) SARMissionDatabase {
	return &sarMissionDatabase{
		db: db,
	}
}

// NewSARMissionAreaDatabase initializes a new instance of SAR mission area database with the provided db connection
func NewSARMissionAreaDatabase(db DatabaseHelper) SARMissionAreaDatabase {
	return &sarMissionAreaDatabase{
		db: db,
	}
}

func (m *sarMissionDatabase) InsertOne(ctx context.Context, mission *models.SARMission) error {
	_, err := m.db.Collection(sarMissionName).InsertOne(ctx, mission)
	return err
}

func (m *sarMissionDatabase) FindByID(ctx context.Context, id string) (*models.SARMission, error) {
	return findByID[models.SARMission](ctx, m.db.Collection(sarMissionName), id)
}

func (m *sarMissionDatabase) Find(ctx context.Context, f MissionFilter, p Page) ([]models.SARMission, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Type != "" {
		filter["missionType"] = f.Type
	}
	if f.PublicOnly {
		filter["isPublicVisible"] = true
	}
	opts := p.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.SARMission](ctx, m.db.Collection(sarMissionName), filter, opts)
}

// MissionTimestampField names the timestamp stamped when a mission enters status
func MissionTimestampField(status models.MissionStatus) string {
	switch status {
	case models.MissionActive:
		return "startedAt"
	case models.MissionCompleted:
		return "completedAt"
	case models.MissionCancelled:
		return "cancelledAt"
	}
	return ""
}

func (m *sarMissionDatabase) Transition(ctx context.Context, id string, from []models.MissionStatus, to models.MissionStatus, at time.Time) (*models.SARMission, error) {
	set := bson.M{"status": to, "updatedAt": at}
	if field := MissionTimestampField(to); field != "" {
		set[field] = at
	}
	mission := &models.SARMission{}
	cond := bson.M{"status": bson.M{"$in": from}}
	if err := updateWhere(ctx, m.db.Collection(sarMissionName), id, cond, bson.M{"$set": set}, mission); err != nil {
		return nil, err
	}
	return mission, nil
}

func (m *sarMissionDatabase) UpdateDetails(ctx context.Context, id string, d MissionDetails, at time.Time) (*models.SARMission, error) {
	set := bson.M{"updatedAt": at}
	if d.Name != nil {
		set["name"] = *d.Name
	}
	if d.Description != nil {
		set["description"] = *d.Description
	}
	if d.IncidentCommanderID != nil {
		set["incidentCommanderId"] = *d.IncidentCommanderID
	}
	if d.IsPublicVisible != nil {
		set["isPublicVisible"] = *d.IsPublicVisible
	}
	if d.PublicMessage != nil {
		set["publicMessage"] = *d.PublicMessage
	}
	mission := &models.SARMission{}
	cond := bson.M{"status": bson.M{"$in": []models.MissionStatus{models.MissionPlanning, models.MissionActive}}}
	if err := updateWhere(ctx, m.db.Collection(sarMissionName), id, cond, bson.M{"$set": set}, mission); err != nil {
		return nil, err
	}
	return mission, nil
}

func (a *sarMissionAreaDatabase) InsertOne(ctx context.Context, area *models.SARMissionArea) error {
	_, err := a.db.Collection(sarMissionAreaName).InsertOne(ctx, area)
	return err
}

func (a *sarMissionAreaDatabase) FindByID(ctx context.Context, id string) (*models.SARMissionArea, error) {
	return findByID[models.SARMissionArea](ctx, a.db.Collection(sarMissionAreaName), id)
}

func (a *sarMissionAreaDatabase) FindByMission(ctx context.Context, missionID string) ([]models.SARMissionArea, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}})
	return findAll[models.SARMissionArea](ctx, a.db.Collection(sarMissionAreaName), bson.M{"missionId": missionID}, opts)
}

func (a *sarMissionAreaDatabase) CountByMission(ctx context.Context, missionID string) (int64, error) {
	return a.db.Collection(sarMissionAreaName).CountDocuments(ctx, bson.M{"missionId": missionID})
}

func (a *sarMissionAreaDatabase) Update(ctx context.Context, id string, from models.AreaStatus, u AreaUpdate, at time.Time) (*models.SARMissionArea, error) {
	set := bson.M{"updatedAt": at}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	if u.AssignedTo != nil {
		set["assignedTo"] = *u.AssignedTo
	}
	if u.Notes != nil {
		set["notes"] = *u.Notes
	}
	if u.Coordinates != nil {
		set["coordinates"] = u.Coordinates
	}
	area := &models.SARMissionArea{}
	if err := updateWhere(ctx, a.db.Collection(sarMissionAreaName), id, bson.M{"status": from}, bson.M{"$set": set}, area); err != nil {
		return nil, err
	}
	return area, nil
}

func (a *sarMissionAreaDatabase) Revert(ctx context.Context, written, prev *models.SARMissionArea) error {
	if prev == nil {
		return revertRow(ctx, a.db.Collection(sarMissionAreaName), written.ID, written.UpdatedAt, nil)
	}
	return revertRow(ctx, a.db.Collection(sarMissionAreaName), written.ID, written.UpdatedAt, prev)
}
