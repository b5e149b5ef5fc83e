package databases

// go generate: mockery --name IncidentDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const (
	incidentName         = "incidents"
	incidentResourceName = "incidentresources"
)

// IncidentFilter narrows incident listings
type IncidentFilter struct {
	Status models.IncidentStatus
}

// IncidentDatabase contains the methods to use with the incident database
type IncidentDatabase interface {
	InsertOne(context.Context, *models.Incident) error
	FindByID(context.Context, string) (*models.Incident, error)
	Find(context.Context, IncidentFilter, Page) ([]models.Incident, error)
	// Close moves an active incident to resolved or cancelled
	Close(ctx context.Context, id string, to models.IncidentStatus, at time.Time) (*models.Incident, error)
}

// IncidentResourceDatabase contains the methods to use with the incident resource database.
// InsertOne returns ErrDuplicate when the incident already has a live resource with the same name.
type IncidentResourceDatabase interface {
	InsertOne(context.Context, *models.IncidentResource) error
	FindByID(context.Context, string) (*models.IncidentResource, error)
	FindByIncident(context.Context, string) ([]models.IncidentResource, error)
	Transition(ctx context.Context, id string, from, to models.ResourceStatus, at time.Time) (*models.IncidentResource, error)
	// Revert puts prev back in place of written, or removes written when prev is nil
	Revert(ctx context.Context, written, prev *models.IncidentResource) error
}

type incidentDatabase struct {
	db DatabaseHelper
}

type incidentResourceDatabase struct {
	db DatabaseHelper
}

// NewIncidentDatabase initializes a new instance of incident database with the provided db connection
func NewIncidentDatabase(db DatabaseHelper) IncidentDatabase {
	return &incidentDatabase{
		db: db,
	}
}

// NewIncidentResourceDatabase initializes a new instance of incident resource database with the provided db connection
func NewIncidentResourceDatabase(db DatabaseHelper) IncidentResourceDatabase {
	return &incidentResourceDatabase{
		db: db,
	}
}

func (i *incidentDatabase) InsertOne(ctx context.Context, incident *models.Incident) error {
	_, err := i.db.Collection(incidentName).InsertOne(ctx, incident)
	return err
}

func (i *incidentDatabase) FindByID(ctx context.Context, id string) (*models.Incident, error) {
	return findByID[models.Incident](ctx, i.db.Collection(incidentName), id)
}

func (i *incidentDatabase) Find(ctx context.Context, f IncidentFilter, p Page) ([]models.Incident, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := p.findOptions().SetSort(bson.D{{Key: "startedAt", Value: -1}})
	return findAll[models.Incident](ctx, i.db.Collection(incidentName), filter, opts)
}

func (i *incidentDatabase) Close(ctx context.Context, id string, to models.IncidentStatus, at time.Time) (*models.Incident, error) {
	set := bson.M{"status": to, "updatedAt": at}
	switch to {
	case models.IncidentResolved:
		set["resolvedAt"] = at
	case models.IncidentCancelled:
		set["cancelledAt"] = at
	}
	incident := &models.Incident{}
	cond := bson.M{"status": models.IncidentActive}
	if err := updateWhere(ctx, i.db.Collection(incidentName), id, cond, bson.M{"$set": set}, incident); err != nil {
		return nil, err
	}
	return incident, nil
}

func (r *incidentResourceDatabase) InsertOne(ctx context.Context, res *models.IncidentResource) error {
	res.Active = res.Status != models.ResourceUnavailable
	_, err := r.db.Collection(incidentResourceName).InsertOne(ctx, res)
	return err
}

func (r *incidentResourceDatabase) FindByID(ctx context.Context, id string) (*models.IncidentResource, error) {
	return findByID[models.IncidentResource](ctx, r.db.Collection(incidentResourceName), id)
}

func (r *incidentResourceDatabase) FindByIncident(ctx context.Context, incidentID string) ([]models.IncidentResource, error) {
	opts := options.Find().SetSort(bson.D{{Key: "assignedAt", Value: 1}})
	return findAll[models.IncidentResource](ctx, r.db.Collection(incidentResourceName), bson.M{"incidentId": incidentID}, opts)
}

func (r *incidentResourceDatabase) Transition(ctx context.Context, id string, from, to models.ResourceStatus, at time.Time) (*models.IncidentResource, error) {
	update := bson.M{"$set": bson.M{
		"status":    to,
		"active":    to != models.ResourceUnavailable,
		"updatedAt": at,
	}}
	res := &models.IncidentResource{}
	if err := updateWhere(ctx, r.db.Collection(incidentResourceName), id, bson.M{"status": from}, update, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *incidentResourceDatabase) Revert(ctx context.Context, written, prev *models.IncidentResource) error {
	if prev == nil {
		return revertRow(ctx, r.db.Collection(incidentResourceName), written.ID, written.UpdatedAt, nil)
	}
	return revertRow(ctx, r.db.Collection(incidentResourceName), written.ID, written.UpdatedAt, prev)
}
