package databases

// go generate: mockery --name CalloutReportDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/geijin5/apsar-emergency-api/models"
)

const calloutReportName = "calloutreports"

// ReportFilter narrows report listings. Empty fields match everything.
type ReportFilter struct {
	SubmittedBy string
	Status      models.ReportStatus
}

// CalloutReportDatabase contains the methods to use with the callout report database
type CalloutReportDatabase interface {
	InsertOne(context.Context, *models.CalloutReport) error
	FindByID(context.Context, string) (*models.CalloutReport, error)
	Find(context.Context, ReportFilter, Page) ([]models.CalloutReport, error)
	// Replace stores r when the stored version equals expected. r.Version is advanced to
	// expected+1 before writing. ErrConditionFailed means another write won.
	Replace(ctx context.Context, r *models.CalloutReport, expected int64) error
}

type calloutReportDatabase struct {
	db DatabaseHelper
}

// NewCalloutReportDatabase initializes a new instance of callout report database with the provided db connection
func NewCalloutReportDatabase(db DatabaseHelper) CalloutReportDatabase {
	return &calloutReportDatabase{
		db: db,
	}
}

func (c *calloutReportDatabase) InsertOne(ctx context.Context, r *models.CalloutReport) error {
	_, err := c.db.Collection(calloutReportName).InsertOne(ctx, r)
	return err
}

func (c *calloutReportDatabase) FindByID(ctx context.Context, id string) (*models.CalloutReport, error) {
	return findByID[models.CalloutReport](ctx, c.db.Collection(calloutReportName), id)
}

func (c *calloutReportDatabase) Find(ctx context.Context, f ReportFilter, p Page) ([]models.CalloutReport, error) {
	filter := bson.M{}
	if f.SubmittedBy != "" {
		filter["submittedBy"] = f.SubmittedBy
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := p.findOptions().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	return findAll[models.CalloutReport](ctx, c.db.Collection(calloutReportName), filter, opts)
}

func (c *calloutReportDatabase) Replace(ctx context.Context, r *models.CalloutReport, expected int64) error {
	r.Version = expected + 1
	return replaceVersioned(ctx, c.db.Collection(calloutReportName), r.ID, expected, r)
}
