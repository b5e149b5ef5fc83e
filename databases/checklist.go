package databases

// go generate: mockery --name ChecklistDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/geijin5/apsar-emergency-api/models"
)

const (
	checklistTemplateName = "checklisttemplates"
	checklistName         = "checklists"
)

// ChecklistFilter narrows checklist listings
type ChecklistFilter struct {
	AssignedTo string
	Status     models.ChecklistStatus
}

// ChecklistTemplateDatabase contains the methods to use with the checklist template database
type ChecklistTemplateDatabase interface {
	InsertOne(context.Context, *models.ChecklistTemplate) error
	FindByID(context.Context, string) (*models.ChecklistTemplate, error)
	Find(context.Context, Page) ([]models.ChecklistTemplate, error)
}

// ChecklistDatabase contains the methods to use with the checklist database
type ChecklistDatabase interface {
	InsertOne(context.Context, *models.Checklist) error
	FindByID(context.Context, string) (*models.Checklist, error)
	Find(context.Context, ChecklistFilter, Page) ([]models.Checklist, error)
	// Replace stores c when the stored version equals expected, advancing c.Version
	Replace(ctx context.Context, c *models.Checklist, expected int64) error
}

type checklistTemplateDatabase struct {
	db DatabaseHelper
}

type checklistDatabase struct {
	db DatabaseHelper
}

// NewChecklistTemplateDatabase initializes a new instance of checklist template database with the provided db connection
func NewChecklistTemplateDatabase(db DatabaseHelper) ChecklistTemplateDatabase {
	return &checklistTemplateDatabase{
		db: db,
	}
}

// NewChecklistDatabase initializes a new instance of checklist database with the provided db connection
func NewChecklistDatabase(db DatabaseHelper) ChecklistDatabase {
	return &checklistDatabase{
		db: db,
	}
}

func (t *checklistTemplateDatabase) InsertOne(ctx context.Context, tpl *models.ChecklistTemplate) error {
	_, err := t.db.Collection(checklistTemplateName).InsertOne(ctx, tpl)
	return err
}

func (t *checklistTemplateDatabase) FindByID(ctx context.Context, id string) (*models.ChecklistTemplate, error) {
	return findByID[models.ChecklistTemplate](ctx, t.db.Collection(checklistTemplateName), id)
}

func (t *checklistTemplateDatabase) Find(ctx context.Context, p Page) ([]models.ChecklistTemplate, error) {
	opts := p.findOptions().SetSort(bson.D{{Key: "name", Value: 1}})
	return findAll[models.ChecklistTemplate](ctx, t.db.Collection(checklistTemplateName), bson.M{}, opts)
}

func (c *checklistDatabase) InsertOne(ctx context.Context, cl *models.Checklist) error {
	_, err := c.db.Collection(checklistName).InsertOne(ctx, cl)
	return err
}

func (c *checklistDatabase) FindByID(ctx context.Context, id string) (*models.Checklist, error) {
	return findByID[models.Checklist](ctx, c.db.Collection(checklistName), id)
}

func (c *checklistDatabase) Find(ctx context.Context, f ChecklistFilter, p Page) ([]models.Checklist, error) {
	filter := bson.M{}
	if f.AssignedTo != "" {
		filter["assignedTo"] = f.AssignedTo
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := p.findOptions().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	return findAll[models.Checklist](ctx, c.db.Collection(checklistName), filter, opts)
}

func (c *checklistDatabase) Replace(ctx context.Context, cl *models.Checklist, expected int64) error {
	cl.Version = expected + 1
	return replaceVersioned(ctx, c.db.Collection(checklistName), cl.ID, expected, cl)
}
