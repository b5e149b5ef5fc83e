package databases

// go generate: mockery --name CallOutDatabase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const (
	callOutName         = "callouts"
	callOutResponseName = "calloutresponses"
)

// CallOutFilter narrows call-out listings
type CallOutFilter struct {
	Status models.CallOutStatus
}

// CallOutDatabase contains the methods to use with the call-out database
type CallOutDatabase interface {
	InsertOne(context.Context, *models.CallOut) error
	FindByID(context.Context, string) (*models.CallOut, error)
	Find(context.Context, CallOutFilter, Page) ([]models.CallOut, error)
	// Close moves an active call-out to a terminal status. It returns ErrConditionFailed
	// when the call-out is no longer active.
	Close(ctx context.Context, id string, status models.CallOutStatus, closedBy string, at time.Time) (*models.CallOut, error)
}

// CallOutResponseDatabase contains the methods to use with the call-out response database.
// Rows are unique on (callOutId, userId).
type CallOutResponseDatabase interface {
	// Upsert inserts or updates the row keyed by (CallOutID, UserID). RespondedAt is only
	// written on insert.
	Upsert(context.Context, *models.CallOutResponse) (*models.CallOutResponse, error)
	FindOne(ctx context.Context, callOutID, userID string) (*models.CallOutResponse, error)
	FindByCallOut(context.Context, string) ([]models.CallOutResponse, error)
	// Summaries counts responders per status for each call-out id
	Summaries(context.Context, []string) (map[string]map[models.ResponseStatus]int, error)
	// Revert undoes the upsert that stored written: prev is put back, or the row is removed
	// when prev is nil
	Revert(ctx context.Context, written, prev *models.CallOutResponse) error
}

type callOutDatabase struct {
	db DatabaseHelper
}

type callOutResponseDatabase struct {
	db DatabaseHelper
}

// NewCallOutDatabase initializes a new instance of call-out database with the provided db connection
func NewCallOutDatabase(db DatabaseHelper) CallOutDatabase {
	return &callOutDatabase{
		db: db,
	}
}

// NewCallOutResponseDatabase initializes a new instance of call-out response database with the provided db connection
func NewCallOutResponseDatabase(db DatabaseHelper) CallOutResponseDatabase {
	return &callOutResponseDatabase{
		db: db,
	}
}

func (c *callOutDatabase) InsertOne(ctx context.Context, co *models.CallOut) error {
	_, err := c.db.Collection(callOutName).InsertOne(ctx, co)
	return err
}

func (c *callOutDatabase) FindByID(ctx context.Context, id string) (*models.CallOut, error) {
	return findByID[models.CallOut](ctx, c.db.Collection(callOutName), id)
}

func (c *callOutDatabase) Find(ctx context.Context, f CallOutFilter, p Page) ([]models.CallOut, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := p.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.CallOut](ctx, c.db.Collection(callOutName), filter, opts)
}

func (c *callOutDatabase) Close(ctx context.Context, id string, status models.CallOutStatus, closedBy string, at time.Time) (*models.CallOut, error) {
	co := &models.CallOut{}
	update := bson.M{"$set": bson.M{
		"status":    status,
		"closedBy":  closedBy,
		"closedAt":  at,
		"updatedAt": at,
	}}
	cond := bson.M{"status": models.CallOutActive}
	if err := updateWhere(ctx, c.db.Collection(callOutName), id, cond, update, co); err != nil {
		return nil, err
	}
	return co, nil
}

func (c *callOutResponseDatabase) Upsert(ctx context.Context, r *models.CallOutResponse) (*models.CallOutResponse, error) {
	filter := bson.M{"callOutId": r.CallOutID, "userId": r.UserID}
	update := bson.M{
		"$set": bson.M{
			"userName":         r.UserName,
			"status":           r.Status,
			"estimatedArrival": r.EstimatedArrival,
			"notes":            r.Notes,
			"updatedAt":        r.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":         NewID(),
			"respondedAt": r.RespondedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	out := &models.CallOutResponse{}
	err := c.db.Collection(callOutResponseName).FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if errors.Is(err, ErrDuplicate) {
		// two upserts for the same key raced on insert; the loser retries as an update
		out = &models.CallOutResponse{}
		err = c.db.Collection(callOutResponseName).FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *callOutResponseDatabase) FindOne(ctx context.Context, callOutID, userID string) (*models.CallOutResponse, error) {
	out := &models.CallOutResponse{}
	filter := bson.M{"callOutId": callOutID, "userId": userID}
	if err := c.db.Collection(callOutResponseName).FindOne(ctx, filter).Decode(out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *callOutResponseDatabase) FindByCallOut(ctx context.Context, callOutID string) ([]models.CallOutResponse, error) {
	opts := options.Find().SetSort(bson.D{{Key: "respondedAt", Value: 1}})
	return findAll[models.CallOutResponse](ctx, c.db.Collection(callOutResponseName), bson.M{"callOutId": callOutID}, opts)
}

func (c *callOutResponseDatabase) Revert(ctx context.Context, written, prev *models.CallOutResponse) error {
	if prev == nil {
		return revertRow(ctx, c.db.Collection(callOutResponseName), written.ID, written.UpdatedAt, nil)
	}
	return revertRow(ctx, c.db.Collection(callOutResponseName), written.ID, written.UpdatedAt, prev)
}

type responseCount struct {
	Key struct {
		CallOutID string                `bson:"callOutId"`
		Status    models.ResponseStatus `bson:"status"`
	} `bson:"_id"`
	Count int `bson:"count"`
}

func (c *callOutResponseDatabase) Summaries(ctx context.Context, callOutIDs []string) (map[string]map[models.ResponseStatus]int, error) {
	out := make(map[string]map[models.ResponseStatus]int, len(callOutIDs))
	if len(callOutIDs) == 0 {
		return out, nil
	}
	pipeline := bson.A{
		bson.M{"$match": bson.M{"callOutId": bson.M{"$in": callOutIDs}}},
		bson.M{"$group": bson.M{
			"_id":   bson.M{"callOutId": "$callOutId", "status": "$status"},
			"count": bson.M{"$sum": 1},
		}},
	}
	cur, err := c.db.Collection(callOutResponseName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var rows []responseCount
	if err := cur.Decode(&rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		m, ok := out[row.Key.CallOutID]
		if !ok {
			m = map[models.ResponseStatus]int{}
			out[row.Key.CallOutID] = m
		}
		m[row.Key.Status] = row.Count
	}
	return out, nil
}
