package databases

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

// Page selects a window of a result set. Page numbers start at 1.
type Page struct {
	Limit int
	Page  int
}

// Normalize clamps the limit and page to usable values
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Page < 1 {
		p.Page = 1
	}
	return p
}

// Skip returns the number of records before the page
func (p Page) Skip() int {
	p = p.Normalize()
	return p.Page*p.Limit - p.Limit
}

func (p Page) findOptions() *options.FindOptions {
	p = p.Normalize()
	l := int64(p.Limit)
	skip := int64(p.Skip())
	return &options.FindOptions{Limit: &l, Skip: &skip}
}

// NewID returns a new entity id
func NewID() string {
	return primitive.NewObjectID().Hex()
}

func findAll[T any](ctx context.Context, coll CollectionHelper, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := cur.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func findByID[T any](ctx context.Context, coll CollectionHelper, id string) (*T, error) {
	out := new(T)
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out); err != nil {
		return nil, err
	}
	return out, nil
}

// updateWhere applies update to the document with id when cond also matches and decodes the
// updated document into out. A missing document yields ErrNotFound, a failed condition
// ErrConditionFailed.
func updateWhere(ctx context.Context, coll CollectionHelper, id string, cond bson.M, update bson.M, out interface{}) error {
	filter := bson.M{"_id": id}
	for k, v := range cond {
		filter[k] = v
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return missingOrStale(ctx, coll, id)
}

// replaceVersioned replaces the document with id when its stored version equals expected
func replaceVersioned(ctx context.Context, coll CollectionHelper, id string, expected int64, doc interface{}) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "version": expected}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	return missingOrStale(ctx, coll, id)
}

func missingOrStale(ctx context.Context, coll CollectionHelper, id string) error {
	n, err := coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConditionFailed
}

// revertRow undoes a write that left the document id stamped with writtenAt. A nil prev removes
// the document, anything else is put back in its place. A document that changed again since
// is left alone.
func revertRow(ctx context.Context, coll CollectionHelper, id string, writtenAt time.Time, prev interface{}) error {
	if prev == nil {
		_, err := coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	}
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id, "updatedAt": writtenAt}, prev)
	return err
}
