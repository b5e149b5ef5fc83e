package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const revokedTokenName = "revokedtokens"

// RevokedTokenDatabase records logged-out token ids until they would have expired anyway
type RevokedTokenDatabase interface {
	Revoke(context.Context, models.RevokedToken) error
	IsRevoked(context.Context, string) (bool, error)
	DeleteExpired(context.Context, time.Time) (int64, error)
}

type revokedTokenDatabase struct {
	db DatabaseHelper
}

// NewRevokedTokenDatabase initializes a new instance of revoked token database with the provided db connection
func NewRevokedTokenDatabase(db DatabaseHelper) RevokedTokenDatabase {
	return &revokedTokenDatabase{
		db: db,
	}
}

func (r *revokedTokenDatabase) Revoke(ctx context.Context, t models.RevokedToken) error {
	update := bson.M{"$set": bson.M{"userId": t.UserID, "expiresAt": t.ExpiresAt}}
	_, err := r.db.Collection(revokedTokenName).UpdateOne(ctx, bson.M{"_id": t.TokenID}, update, options.Update().SetUpsert(true))
	return err
}

func (r *revokedTokenDatabase) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.db.Collection(revokedTokenName).CountDocuments(ctx, bson.M{"_id": tokenID})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *revokedTokenDatabase) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.db.Collection(revokedTokenName).DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now}})
}
