package databases

// go generate: mockery --name PushTokenDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const pushTokenCollectionName = "pushtokens"

// PushTokenDatabase contains the methods to use with the push token database.
// A device token belongs to at most one user; registering it again moves it.
type PushTokenDatabase interface {
	Upsert(context.Context, *models.PushToken) error
	FindByUsers(context.Context, []string) ([]models.PushToken, error)
	DeleteForUser(ctx context.Context, userID, token string) (int64, error)
	DeleteByTokens(context.Context, []string) (int64, error)
}

type pushTokenDatabase struct {
	db DatabaseHelper
}

// NewPushTokenDatabase initializes a new instance of push token database with the provided db connection
func NewPushTokenDatabase(db DatabaseHelper) PushTokenDatabase {
	return &pushTokenDatabase{
		db: db,
	}
}

func (pt *pushTokenDatabase) Upsert(ctx context.Context, token *models.PushToken) error {
	update := bson.M{
		"$set": bson.M{
			"userId":    token.UserID,
			"platform":  token.Platform,
			"updatedAt": token.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"_id":       NewID(),
			"createdAt": token.CreatedAt,
		},
	}
	_, err := pt.db.Collection(pushTokenCollectionName).UpdateOne(ctx, bson.M{"token": token.Token}, update, options.Update().SetUpsert(true))
	return err
}

func (pt *pushTokenDatabase) FindByUsers(ctx context.Context, userIDs []string) ([]models.PushToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return findAll[models.PushToken](ctx, pt.db.Collection(pushTokenCollectionName), bson.M{"userId": bson.M{"$in": userIDs}})
}

func (pt *pushTokenDatabase) DeleteForUser(ctx context.Context, userID, token string) (int64, error) {
	return pt.db.Collection(pushTokenCollectionName).DeleteOne(ctx, bson.M{"userId": userID, "token": token})
}

func (pt *pushTokenDatabase) DeleteByTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}
	return pt.db.Collection(pushTokenCollectionName).DeleteMany(ctx, bson.M{"token": bson.M{"$in": tokens}})
}
