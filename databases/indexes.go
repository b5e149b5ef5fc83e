package databases

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		userName: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "unit", Value: 1}}},
		},
		callOutName: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		callOutResponseName: {
			{Keys: bson.D{{Key: "callOutId", Value: 1}, {Key: "userId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		sarMissionName: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "isPublicVisible", Value: 1}}},
		},
		sarMissionAreaName: {
			{Keys: bson.D{{Key: "missionId", Value: 1}, {Key: "order", Value: 1}}},
		},
		incidentName: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "startedAt", Value: -1}}},
		},
		incidentResourceName: {
			{Keys: bson.D{{Key: "incidentId", Value: 1}, {Key: "resourceName", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"active": true})},
		},
		calloutReportName: {
			{Keys: bson.D{{Key: "submittedBy", Value: 1}, {Key: "status", Value: 1}}},
		},
		checklistName: {
			{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "status", Value: 1}}},
		},
		chatRoomName: {
			{Keys: bson.D{{Key: "members", Value: 1}}},
		},
		chatMessageName: {
			{Keys: bson.D{{Key: "roomId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		notificationName: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		pushTokenCollectionName: {
			{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		revokedTokenName: {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
	}
}

// EnsureIndexes creates the indexes the stores rely on for uniqueness and lookups
func EnsureIndexes(ctx context.Context, db DatabaseHelper) error {
	for coll, idx := range indexes() {
		if err := db.Collection(coll).CreateIndexes(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
