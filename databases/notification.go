package databases

// go generate: mockery --name NotificationDatabase

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const notificationName = "notifications"

// NotificationDatabase contains the methods to use with the notification database
type NotificationDatabase interface {
	// InsertMany stores notes, skipping any whose id is already stored
	InsertMany(context.Context, []models.Notification) error
	FindByUser(ctx context.Context, userID string, unreadOnly bool, p Page) ([]models.Notification, error)
	// MarkRead flags a notification owned by userID as read. ErrConditionFailed means the
	// notification belongs to someone else.
	MarkRead(ctx context.Context, id, userID string, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error)
	// DeleteExpired removes notifications past expiresAt and read notifications created before readBefore
	DeleteExpired(ctx context.Context, now, readBefore time.Time) (int64, error)
}

type notificationDatabase struct {
	db DatabaseHelper
}

// NewNotificationDatabase initializes a new instance of notification database with the provided db connection
func NewNotificationDatabase(db DatabaseHelper) NotificationDatabase {
	return &notificationDatabase{
		db: db,
	}
}

func (n *notificationDatabase) InsertMany(ctx context.Context, notes []models.Notification) error {
	if len(notes) == 0 {
		return nil
	}
	docs := make([]interface{}, len(notes))
	for i := range notes {
		docs[i] = notes[i]
	}
	err := n.db.Collection(notificationName).InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}

func (n *notificationDatabase) FindByUser(ctx context.Context, userID string, unreadOnly bool, p Page) ([]models.Notification, error) {
	filter := bson.M{"userId": userID}
	if unreadOnly {
		filter["isRead"] = false
	}
	opts := p.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.Notification](ctx, n.db.Collection(notificationName), filter, opts)
}

func (n *notificationDatabase) MarkRead(ctx context.Context, id, userID string, at time.Time) (*models.Notification, error) {
	note := &models.Notification{}
	update := bson.M{"$set": bson.M{"isRead": true, "readAt": at}}
	if err := updateWhere(ctx, n.db.Collection(notificationName), id, bson.M{"userId": userID}, update, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (n *notificationDatabase) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	filter := bson.M{"userId": userID, "isRead": false}
	update := bson.M{"$set": bson.M{"isRead": true, "readAt": at}}
	res, err := n.db.Collection(notificationName).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (n *notificationDatabase) DeleteExpired(ctx context.Context, now, readBefore time.Time) (int64, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"expiresAt": bson.M{"$lte": now}},
		bson.M{"isRead": true, "createdAt": bson.M{"$lt": readBefore}},
	}}
	return n.db.Collection(notificationName).DeleteMany(ctx, filter)
}
