package databases

// go generate: mockery --name ChatMessageDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/geijin5/apsar-emergency-api/models"
)

const (
	chatRoomName    = "chatrooms"
	chatMessageName = "chatmessages"
)

// ChatRoomDatabase contains the methods to use with the chat room database
type ChatRoomDatabase interface {
	InsertOne(context.Context, *models.ChatRoom) error
	FindByID(context.Context, string) (*models.ChatRoom, error)
	// FindForMember returns rooms listing userID as a member, the unit rooms of unit and every
	// general room
	FindForMember(ctx context.Context, userID, unit string) ([]models.ChatRoom, error)
}

// ChatMessageDatabase contains the methods to use with the chat message database
type ChatMessageDatabase interface {
	InsertOne(context.Context, *models.ChatMessage) error
	FindByID(context.Context, string) (*models.ChatMessage, error)
	// FindByRoom returns a page of a room's messages, newest first
	FindByRoom(context.Context, string, Page) ([]models.ChatMessage, error)
	// Edit replaces the text of a live message whose current text is still prev.Message,
	// keeping prev in the edit log
	Edit(ctx context.Context, id, text string, prev models.MessageEdit, at time.Time) (*models.ChatMessage, error)
	// SoftDelete flags a live message as deleted
	SoftDelete(ctx context.Context, id, by string, at time.Time) (*models.ChatMessage, error)
	// MarkRead adds a read receipt for userID to every message in the room it has not read
	MarkRead(ctx context.Context, roomID, userID string, at time.Time) (int64, error)
}

type chatRoomDatabase struct {
	db DatabaseHelper
}

type chatMessageDatabase struct {
	db DatabaseHelper
}

// NewChatRoomDatabase initializes a new instance of chat room database with the provided db connection
func NewChatRoomDatabase(db DatabaseHelper) ChatRoomDatabase {
	return &chatRoomDatabase{
		db: db,
	}
}

// NewChatMessageDatabase initializes a new instance of chat message database with the provided db connection
func NewChatMessageDatabase(db DatabaseHelper) ChatMessageDatabase {
	return &chatMessageDatabase{
		db: db,
	}
}

func (c *chatRoomDatabase) InsertOne(ctx context.Context, room *models.ChatRoom) error {
	_, err := c.db.Collection(chatRoomName).InsertOne(ctx, room)
	return err
}

func (c *chatRoomDatabase) FindByID(ctx context.Context, id string) (*models.ChatRoom, error) {
	return findByID[models.ChatRoom](ctx, c.db.Collection(chatRoomName), id)
}

func (c *chatRoomDatabase) FindForMember(ctx context.Context, userID, unit string) ([]models.ChatRoom, error) {
	or := bson.A{
		bson.M{"members": userID},
		bson.M{"type": models.RoomGeneral},
	}
	if unit != "" {
		or = append(or, bson.M{"type": models.RoomUnit, "unit": unit})
	}
	filter := bson.M{"$or": or}
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	return findAll[models.ChatRoom](ctx, c.db.Collection(chatRoomName), filter, opts)
}

func (c *chatMessageDatabase) InsertOne(ctx context.Context, msg *models.ChatMessage) error {
	_, err := c.db.Collection(chatMessageName).InsertOne(ctx, msg)
	return err
}

func (c *chatMessageDatabase) FindByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	return findByID[models.ChatMessage](ctx, c.db.Collection(chatMessageName), id)
}

func (c *chatMessageDatabase) FindByRoom(ctx context.Context, roomID string, p Page) ([]models.ChatMessage, error) {
	opts := p.findOptions().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[models.ChatMessage](ctx, c.db.Collection(chatMessageName), bson.M{"roomId": roomID}, opts)
}

func (c *chatMessageDatabase) Edit(ctx context.Context, id, text string, prev models.MessageEdit, at time.Time) (*models.ChatMessage, error) {
	update := bson.M{
		"$set":  bson.M{"message": text, "isEdited": true, "updatedAt": at},
		"$push": bson.M{"edits": prev},
	}
	cond := bson.M{"isDeleted": false, "message": prev.Message}
	msg := &models.ChatMessage{}
	if err := updateWhere(ctx, c.db.Collection(chatMessageName), id, cond, update, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *chatMessageDatabase) SoftDelete(ctx context.Context, id, by string, at time.Time) (*models.ChatMessage, error) {
	update := bson.M{"$set": bson.M{
		"isDeleted": true,
		"deletedBy": by,
		"deletedAt": at,
		"updatedAt": at,
	}}
	msg := &models.ChatMessage{}
	if err := updateWhere(ctx, c.db.Collection(chatMessageName), id, bson.M{"isDeleted": false}, update, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (c *chatMessageDatabase) MarkRead(ctx context.Context, roomID, userID string, at time.Time) (int64, error) {
	filter := bson.M{
		"roomId":        roomID,
		"readBy.userId": bson.M{"$ne": userID},
	}
	update := bson.M{"$push": bson.M{"readBy": models.ReadReceipt{UserID: userID, ReadAt: at}}}
	res, err := c.db.Collection(chatMessageName).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
