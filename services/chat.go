package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
)

const unitPageSize = 200

// RoomInput holds a new chat room
type RoomInput struct {
	Name    string          `json:"name"`
	Type    models.RoomType `json:"type"`
	Unit    string          `json:"unit"`
	Members []string        `json:"members"`
}

// ChatService manages rooms and the soft-delete message log
type ChatService struct {
	users      databases.UserDatabase
	rooms      databases.ChatRoomDatabase
	messages   databases.ChatMessageDatabase
	dispatcher notify.Dispatcher
	clock      *clock
}

// CreateRoom creates a room. Any member may open a direct room with one other user; other room
// types need an officer. The caller is always a member.
func (s *ChatService) CreateRoom(ctx context.Context, actor models.Actor, in RoomInput) (*models.ChatRoom, error) {
	if !in.Type.Valid() {
		return nil, Validation("type must be one of direct, group, unit, general")
	}
	members := dedupeIDs(append([]string{actor.UserID}, in.Members...))
	switch in.Type {
	case models.RoomDirect:
		if len(members) != 2 {
			return nil, Validation("a direct room has exactly two members")
		}
	default:
		if !actor.HasRole(models.RoleOfficer) {
			return nil, Forbidden("only officers can create %s rooms", in.Type)
		}
		if blank(in.Name) {
			return nil, Validation("name is required")
		}
	}
	if in.Type == models.RoomUnit && blank(in.Unit) {
		return nil, Validation("unit is required for unit rooms")
	}

	now := s.clock.Now()
	room := &models.ChatRoom{
		ID:        databases.NewID(),
		Name:      in.Name,
		Type:      in.Type,
		Unit:      in.Unit,
		Members:   members,
		CreatedBy: actor.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.rooms.InsertOne(ctx, room); err != nil {
		return nil, storeErr(err, "chat room")
	}
	return room, nil
}

// ListRooms returns the rooms the caller belongs to, the rooms of the caller's unit and every
// general room
func (s *ChatService) ListRooms(ctx context.Context, actor models.Actor) ([]models.ChatRoom, error) {
	unit, err := s.unitOf(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	list, err := s.rooms.FindForMember(ctx, actor.UserID, unit)
	if err != nil {
		return nil, storeErr(err, "chat rooms")
	}
	return list, nil
}

// unitOf reads the user's current unit so unit rooms follow unit changes
func (s *ChatService) unitOf(ctx context.Context, userID string) (string, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, databases.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeErr(err, "user")
	}
	if !u.IsActive {
		return "", nil
	}
	return u.Unit, nil
}

func (s *ChatService) memberRoom(ctx context.Context, actor models.Actor, roomID string) (*models.ChatRoom, error) {
	room, err := s.rooms.FindByID(ctx, roomID)
	if err != nil {
		return nil, storeErr(err, "chat room")
	}
	unit := ""
	if room.Type == models.RoomUnit {
		if unit, err = s.unitOf(ctx, actor.UserID); err != nil {
			return nil, err
		}
	}
	if !room.HasMember(actor.UserID, unit) {
		return nil, Forbidden("you are not a member of this room")
	}
	return room, nil
}

// recipients lists who hears about a new message in room besides the author
func (s *ChatService) recipients(ctx context.Context, room *models.ChatRoom, authorID string) ([]string, error) {
	ids := append([]string{}, room.Members...)
	if room.Type == models.RoomUnit {
		filter := databases.UserFilter{MinRole: models.RoleMember, Unit: room.Unit, ActiveOnly: true}
		after := ""
		for {
			page, err := s.users.FindIDs(ctx, filter, after, unitPageSize)
			if err != nil {
				return nil, storeErr(err, "unit members")
			}
			ids = append(ids, page...)
			if len(page) < unitPageSize {
				break
			}
			after = page[len(page)-1]
		}
	}
	out := make([]string, 0, len(ids))
	for _, id := range dedupeIDs(ids) {
		if id != authorID {
			out = append(out, id)
		}
	}
	return out, nil
}

// PostMessage appends a message and notifies the other members of non-general rooms
func (s *ChatService) PostMessage(ctx context.Context, actor models.Actor, roomID, text string) (*models.ChatMessage, error) {
	if blank(text) {
		return nil, Validation("message is required")
	}
	room, err := s.memberRoom(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	msg := &models.ChatMessage{
		ID:        databases.NewID(),
		RoomID:    roomID,
		UserID:    actor.UserID,
		UserName:  actor.Name,
		Message:   text,
		ReadBy:    []models.ReadReceipt{{UserID: actor.UserID, ReadAt: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.messages.InsertOne(ctx, msg); err != nil {
		return nil, storeErr(err, "chat message")
	}

	if room.Type != models.RoomGeneral {
		others, err := s.recipients(ctx, room, actor.UserID)
		if err != nil {
			zap.S().Errorw("failed to resolve chat recipients", "roomId", roomID, "error", err)
		}
		if len(others) > 0 {
			s.dispatcher.Dispatch(ctx, notify.Message{
				Type:         models.NotificationChatMessage,
				Title:        actor.Name,
				Body:         text,
				Data:         map[string]interface{}{"roomId": roomID, "messageId": msg.ID},
				RecipientIDs: others,
			})
		}
	}
	return msg, nil
}

// ListMessages returns a page of a room's messages, newest first. Text of deleted messages is
// only shown to officers.
func (s *ChatService) ListMessages(ctx context.Context, actor models.Actor, roomID string, page databases.Page) ([]models.ChatMessage, error) {
	if _, err := s.memberRoom(ctx, actor, roomID); err != nil {
		return nil, err
	}
	list, err := s.messages.FindByRoom(ctx, roomID, page)
	if err != nil {
		return nil, storeErr(err, "chat messages")
	}
	if !actor.HasRole(models.RoleOfficer) {
		for i := range list {
			if list[i].IsDeleted {
				list[i].Message = ""
				list[i].Edits = nil
			}
		}
	}
	return list, nil
}

func (s *ChatService) roomMessage(ctx context.Context, actor models.Actor, roomID, messageID string) (*models.ChatMessage, error) {
	if _, err := s.memberRoom(ctx, actor, roomID); err != nil {
		return nil, err
	}
	msg, err := s.messages.FindByID(ctx, messageID)
	if err != nil {
		return nil, storeErr(err, "chat message")
	}
	if msg.RoomID != roomID {
		return nil, NotFound("chat message not found")
	}
	return msg, nil
}

// EditMessage replaces the text of the author's own message and keeps the previous text
func (s *ChatService) EditMessage(ctx context.Context, actor models.Actor, roomID, messageID, text string) (*models.ChatMessage, error) {
	if blank(text) {
		return nil, Validation("message is required")
	}
	msg, err := s.roomMessage(ctx, actor, roomID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID != actor.UserID {
		return nil, Forbidden("you can only edit your own messages")
	}
	if msg.IsDeleted {
		return nil, InvalidState("message was deleted")
	}
	now := s.clock.Now()
	edited, err := s.messages.Edit(ctx, messageID, text, models.MessageEdit{Message: msg.Message, EditedAt: now}, now)
	if err != nil {
		return nil, storeErr(err, "chat message")
	}
	return edited, nil
}

// DeleteMessage flags a message as deleted. The author and officers may delete; deleting twice
// returns the deleted message.
func (s *ChatService) DeleteMessage(ctx context.Context, actor models.Actor, roomID, messageID string) (*models.ChatMessage, error) {
	msg, err := s.roomMessage(ctx, actor, roomID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.UserID != actor.UserID && !actor.HasRole(models.RoleOfficer) {
		return nil, Forbidden("you can only delete your own messages")
	}
	if msg.IsDeleted {
		return msg, nil
	}
	deleted, err := s.messages.SoftDelete(ctx, messageID, actor.UserID, s.clock.Now())
	if errors.Is(err, databases.ErrConditionFailed) {
		deleted, err = s.messages.FindByID(ctx, messageID)
	}
	if err != nil {
		return nil, storeErr(err, "chat message")
	}
	return deleted, nil
}

// MarkRead adds the caller's read receipt to every unread message of the room
func (s *ChatService) MarkRead(ctx context.Context, actor models.Actor, roomID string) (int64, error) {
	if _, err := s.memberRoom(ctx, actor, roomID); err != nil {
		return 0, err
	}
	n, err := s.messages.MarkRead(ctx, roomID, actor.UserID, s.clock.Now())
	if err != nil {
		return 0, storeErr(err, "chat messages")
	}
	return n, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
