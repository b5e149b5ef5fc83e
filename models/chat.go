package models

import "time"

// RoomType is the audience kind of a chat room
type RoomType string

// Room types
const (
	RoomDirect  RoomType = "direct"
	RoomGroup   RoomType = "group"
	RoomUnit    RoomType = "unit"
	RoomGeneral RoomType = "general"
)

// Valid reports whether t is a known room type
func (t RoomType) Valid() bool {
	switch t {
	case RoomDirect, RoomGroup, RoomUnit, RoomGeneral:
		return true
	}
	return false
}

// ChatRoom holds the structure for the chatrooms collection in mongo
type ChatRoom struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Type      RoomType  `json:"type" bson:"type"`
	Unit      string    `json:"unit,omitempty" bson:"unit,omitempty"`
	Members   []string  `json:"members" bson:"members"`
	CreatedBy string    `json:"createdBy" bson:"createdBy"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// HasMember reports whether userID, currently in unit, may read and post in the room. Unit
// rooms admit whoever is in the unit now on top of the listed members.
func (r *ChatRoom) HasMember(userID, unit string) bool {
	if r.Type == RoomGeneral {
		return true
	}
	if r.Type == RoomUnit && unit != "" && unit == r.Unit {
		return true
	}
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// MessageEdit keeps the text a message had before an edit
type MessageEdit struct {
	Message  string    `json:"message" bson:"message"`
	EditedAt time.Time `json:"editedAt" bson:"editedAt"`
}

// ReadReceipt records when a member read a message
type ReadReceipt struct {
	UserID string    `json:"userId" bson:"userId"`
	ReadAt time.Time `json:"readAt" bson:"readAt"`
}

// ChatMessage holds the structure for the chatmessages collection in mongo.
// Messages are never removed; edits and deletes are flagged.
type ChatMessage struct {
	ID        string        `json:"id" bson:"_id"`
	RoomID    string        `json:"roomId" bson:"roomId"`
	UserID    string        `json:"userId" bson:"userId"`
	UserName  string        `json:"userName" bson:"userName"`
	Message   string        `json:"message" bson:"message"`
	IsEdited  bool          `json:"isEdited" bson:"isEdited"`
	Edits     []MessageEdit `json:"edits,omitempty" bson:"edits,omitempty"`
	IsDeleted bool          `json:"isDeleted" bson:"isDeleted"`
	DeletedBy string        `json:"deletedBy,omitempty" bson:"deletedBy,omitempty"`
	DeletedAt *time.Time    `json:"deletedAt,omitempty" bson:"deletedAt,omitempty"`
	ReadBy    []ReadReceipt `json:"readBy" bson:"readBy"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}
