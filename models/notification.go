package models

import "time"

// Notification channels
const (
	ChannelInApp = "in_app"
	ChannelPush  = "push"
)

// Notification types emitted by the coordination services
const (
	NotificationCallOut         = "callout"
	NotificationCallOutClosed   = "callout_closed"
	NotificationIncident        = "incident"
	NotificationResource        = "incident_resource"
	NotificationMission         = "sar_mission"
	NotificationMissionArea     = "sar_area"
	NotificationReviewRequest   = "review_request"
	NotificationReviewDecision  = "review_decision"
	NotificationChecklistReview = "checklist_review"
	NotificationChatMessage     = "chat_message"
	NotificationAssetDue        = "asset_due"
)

// Notification holds the structure for the notifications collection in mongo
type Notification struct {
	ID        string                 `json:"id" bson:"_id"`
	UserID    string                 `json:"userId" bson:"userId"`
	Type      string                 `json:"type" bson:"type"`
	Title     string                 `json:"title" bson:"title"`
	Message   string                 `json:"message" bson:"message"`
	Data      map[string]interface{} `json:"data,omitempty" bson:"data,omitempty"`
	Channels  []string               `json:"channels" bson:"channels"`
	IsRead    bool                   `json:"isRead" bson:"isRead"`
	ReadAt    *time.Time             `json:"readAt,omitempty" bson:"readAt,omitempty"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	CreatedAt time.Time              `json:"createdAt" bson:"createdAt"`
}
