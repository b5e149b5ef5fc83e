// Package notify fans domain events out to users as in-app notifications, live websocket
// events and Expo push messages.
package notify

import (
	"context"
	"time"

	"github.com/geijin5/apsar-emergency-api/models"
)

// Audience selects recipients by role and unit instead of by id
type Audience struct {
	MinRole       models.Role `json:"minRole"`
	Unit          string      `json:"unit,omitempty"`
	ExcludeUserID string      `json:"excludeUserId,omitempty"`
}

// Message is one notification to deliver. Exactly one of RecipientIDs or Audience is used;
// Audience wins when both are set. ID is stamped on dispatch and stays the same across queue
// retries.
type Message struct {
	ID           string                 `json:"id"`
	Type         string                 `json:"type"`
	Title        string                 `json:"title"`
	Body         string                 `json:"body"`
	Data         map[string]interface{} `json:"data,omitempty"`
	RecipientIDs []string               `json:"recipientIds,omitempty"`
	Audience     *Audience              `json:"audience,omitempty"`
	Channels     []string               `json:"channels,omitempty"`
	ExpiresAt    *time.Time             `json:"expiresAt,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// Dispatcher accepts messages for delivery. Dispatch never waits on delivery and never fails
// the caller; delivery problems are logged.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message)
}

// Deliverer performs the delivery of one message
type Deliverer interface {
	Deliver(ctx context.Context, msg Message) error
}

func (m Message) wants(channel string) bool {
	if len(m.Channels) == 0 {
		return true
	}
	for _, c := range m.Channels {
		if c == channel {
			return true
		}
	}
	return false
}
