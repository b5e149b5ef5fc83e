package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

// Pusher sends a push message to device tokens and reports tokens the provider no longer accepts
type Pusher interface {
	Push(ctx context.Context, tokens []string, msg Message) (invalid []string, err error)
}

// LiveChannel writes an event to a user's open connections
type LiveChannel interface {
	Send(userID string, event interface{})
}

// StoreDeliverer persists in-app notifications and pushes them to devices and live connections
type StoreDeliverer struct {
	Users         databases.UserDatabase
	Notifications databases.NotificationDatabase
	Tokens        databases.PushTokenDatabase
	Pusher        Pusher
	Live          LiveChannel
	BatchSize     int
	Now           func() time.Time
}

// Deliver resolves the recipients of msg in batches and delivers to each batch
func (d *StoreDeliverer) Deliver(ctx context.Context, msg Message) error {
	batch := d.BatchSize
	if batch < 1 {
		batch = 100
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Audience != nil {
		return d.deliverAudience(ctx, msg, batch)
	}
	ids := dedupe(msg.RecipientIDs)
	for start := 0; start < len(ids); start += batch {
		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}
		if err := d.deliverBatch(ctx, msg, ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *StoreDeliverer) deliverAudience(ctx context.Context, msg Message, batch int) error {
	filter := databases.UserFilter{MinRole: msg.Audience.MinRole, Unit: msg.Audience.Unit, ActiveOnly: true}
	after := ""
	for {
		ids, err := d.Users.FindIDs(ctx, filter, after, batch)
		if err != nil {
			return fmt.Errorf("resolve audience: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		after = ids[len(ids)-1]

		recipients := make([]string, 0, len(ids))
		for _, id := range ids {
			if id != msg.Audience.ExcludeUserID {
				recipients = append(recipients, id)
			}
		}
		if err := d.deliverBatch(ctx, msg, recipients); err != nil {
			return err
		}
		if len(ids) < batch {
			return nil
		}
	}
}

func (d *StoreDeliverer) deliverBatch(ctx context.Context, msg Message, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	channels := msg.Channels
	if len(channels) == 0 {
		channels = []string{models.ChannelInApp, models.ChannelPush}
	}

	if msg.wants(models.ChannelInApp) {
		notes := make([]models.Notification, 0, len(userIDs))
		for _, id := range userIDs {
			notes = append(notes, models.Notification{
				ID:        notificationID(msg.ID, id),
				UserID:    id,
				Type:      msg.Type,
				Title:     msg.Title,
				Message:   msg.Body,
				Data:      msg.Data,
				Channels:  channels,
				ExpiresAt: msg.ExpiresAt,
				CreatedAt: now,
			})
		}
		if err := d.Notifications.InsertMany(ctx, notes); err != nil {
			failedTotal.WithLabelValues("persist").Inc()
			return fmt.Errorf("persist notifications: %w", err)
		}
		deliveredTotal.WithLabelValues(models.ChannelInApp).Add(float64(len(notes)))

		if d.Live != nil {
			for i := range notes {
				d.Live.Send(notes[i].UserID, map[string]interface{}{
					"event": "new_notification",
					"data":  notes[i],
				})
			}
		}
	}

	if msg.wants(models.ChannelPush) && d.Pusher != nil && d.Tokens != nil {
		d.push(ctx, msg, userIDs)
	}
	return nil
}

// push is best effort: failures are logged and never fail the batch
func (d *StoreDeliverer) push(ctx context.Context, msg Message, userIDs []string) {
	tokens, err := d.Tokens.FindByUsers(ctx, userIDs)
	if err != nil {
		failedTotal.WithLabelValues("tokens").Inc()
		zap.S().Errorw("failed to load push tokens", "error", err, "type", msg.Type)
		return
	}
	if len(tokens) == 0 {
		return
	}
	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}
	invalid, err := d.Pusher.Push(ctx, values, msg)
	if err != nil {
		failedTotal.WithLabelValues("push").Inc()
		zap.S().Errorw("push delivery failed", "error", err, "type", msg.Type, "tokens", len(values))
	} else {
		deliveredTotal.WithLabelValues(models.ChannelPush).Add(float64(len(values) - len(invalid)))
	}
	if len(invalid) > 0 {
		n, err := d.Tokens.DeleteByTokens(ctx, invalid)
		if err != nil {
			zap.S().Errorw("failed to remove unregistered push tokens", "error", err)
			return
		}
		zap.S().Infow("removed unregistered push tokens", "count", n)
	}
}

// notificationID is the same for every delivery attempt of one message to one user, so a
// redelivered batch cannot store a second copy
func notificationID(msgID, userID string) string {
	sum := sha256.Sum256([]byte(msgID + "/" + userID))
	return hex.EncodeToString(sum[:12])
}

func dedupe(ids []string) []string {
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
