package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

// NotificationService exposes a user's in-app notifications and push registrations
type NotificationService struct {
	notifications databases.NotificationDatabase
	tokens        databases.PushTokenDatabase
	revoked       databases.RevokedTokenDatabase
	clock         *clock
}

// ListNotifications returns a page of the caller's notifications, newest first
func (s *NotificationService) ListNotifications(ctx context.Context, actor models.Actor, unreadOnly bool, page databases.Page) ([]models.Notification, error) {
	list, err := s.notifications.FindByUser(ctx, actor.UserID, unreadOnly, page)
	if err != nil {
		return nil, storeErr(err, "notifications")
	}
	return list, nil
}

// MarkRead flags one of the caller's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	n, err := s.notifications.MarkRead(ctx, id, actor.UserID, s.clock.Now())
	if errors.Is(err, databases.ErrConditionFailed) {
		return nil, Forbidden("notification belongs to another user")
	}
	if err != nil {
		return nil, storeErr(err, "notification")
	}
	return n, nil
}

// MarkAllRead flags every unread notification of the caller and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, actor models.Actor) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, actor.UserID, s.clock.Now())
	if err != nil {
		return 0, storeErr(err, "notifications")
	}
	return n, nil
}

// RegisterPushToken binds an Expo push token to the caller. A token seen before moves to the caller.
func (s *NotificationService) RegisterPushToken(ctx context.Context, actor models.Actor, token, platform string) (*models.PushToken, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, "ExponentPushToken[") && !strings.HasPrefix(token, "ExpoPushToken[") {
		return nil, Validation("token must be an Expo push token")
	}
	switch platform {
	case "ios", "android":
	default:
		return nil, Validation("platform must be ios or android")
	}
	now := s.clock.Now()
	pt := &models.PushToken{
		UserID:    actor.UserID,
		Token:     token,
		Platform:  platform,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.tokens.Upsert(ctx, pt); err != nil {
		return nil, storeErr(err, "push token")
	}
	return pt, nil
}

// RemovePushToken unregisters one of the caller's push tokens
func (s *NotificationService) RemovePushToken(ctx context.Context, actor models.Actor, token string) error {
	n, err := s.tokens.DeleteForUser(ctx, actor.UserID, token)
	if err != nil {
		return storeErr(err, "push token")
	}
	if n == 0 {
		return NotFound("push token not found")
	}
	return nil
}

// Cleanup removes expired notifications, read notifications older than retention and
// revocations of tokens that have expired anyway
func (s *NotificationService) Cleanup(ctx context.Context, retention time.Duration) (notifications, revocations int64, err error) {
	now := s.clock.Now()
	notifications, err = s.notifications.DeleteExpired(ctx, now, now.Add(-retention))
	if err != nil {
		return 0, 0, storeErr(err, "notifications")
	}
	revocations, err = s.revoked.DeleteExpired(ctx, now)
	if err != nil {
		return notifications, 0, storeErr(err, "revoked tokens")
	}
	return notifications, revocations, nil
}
