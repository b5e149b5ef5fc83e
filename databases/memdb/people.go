package memdb

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

func userID(u *models.User) string { return u.ID }

type userDB struct {
	t *table[models.User]
}

func (d *userDB) InsertOne(_ context.Context, u *models.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	return d.t.insert(u, func(existing *models.User) bool { return existing.Email == u.Email })
}

func (d *userDB) FindByID(_ context.Context, id string) (*models.User, error) {
	return d.t.get(id)
}

func (d *userDB) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return d.t.first(func(u *models.User) bool { return u.Email == email })
}

func userMatch(f databases.UserFilter) func(*models.User) bool {
	return func(u *models.User) bool {
		if f.MinRole != "" && !u.Role.HasRole(f.MinRole) {
			return false
		}
		if f.Unit != "" && u.Unit != f.Unit {
			return false
		}
		if f.ActiveOnly && !u.IsActive {
			return false
		}
		return true
	}
}

func (d *userDB) Find(_ context.Context, f databases.UserFilter, p databases.Page) ([]models.User, error) {
	return paginate(d.t.find(userMatch(f)), p, func(a, b *models.User) bool { return a.Name < b.Name }), nil
}

func (d *userDB) FindIDs(_ context.Context, f databases.UserFilter, afterID string, limit int) ([]string, error) {
	match := userMatch(f)
	rows := d.t.find(func(u *models.User) bool { return u.ID > afterID && match(u) })
	rows = paginate(rows, databases.Page{Limit: limit, Page: 1}, func(a, b *models.User) bool { return a.ID < b.ID })
	ids := make([]string, 0, len(rows))
	for _, u := range rows {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

func (d *userDB) UpdateProfile(_ context.Context, id string, p databases.UserProfile, at time.Time) (*models.User, error) {
	return d.t.update(id, func(u *models.User) error {
		if p.Name != nil {
			u.Name = *p.Name
		}
		if p.Phone != nil {
			u.Phone = *p.Phone
		}
		if p.Unit != nil {
			u.Unit = *p.Unit
		}
		u.UpdatedAt = at
		return nil
	})
}

func (d *userDB) SetRole(_ context.Context, id string, role models.Role, at time.Time) (*models.User, error) {
	return d.t.update(id, func(u *models.User) error {
		u.Role = role
		u.UpdatedAt = at
		return nil
	})
}

func (d *userDB) Deactivate(_ context.Context, id string, at time.Time) (*models.User, error) {
	return d.t.update(id, func(u *models.User) error {
		u.IsActive = false
		u.UpdatedAt = at
		return nil
	})
}

func notificationID(n *models.Notification) string { return n.ID }
func pushTokenID(p *models.PushToken) string { return p.ID }
func revokedTokenID(r *models.RevokedToken) string { return r.TokenID }
func lockID(l *models.SchedulerLock) string { return l.Name }

type notificationDB struct {
	t *table[models.Notification]
}

func (d *notificationDB) InsertMany(_ context.Context, notes []models.Notification) error {
	for i := range notes {
		if err := d.t.insert(&notes[i], nil); err != nil && !errors.Is(err, databases.ErrDuplicate) {
			return err
		}
	}
	return nil
}

func (d *notificationDB) FindByUser(_ context.Context, userID string, unreadOnly bool, p databases.Page) ([]models.Notification, error) {
	rows := d.t.find(func(n *models.Notification) bool {
		return n.UserID == userID && (!unreadOnly || !n.IsRead)
	})
	return paginate(rows, p, func(a, b *models.Notification) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (d *notificationDB) MarkRead(_ context.Context, id, userID string, at time.Time) (*models.Notification, error) {
	return d.t.update(id, func(n *models.Notification) error {
		if n.UserID != userID {
			return databases.ErrConditionFailed
		}
		n.IsRead = true
		n.ReadAt = &at
		return nil
	})
}

func (d *notificationDB) MarkAllRead(_ context.Context, userID string, at time.Time) (int64, error) {
	return d.t.updateAll(
		func(n *models.Notification) bool { return n.UserID == userID && !n.IsRead },
		func(n *models.Notification) {
			n.IsRead = true
			n.ReadAt = &at
		},
	), nil
}

func (d *notificationDB) DeleteExpired(_ context.Context, now, readBefore time.Time) (int64, error) {
	return d.t.remove(func(n *models.Notification) bool {
		if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
			return true
		}
		return n.IsRead && n.CreatedAt.Before(readBefore)
	}), nil
}

type pushTokenDB struct {
	t *table[models.PushToken]
}

func (d *pushTokenDB) Upsert(_ context.Context, token *models.PushToken) error {
	d.t.upsert(
		func(p *models.PushToken) bool { return p.Token == token.Token },
		func(p *models.PushToken) {
			p.UserID = token.UserID
			p.Platform = token.Platform
			p.UpdatedAt = token.UpdatedAt
		},
		func() *models.PushToken {
			return &models.PushToken{ID: databases.NewID(), Token: token.Token, CreatedAt: token.CreatedAt}
		},
	)
	return nil
}

func (d *pushTokenDB) FindByUsers(_ context.Context, userIDs []string) ([]models.PushToken, error) {
	set := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		set[id] = true
	}
	return d.t.find(func(p *models.PushToken) bool { return set[p.UserID] }), nil
}

func (d *pushTokenDB) DeleteForUser(_ context.Context, userID, token string) (int64, error) {
	return d.t.remove(func(p *models.PushToken) bool { return p.UserID == userID && p.Token == token }), nil
}

func (d *pushTokenDB) DeleteByTokens(_ context.Context, tokens []string) (int64, error) {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return d.t.remove(func(p *models.PushToken) bool { return set[p.Token] }), nil
}

type revokedTokenDB struct {
	t *table[models.RevokedToken]
}

func (d *revokedTokenDB) Revoke(_ context.Context, r models.RevokedToken) error {
	d.t.upsert(
		func(existing *models.RevokedToken) bool { return existing.TokenID == r.TokenID },
		func(existing *models.RevokedToken) {
			existing.UserID = r.UserID
			existing.ExpiresAt = r.ExpiresAt
		},
		func() *models.RevokedToken { return &models.RevokedToken{TokenID: r.TokenID} },
	)
	return nil
}

func (d *revokedTokenDB) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, err := d.t.get(tokenID)
	if err == databases.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (d *revokedTokenDB) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return d.t.remove(func(r *models.RevokedToken) bool { return r.ExpiresAt.Before(now) }), nil
}

type lockDB struct {
	t *table[models.SchedulerLock]
}

func (d *lockDB) TryAcquireLock(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	acquired := false
	d.t.upsert(
		func(l *models.SchedulerLock) bool { return l.Name == name },
		func(l *models.SchedulerLock) {
			if l.Owner == "" || l.Owner == owner || l.ExpiresAt.Before(now) {
				l.Owner = owner
				l.ExpiresAt = now.Add(ttl)
				acquired = true
			}
		},
		func() *models.SchedulerLock { return &models.SchedulerLock{Name: name} },
	)
	return acquired, nil
}

func (d *lockDB) ReleaseLock(_ context.Context, name, owner string) error {
	d.t.remove(func(l *models.SchedulerLock) bool { return l.Name == name && l.Owner == owner })
	return nil
}
