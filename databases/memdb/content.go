package memdb

import (
	"context"
	"time"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

func reportID(r *models.CalloutReport) string { return r.ID }
func templateID(t *models.ChecklistTemplate) string { return t.ID }
func checklistID(c *models.Checklist) string { return c.ID }
func roomID(r *models.ChatRoom) string { return r.ID }
func messageID(m *models.ChatMessage) string { return m.ID }
func vehicleID(v *models.Vehicle) string { return v.ID }
func equipmentID(e *models.Equipment) string { return e.ID }

func versionIs(expected int64, current int64) error {
	if current != expected {
		return databases.ErrConditionFailed
	}
	return nil
}

type reportDB struct {
	t *table[models.CalloutReport]
}

func (d *reportDB) InsertOne(_ context.Context, r *models.CalloutReport) error {
	return d.t.insert(r, nil)
}

func (d *reportDB) FindByID(_ context.Context, id string) (*models.CalloutReport, error) {
	return d.t.get(id)
}

func (d *reportDB) Find(_ context.Context, f databases.ReportFilter, p databases.Page) ([]models.CalloutReport, error) {
	rows := d.t.find(func(r *models.CalloutReport) bool {
		if f.SubmittedBy != "" && r.SubmittedBy != f.SubmittedBy {
			return false
		}
		return f.Status == "" || r.Status == f.Status
	})
	return paginate(rows, p, func(a, b *models.CalloutReport) bool { return a.UpdatedAt.After(b.UpdatedAt) }), nil
}

func (d *reportDB) Replace(_ context.Context, r *models.CalloutReport, expected int64) error {
	r.Version = expected + 1
	return d.t.replace(r.ID, r, func(existing *models.CalloutReport) error {
		return versionIs(expected, existing.Version)
	})
}

type templateDB struct {
	t *table[models.ChecklistTemplate]
}

func (d *templateDB) InsertOne(_ context.Context, t *models.ChecklistTemplate) error {
	return d.t.insert(t, nil)
}

func (d *templateDB) FindByID(_ context.Context, id string) (*models.ChecklistTemplate, error) {
	return d.t.get(id)
}

func (d *templateDB) Find(_ context.Context, p databases.Page) ([]models.ChecklistTemplate, error) {
	return paginate(d.t.find(nil), p, func(a, b *models.ChecklistTemplate) bool { return a.Name < b.Name }), nil
}

type checklistDB struct {
	t *table[models.Checklist]
}

func (d *checklistDB) InsertOne(_ context.Context, c *models.Checklist) error {
	return d.t.insert(c, nil)
}

func (d *checklistDB) FindByID(_ context.Context, id string) (*models.Checklist, error) {
	return d.t.get(id)
}

func (d *checklistDB) Find(_ context.Context, f databases.ChecklistFilter, p databases.Page) ([]models.Checklist, error) {
	rows := d.t.find(func(c *models.Checklist) bool {
		if f.AssignedTo != "" && c.AssignedTo != f.AssignedTo {
			return false
		}
		return f.Status == "" || c.Status == f.Status
	})
	return paginate(rows, p, func(a, b *models.Checklist) bool { return a.UpdatedAt.After(b.UpdatedAt) }), nil
}

func (d *checklistDB) Replace(_ context.Context, c *models.Checklist, expected int64) error {
	c.Version = expected + 1
	return d.t.replace(c.ID, c, func(existing *models.Checklist) error {
		return versionIs(expected, existing.Version)
	})
}

type roomDB struct {
	t *table[models.ChatRoom]
}

func (d *roomDB) InsertOne(_ context.Context, r *models.ChatRoom) error {
	return d.t.insert(r, nil)
}

func (d *roomDB) FindByID(_ context.Context, id string) (*models.ChatRoom, error) {
	return d.t.get(id)
}

func (d *roomDB) FindForMember(_ context.Context, userID, unit string) ([]models.ChatRoom, error) {
	rows := d.t.find(func(r *models.ChatRoom) bool { return r.HasMember(userID, unit) })
	return sortBy(rows, func(a, b *models.ChatRoom) bool { return a.UpdatedAt.After(b.UpdatedAt) }), nil
}

type messageDB struct {
	t *table[models.ChatMessage]
}

func (d *messageDB) InsertOne(_ context.Context, m *models.ChatMessage) error {
	return d.t.insert(m, nil)
}

func (d *messageDB) FindByID(_ context.Context, id string) (*models.ChatMessage, error) {
	return d.t.get(id)
}

func (d *messageDB) FindByRoom(_ context.Context, roomID string, p databases.Page) ([]models.ChatMessage, error) {
	rows := d.t.find(func(m *models.ChatMessage) bool { return m.RoomID == roomID })
	return paginate(rows, p, func(a, b *models.ChatMessage) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (d *messageDB) Edit(_ context.Context, id, text string, prev models.MessageEdit, at time.Time) (*models.ChatMessage, error) {
	return d.t.update(id, func(m *models.ChatMessage) error {
		if m.IsDeleted || m.Message != prev.Message {
			return databases.ErrConditionFailed
		}
		m.Edits = append(m.Edits, prev)
		m.Message = text
		m.IsEdited = true
		m.UpdatedAt = at
		return nil
	})
}

func (d *messageDB) SoftDelete(_ context.Context, id, by string, at time.Time) (*models.ChatMessage, error) {
	return d.t.update(id, func(m *models.ChatMessage) error {
		if m.IsDeleted {
			return databases.ErrConditionFailed
		}
		m.IsDeleted = true
		m.DeletedBy = by
		m.DeletedAt = &at
		m.UpdatedAt = at
		return nil
	})
}

func (d *messageDB) MarkRead(_ context.Context, roomID, userID string, at time.Time) (int64, error) {
	unread := func(m *models.ChatMessage) bool {
		if m.RoomID != roomID {
			return false
		}
		for _, r := range m.ReadBy {
			if r.UserID == userID {
				return false
			}
		}
		return true
	}
	return d.t.updateAll(unread, func(m *models.ChatMessage) {
		m.ReadBy = append(m.ReadBy, models.ReadReceipt{UserID: userID, ReadAt: at})
	}), nil
}

type vehicleDB struct {
	t *table[models.Vehicle]
}

func (d *vehicleDB) InsertOne(_ context.Context, v *models.Vehicle) error {
	return d.t.insert(v, nil)
}

func (d *vehicleDB) FindByID(_ context.Context, id string) (*models.Vehicle, error) {
	return d.t.get(id)
}

func (d *vehicleDB) Find(_ context.Context, p databases.Page) ([]models.Vehicle, error) {
	return paginate(d.t.find(nil), p, func(a, b *models.Vehicle) bool { return a.Name < b.Name }), nil
}

func (d *vehicleDB) Replace(_ context.Context, v *models.Vehicle) error {
	return d.t.replace(v.ID, v, nil)
}

func (d *vehicleDB) FindDue(_ context.Context, now time.Time) ([]models.Vehicle, error) {
	return d.t.find(func(v *models.Vehicle) bool {
		v.MarkDue(now)
		return v.InspectionDue || v.MaintenanceDue
	}), nil
}

type equipmentDB struct {
	t *table[models.Equipment]
}

func (d *equipmentDB) InsertOne(_ context.Context, e *models.Equipment) error {
	return d.t.insert(e, nil)
}

func (d *equipmentDB) FindByID(_ context.Context, id string) (*models.Equipment, error) {
	return d.t.get(id)
}

func (d *equipmentDB) Find(_ context.Context, p databases.Page) ([]models.Equipment, error) {
	return paginate(d.t.find(nil), p, func(a, b *models.Equipment) bool { return a.Name < b.Name }), nil
}

func (d *equipmentDB) Replace(_ context.Context, e *models.Equipment) error {
	return d.t.replace(e.ID, e, nil)
}

func (d *equipmentDB) FindDue(_ context.Context, now time.Time) ([]models.Equipment, error) {
	return d.t.find(func(e *models.Equipment) bool {
		e.MarkDue(now)
		return e.InspectionDue
	}), nil
}
