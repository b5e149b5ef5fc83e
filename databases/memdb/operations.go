package memdb

import (
	"context"
	"time"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

func callOutID(c *models.CallOut) string { return c.ID }
func responseID(r *models.CallOutResponse) string { return r.ID }
func missionID(m *models.SARMission) string { return m.ID }
func areaID(a *models.SARMissionArea) string { return a.ID }
func incidentID(i *models.Incident) string { return i.ID }
func resourceID(r *models.IncidentResource) string { return r.ID }

type callOutDB struct {
	t *table[models.CallOut]
}

func (d *callOutDB) InsertOne(_ context.Context, c *models.CallOut) error {
	return d.t.insert(c, nil)
}

func (d *callOutDB) FindByID(_ context.Context, id string) (*models.CallOut, error) {
	return d.t.get(id)
}

func (d *callOutDB) Find(_ context.Context, f databases.CallOutFilter, p databases.Page) ([]models.CallOut, error) {
	rows := d.t.find(func(c *models.CallOut) bool { return f.Status == "" || c.Status == f.Status })
	return paginate(rows, p, func(a, b *models.CallOut) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (d *callOutDB) Close(_ context.Context, id string, status models.CallOutStatus, closedBy string, at time.Time) (*models.CallOut, error) {
	return d.t.update(id, func(c *models.CallOut) error {
		if c.Status != models.CallOutActive {
			return databases.ErrConditionFailed
		}
		c.Status = status
		c.ClosedBy = closedBy
		c.ClosedAt = &at
		c.UpdatedAt = at
		return nil
	})
}

type callOutResponseDB struct {
	t *table[models.CallOutResponse]
}

func (d *callOutResponseDB) Upsert(_ context.Context, r *models.CallOutResponse) (*models.CallOutResponse, error) {
	return d.t.upsert(
		func(existing *models.CallOutResponse) bool {
			return existing.CallOutID == r.CallOutID && existing.UserID == r.UserID
		},
		func(existing *models.CallOutResponse) {
			existing.UserName = r.UserName
			existing.Status = r.Status
			existing.EstimatedArrival = r.EstimatedArrival
			existing.Notes = r.Notes
			existing.UpdatedAt = r.UpdatedAt
		},
		func() *models.CallOutResponse {
			return &models.CallOutResponse{
				ID:          databases.NewID(),
				CallOutID:   r.CallOutID,
				UserID:      r.UserID,
				RespondedAt: r.RespondedAt,
			}
		},
	), nil
}

func (d *callOutResponseDB) FindOne(_ context.Context, callOutID, userID string) (*models.CallOutResponse, error) {
	return d.t.first(func(r *models.CallOutResponse) bool { return r.CallOutID == callOutID && r.UserID == userID })
}

func (d *callOutResponseDB) FindByCallOut(_ context.Context, callOutID string) ([]models.CallOutResponse, error) {
	rows := d.t.find(func(r *models.CallOutResponse) bool { return r.CallOutID == callOutID })
	return sortBy(rows, func(a, b *models.CallOutResponse) bool {
		return a.RespondedAt.Before(b.RespondedAt)
	}), nil
}

func (d *callOutResponseDB) Summaries(_ context.Context, callOutIDs []string) (map[string]map[models.ResponseStatus]int, error) {
	want := make(map[string]bool, len(callOutIDs))
	for _, id := range callOutIDs {
		want[id] = true
	}
	out := make(map[string]map[models.ResponseStatus]int, len(callOutIDs))
	for _, r := range d.t.find(func(r *models.CallOutResponse) bool { return want[r.CallOutID] }) {
		if out[r.CallOutID] == nil {
			out[r.CallOutID] = map[models.ResponseStatus]int{}
		}
		out[r.CallOutID][r.Status]++
	}
	return out, nil
}

type missionDB struct {
	t *table[models.SARMission]
}

func (d *missionDB) InsertOne(_ context.Context, m *models.SARMission) error {
	return d.t.insert(m, nil)
}

func (d *missionDB) FindByID(_ context.Context, id string) (*models.SARMission, error) {
	return d.t.get(id)
}

func (d *missionDB) Find(_ context.Context, f databases.MissionFilter, p databases.Page) ([]models.SARMission, error) {
	rows := d.t.find(func(m *models.SARMission) bool {
		if f.Status != "" && m.Status != f.Status {
			return false
		}
		if f.Type != "" && m.MissionType != f.Type {
			return false
		}
		return !f.PublicOnly || m.IsPublicVisible
	})
	return paginate(rows, p, func(a, b *models.SARMission) bool { return a.CreatedAt.After(b.CreatedAt) }), nil
}

func (d *missionDB) Transition(_ context.Context, id string, from []models.MissionStatus, to models.MissionStatus, at time.Time) (*models.SARMission, error) {
	return d.t.update(id, func(m *models.SARMission) error {
		allowed := false
		for _, s := range from {
			if m.Status == s {
				allowed = true
			}
		}
		if !allowed {
			return databases.ErrConditionFailed
		}
		m.Status = to
		m.UpdatedAt = at
		switch to {
		case models.MissionActive:
			m.StartedAt = &at
		case models.MissionCompleted:
			m.CompletedAt = &at
		case models.MissionCancelled:
			m.CancelledAt = &at
		}
		return nil
	})
}

func (d *missionDB) UpdateDetails(_ context.Context, id string, u databases.MissionDetails, at time.Time) (*models.SARMission, error) {
	return d.t.update(id, func(m *models.SARMission) error {
		if m.Status.IsTerminal() {
			return databases.ErrConditionFailed
		}
		if u.Name != nil {
			m.Name = *u.Name
		}
		if u.Description != nil {
			m.Description = *u.Description
		}
		if u.IncidentCommanderID != nil {
			m.IncidentCommanderID = *u.IncidentCommanderID
		}
		if u.IsPublicVisible != nil {
			m.IsPublicVisible = *u.IsPublicVisible
		}
		if u.PublicMessage != nil {
			m.PublicMessage = *u.PublicMessage
		}
		m.UpdatedAt = at
		return nil
	})
}

func (d *callOutResponseDB) Revert(_ context.Context, written, prev *models.CallOutResponse) error {
	d.t.revert(written.ID, prev, func(r *models.CallOutResponse) bool { return r.UpdatedAt.Equal(written.UpdatedAt) })
	return nil
}

type areaDB struct {
	t *table[models.SARMissionArea]
}

func (d *areaDB) InsertOne(_ context.Context, a *models.SARMissionArea) error {
	return d.t.insert(a, nil)
}

func (d *areaDB) FindByID(_ context.Context, id string) (*models.SARMissionArea, error) {
	return d.t.get(id)
}

func (d *areaDB) FindByMission(_ context.Context, missionID string) ([]models.SARMissionArea, error) {
	rows := d.t.find(func(a *models.SARMissionArea) bool { return a.MissionID == missionID })
	return sortBy(rows, func(a, b *models.SARMissionArea) bool {
		return a.Order < b.Order
	}), nil
}

func (d *areaDB) CountByMission(_ context.Context, missionID string) (int64, error) {
	return d.t.count(func(a *models.SARMissionArea) bool { return a.MissionID == missionID }), nil
}

func (d *areaDB) Update(_ context.Context, id string, from models.AreaStatus, u databases.AreaUpdate, at time.Time) (*models.SARMissionArea, error) {
	return d.t.update(id, func(a *models.SARMissionArea) error {
		if a.Status != from {
			return databases.ErrConditionFailed
		}
		if u.Name != nil {
			a.Name = *u.Name
		}
		if u.Status != nil {
			a.Status = *u.Status
		}
		if u.AssignedTo != nil {
			a.AssignedTo = *u.AssignedTo
		}
		if u.Notes != nil {
			a.Notes = *u.Notes
		}
		if u.Coordinates != nil {
			a.Coordinates = u.Coordinates
		}
		a.UpdatedAt = at
		return nil
	})
}

func (d *areaDB) Revert(_ context.Context, written, prev *models.SARMissionArea) error {
	d.t.revert(written.ID, prev, func(a *models.SARMissionArea) bool { return a.UpdatedAt.Equal(written.UpdatedAt) })
	return nil
}

type incidentDB struct {
	t *table[models.Incident]
}

func (d *incidentDB) InsertOne(_ context.Context, i *models.Incident) error {
	return d.t.insert(i, nil)
}

func (d *incidentDB) FindByID(_ context.Context, id string) (*models.Incident, error) {
	return d.t.get(id)
}

func (d *incidentDB) Find(_ context.Context, f databases.IncidentFilter, p databases.Page) ([]models.Incident, error) {
	rows := d.t.find(func(i *models.Incident) bool { return f.Status == "" || i.Status == f.Status })
	return paginate(rows, p, func(a, b *models.Incident) bool { return a.StartedAt.After(b.StartedAt) }), nil
}

func (d *incidentDB) Close(_ context.Context, id string, to models.IncidentStatus, at time.Time) (*models.Incident, error) {
	return d.t.update(id, func(i *models.Incident) error {
		if i.Status != models.IncidentActive {
			return databases.ErrConditionFailed
		}
		i.Status = to
		i.UpdatedAt = at
		switch to {
		case models.IncidentResolved:
			i.ResolvedAt = &at
		case models.IncidentCancelled:
			i.CancelledAt = &at
		}
		return nil
	})
}

type resourceDB struct {
	t *table[models.IncidentResource]
}

func (d *resourceDB) InsertOne(_ context.Context, r *models.IncidentResource) error {
	r.Active = r.Status != models.ResourceUnavailable
	return d.t.insert(r, func(existing *models.IncidentResource) bool {
		return r.Active && existing.Active &&
			existing.IncidentID == r.IncidentID &&
			existing.ResourceName == r.ResourceName
	})
}

func (d *resourceDB) FindByID(_ context.Context, id string) (*models.IncidentResource, error) {
	return d.t.get(id)
}

func (d *resourceDB) FindByIncident(_ context.Context, incidentID string) ([]models.IncidentResource, error) {
	rows := d.t.find(func(r *models.IncidentResource) bool { return r.IncidentID == incidentID })
	return sortBy(rows, func(a, b *models.IncidentResource) bool {
		return a.AssignedAt.Before(b.AssignedAt)
	}), nil
}

func (d *resourceDB) Transition(_ context.Context, id string, from, to models.ResourceStatus, at time.Time) (*models.IncidentResource, error) {
	return d.t.update(id, func(r *models.IncidentResource) error {
		if r.Status != from {
			return databases.ErrConditionFailed
		}
		r.Status = to
		r.Active = to != models.ResourceUnavailable
		r.UpdatedAt = at
		return nil
	})
}

func (d *resourceDB) Revert(_ context.Context, written, prev *models.IncidentResource) error {
	d.t.revert(written.ID, prev, func(r *models.IncidentResource) bool { return r.UpdatedAt.Equal(written.UpdatedAt) })
	return nil
}
