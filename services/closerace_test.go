package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

// closingCallOuts completes the call-out right after the first read returns it, the way a
// concurrent close would land between a check and the write that follows it
type closingCallOuts struct {
	databases.CallOutDatabase
	once sync.Once
	at   time.Time
}

func (c *closingCallOuts) FindByID(ctx context.Context, id string) (*models.CallOut, error) {
	co, err := c.CallOutDatabase.FindByID(ctx, id)
	if err == nil {
		c.once.Do(func() {
			_, err = c.CallOutDatabase.Close(ctx, id, models.CallOutCompleted, officer.UserID, c.at)
		})
	}
	return co, err
}

type closingIncidents struct {
	databases.IncidentDatabase
	once sync.Once
	at   time.Time
}

func (c *closingIncidents) FindByID(ctx context.Context, id string) (*models.Incident, error) {
	inc, err := c.IncidentDatabase.FindByID(ctx, id)
	if err == nil {
		c.once.Do(func() {
			_, err = c.IncidentDatabase.Close(ctx, id, models.IncidentResolved, c.at)
		})
	}
	return inc, err
}

type cancellingMissions struct {
	databases.SARMissionDatabase
	once sync.Once
	at   time.Time
}

func (c *cancellingMissions) FindByID(ctx context.Context, id string) (*models.SARMission, error) {
	m, err := c.SARMissionDatabase.FindByID(ctx, id)
	if err == nil {
		c.once.Do(func() {
			from := []models.MissionStatus{models.MissionPlanning, models.MissionActive}
			_, err = c.SARMissionDatabase.Transition(ctx, id, from, models.MissionCancelled, c.at)
		})
	}
	return m, err
}

func TestRespondLosesToConcurrentClose(t *testing.T) {
	f := newFixture(t)
	c := f.callOut(t, time.Hour)
	f.svc.CallOuts.callOuts = &closingCallOuts{CallOutDatabase: f.store.CallOuts, at: f.now}

	_, err := f.svc.CallOuts.RespondToCallOut(ctx(), memberA, c.ID, ResponseInput{Status: models.ResponseAvailable})
	assertKind(t, err, KindCallOutClosed)

	stored, err := f.store.CallOuts.FindByID(ctx(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CallOutCompleted, stored.Status)
	rows, err := f.store.CallOutResponses.FindByCallOut(ctx(), c.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestRespondUpdateLosesToConcurrentClose(t *testing.T) {
	f := newFixture(t)
	c := f.callOut(t, time.Hour)
	_, err := f.svc.CallOuts.RespondToCallOut(ctx(), memberA, c.ID, ResponseInput{Status: models.ResponseAvailable})
	require.NoError(t, err)

	f.advance(time.Minute)
	f.svc.CallOuts.callOuts = &closingCallOuts{CallOutDatabase: f.store.CallOuts, at: f.now}
	_, err = f.svc.CallOuts.RespondToCallOut(ctx(), memberA, c.ID, ResponseInput{Status: models.ResponseUnavailable})
	assertKind(t, err, KindCallOutClosed)

	own, err := f.store.CallOutResponses.FindOne(ctx(), c.ID, memberA.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.ResponseAvailable, own.Status)
}

func TestResourceTransitionLosesToConcurrentResolve(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)
	r := f.resource(t, inc.ID, "Team 1")

	f.advance(time.Minute)
	f.svc.Incidents.incidents = &closingIncidents{IncidentDatabase: f.store.Incidents, at: f.now}
	_, err := f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, r.ID, models.ResourceEnRoute)
	assertKind(t, err, KindIncidentClosed)

	stored, err := f.store.IncidentResources.FindByID(ctx(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceAssigned, stored.Status)
}

func TestAssignResourceLosesToConcurrentResolve(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)
	f.svc.Incidents.incidents = &closingIncidents{IncidentDatabase: f.store.Incidents, at: f.now}

	_, err := f.svc.Incidents.AssignResource(ctx(), officer, inc.ID, ResourceInput{
		ResourceType: models.ResourceVehicle,
		ResourceName: "Truck 2",
	})
	assertKind(t, err, KindIncidentClosed)

	rows, err := f.store.IncidentResources.FindByIncident(ctx(), inc.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAreaWritesLoseToConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.Missions.CreateSARMission(ctx(), officer, MissionInput{Name: "Ridge", MissionType: models.MissionTypeActive})
	require.NoError(t, err)
	a, err := f.svc.Missions.CreateArea(ctx(), officer, m.ID, AreaInput{Name: "Sector A"})
	require.NoError(t, err)

	f.advance(time.Minute)
	f.svc.Missions.missions = &cancellingMissions{SARMissionDatabase: f.store.Missions, at: f.now}
	searching := models.AreaSearching
	_, err = f.svc.Missions.UpdateArea(ctx(), officer, m.ID, a.ID, databases.AreaUpdate{Status: &searching})
	assertKind(t, err, KindMissionClosed)

	stored, err := f.store.MissionAreas.FindByID(ctx(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AreaUnassigned, stored.Status)
}

func TestCreateAreaLosesToConcurrentCancel(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.Missions.CreateSARMission(ctx(), officer, MissionInput{Name: "Ridge", MissionType: models.MissionTypeActive})
	require.NoError(t, err)
	f.svc.Missions.missions = &cancellingMissions{SARMissionDatabase: f.store.Missions, at: f.now}

	_, err = f.svc.Missions.CreateArea(ctx(), officer, m.ID, AreaInput{Name: "Sector A"})
	assertKind(t, err, KindMissionClosed)

	n, err := f.store.MissionAreas.CountByMission(ctx(), m.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}
