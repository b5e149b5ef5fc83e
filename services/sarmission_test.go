package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

func TestCreateMissionRoleGate(t *testing.T) {
	f := newFixture(t)

	training, err := f.svc.Missions.CreateSARMission(ctx(), memberA, MissionInput{Name: "Night nav"})
	require.NoError(t, err)
	assert.Equal(t, models.MissionTypeTraining, training.MissionType)
	assert.Equal(t, models.MissionPlanning, training.Status)
	assert.Equal(t, memberA.UserID, training.IncidentCommanderID)

	_, err = f.svc.Missions.CreateSARMission(ctx(), memberA, MissionInput{Name: "Ridge", MissionType: models.MissionTypeActive})
	assertKind(t, err, KindForbidden)

	_, err = f.svc.Missions.CreateSARMission(ctx(), officer, MissionInput{Name: "Ridge", MissionType: "drill"})
	assertKind(t, err, KindValidation)

	active, err := f.svc.Missions.CreateSARMission(ctx(), officer, MissionInput{Name: "Ridge", MissionType: models.MissionTypeActive})
	require.NoError(t, err)
	assert.Equal(t, models.MissionPlanning, active.Status)
}

func TestMissionLifecycle(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.Missions.CreateSARMission(ctx(), officer, MissionInput{
		Name:            "Ridge",
		MissionType:     models.MissionTypeActive,
		IsPublicVisible: true,
		PublicMessage:   "Avoid the north trail",
	})
	require.NoError(t, err)

	_, err = f.svc.Missions.CompleteMission(ctx(), officer, m.ID)
	assertKind(t, err, KindInvalidTransition)

	public, err := f.svc.Missions.ListPublicMissions(ctx(), databases.Page{})
	require.NoError(t, err)
	assert.Empty(t, public)

	started, err := f.svc.Missions.StartMission(ctx(), officer, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MissionActive, started.Status)
	require.NotNil(t, started.StartedAt)
	assert.Len(t, f.recorder.OfType(models.NotificationMission), 1)

	public, err = f.svc.Missions.ListPublicMissions(ctx(), databases.Page{})
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Avoid the north trail", public[0].PublicMessage)

	completed, err := f.svc.Missions.CompleteMission(ctx(), officer, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MissionCompleted, completed.Status)

	again, err := f.svc.Missions.CompleteMission(ctx(), officer, m.ID)
	require.NoError(t, err)
	assert.True(t, completed.CompletedAt.Equal(*again.CompletedAt))

	_, err = f.svc.Missions.CancelMission(ctx(), officer, m.ID)
	assertKind(t, err, KindMissionClosed)
	_, err = f.svc.Missions.StartMission(ctx(), officer, m.ID)
	assertKind(t, err, KindMissionClosed)
	_, err = f.svc.Missions.CreateArea(ctx(), officer, m.ID, AreaInput{Name: "Sector A"})
	assertKind(t, err, KindMissionClosed)
	name := "Renamed"
	_, err = f.svc.Missions.UpdateSARMission(ctx(), officer, m.ID, databases.MissionDetails{Name: &name})
	assertKind(t, err, KindMissionClosed)
}

func TestTrainingMissionStartIsQuiet(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.Missions.CreateSARMission(ctx(), memberA, MissionInput{Name: "Night nav"})
	require.NoError(t, err)

	_, err = f.svc.Missions.StartMission(ctx(), memberB, m.ID)
	assertKind(t, err, KindForbidden)

	_, err = f.svc.Missions.StartMission(ctx(), memberA, m.ID)
	require.NoError(t, err)
	assert.Empty(t, f.recorder.OfType(models.NotificationMission))

	cancelled, err := f.svc.Missions.CancelMission(ctx(), memberA, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MissionCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)
}

func TestMissionAreas(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.Missions.CreateSARMission(ctx(), officer, MissionInput{Name: "Ridge", MissionType: models.MissionTypeActive})
	require.NoError(t, err)

	a, err := f.svc.Missions.CreateArea(ctx(), officer, m.ID, AreaInput{Name: "Sector A", AssignedTo: memberA.UserID})
	require.NoError(t, err)
	assert.Equal(t, models.AreaUnassigned, a.Status)
	assert.Equal(t, 0, a.Order)
	b, err := f.svc.Missions.CreateArea(ctx(), officer, m.ID, AreaInput{Name: "Sector B"})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Order)
	assert.Len(t, f.recorder.OfType(models.NotificationMissionArea), 1)

	_, err = f.svc.Missions.CreateArea(ctx(), memberA, m.ID, AreaInput{Name: "Sector C"})
	assertKind(t, err, KindForbidden)

	cleared := models.AreaCleared
	_, err = f.svc.Missions.UpdateArea(ctx(), officer, m.ID, a.ID, databases.AreaUpdate{Status: &cleared})
	assertKind(t, err, KindInvalidTransition)

	searching := models.AreaSearching
	notes := "Starting from the trailhead"
	moved, err := f.svc.Missions.UpdateArea(ctx(), memberA, m.ID, a.ID, databases.AreaUpdate{Status: &searching, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, models.AreaSearching, moved.Status)
	assert.Equal(t, notes, moved.Notes)

	rename := "Sector A1"
	_, err = f.svc.Missions.UpdateArea(ctx(), memberA, m.ID, a.ID, databases.AreaUpdate{Name: &rename})
	assertKind(t, err, KindForbidden)
	_, err = f.svc.Missions.UpdateArea(ctx(), memberB, m.ID, a.ID, databases.AreaUpdate{Status: &cleared})
	assertKind(t, err, KindForbidden)

	moved, err = f.svc.Missions.UpdateArea(ctx(), memberA, m.ID, a.ID, databases.AreaUpdate{Status: &cleared})
	require.NoError(t, err)
	assert.Equal(t, models.AreaCleared, moved.Status)

	_, err = f.svc.Missions.UpdateArea(ctx(), officer, m.ID, a.ID, databases.AreaUpdate{Status: &searching})
	assertKind(t, err, KindInvalidTransition)

	_, err = f.svc.Missions.UpdateArea(ctx(), officer, "other", a.ID, databases.AreaUpdate{Status: &searching})
	assertKind(t, err, KindNotFound)

	got, err := f.svc.Missions.GetSARMission(ctx(), memberB, m.ID)
	require.NoError(t, err)
	require.Len(t, got.Areas, 2)
	assert.Equal(t, "Sector A", got.Areas[0].Name)
	assert.Equal(t, "Sector B", got.Areas[1].Name)
}

func TestUpdateMission(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.Missions.CreateSARMission(ctx(), officer, MissionInput{Name: "Ridge", MissionType: models.MissionTypeActive})
	require.NoError(t, err)

	visible := true
	msg := "Road closed"
	_, err = f.svc.Missions.UpdateSARMission(ctx(), memberA, m.ID, databases.MissionDetails{IsPublicVisible: &visible})
	assertKind(t, err, KindForbidden)

	updated, err := f.svc.Missions.UpdateSARMission(ctx(), officer, m.ID, databases.MissionDetails{IsPublicVisible: &visible, PublicMessage: &msg})
	require.NoError(t, err)
	assert.True(t, updated.IsPublicVisible)
	assert.Equal(t, msg, updated.PublicMessage)
	assert.Equal(t, "Ridge", updated.Name)
}
