package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/models"
)

func (f *fixture) incident(t *testing.T) *models.Incident {
	t.Helper()
	inc, err := f.svc.Incidents.CreateIncident(ctx(), officer, IncidentInput{Title: "Flood", Type: "water"})
	require.NoError(t, err)
	return inc
}

func (f *fixture) resource(t *testing.T, incidentID, name string) *models.IncidentResource {
	t.Helper()
	r, err := f.svc.Incidents.AssignResource(ctx(), officer, incidentID, ResourceInput{
		ResourceType: models.ResourcePersonnel,
		ResourceName: name,
		UserID:       memberA.UserID,
	})
	require.NoError(t, err)
	return r
}

func TestCreateIncident(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Incidents.CreateIncident(ctx(), memberA, IncidentInput{Title: "Flood"})
	assertKind(t, err, KindForbidden)

	inc := f.incident(t)
	assert.Equal(t, models.IncidentActive, inc.Status)
	assert.Equal(t, officer.UserID, inc.IncidentCommanderID)
	assert.Nil(t, inc.ResolvedAt)
	assert.Len(t, f.recorder.OfType(models.NotificationIncident), 1)
}

func TestResourceTransitions(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)
	res := f.resource(t, inc.ID, "Team 1")
	assert.Equal(t, models.ResourceAssigned, res.Status)

	msgs := f.recorder.OfType(models.NotificationResource)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{memberA.UserID}, msgs[0].RecipientIDs)

	_, err := f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceOnScene)
	assertKind(t, err, KindInvalidTransition)

	moved, err := f.svc.Incidents.TransitionResourceStatus(ctx(), memberA, inc.ID, res.ID, models.ResourceEnRoute)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceEnRoute, moved.Status)

	same, err := f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceEnRoute)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceEnRoute, same.Status)

	moved, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceOnScene)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceOnScene, moved.Status)

	_, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceAssigned)
	assertKind(t, err, KindInvalidTransition)

	moved, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceUnavailable)
	require.NoError(t, err)
	assert.Equal(t, models.ResourceUnavailable, moved.Status)

	_, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceEnRoute)
	assertKind(t, err, KindInvalidTransition)
}

func TestResourceTransitionPermissions(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)
	res := f.resource(t, inc.ID, "Team 1")

	_, err := f.svc.Incidents.TransitionResourceStatus(ctx(), memberB, inc.ID, res.ID, models.ResourceEnRoute)
	assertKind(t, err, KindForbidden)

	_, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, "other-incident", res.ID, models.ResourceEnRoute)
	assertKind(t, err, KindNotFound)

	_, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, "lost")
	assertKind(t, err, KindValidation)
}

func TestDuplicateActiveResource(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)
	res := f.resource(t, inc.ID, "Rescue 7")

	_, err := f.svc.Incidents.AssignResource(ctx(), officer, inc.ID, ResourceInput{ResourceType: models.ResourceVehicle, ResourceName: "Rescue 7"})
	assertKind(t, err, KindConflict)

	_, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceUnavailable)
	require.NoError(t, err)

	again, err := f.svc.Incidents.AssignResource(ctx(), officer, inc.ID, ResourceInput{ResourceType: models.ResourceVehicle, ResourceName: "Rescue 7"})
	require.NoError(t, err)
	assert.NotEqual(t, res.ID, again.ID)

	list, err := f.svc.Incidents.ListResources(ctx(), memberB, inc.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAssignResourcePermissionsAndValidation(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)

	_, err := f.svc.Incidents.AssignResource(ctx(), memberA, inc.ID, ResourceInput{ResourceType: models.ResourceEquipment, ResourceName: "Drone"})
	assertKind(t, err, KindForbidden)
	_, err = f.svc.Incidents.AssignResource(ctx(), officer, inc.ID, ResourceInput{ResourceType: "boat", ResourceName: "Drone"})
	assertKind(t, err, KindValidation)
	_, err = f.svc.Incidents.AssignResource(ctx(), officer, "missing", ResourceInput{ResourceType: models.ResourceEquipment, ResourceName: "Drone"})
	assertKind(t, err, KindNotFound)

	// a member named incident commander may assign
	cmd, err := f.svc.Incidents.CreateIncident(ctx(), officer, IncidentInput{Title: "Search", IncidentCommanderID: memberB.UserID})
	require.NoError(t, err)
	_, err = f.svc.Incidents.AssignResource(ctx(), memberB, cmd.ID, ResourceInput{ResourceType: models.ResourceEquipment, ResourceName: "Drone"})
	assert.NoError(t, err)
}

func TestResolveIncident(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)
	res := f.resource(t, inc.ID, "Team 1")

	resolved, err := f.svc.Incidents.ResolveIncident(ctx(), officer, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	again, err := f.svc.Incidents.ResolveIncident(ctx(), admin, inc.ID)
	require.NoError(t, err)
	assert.True(t, resolved.ResolvedAt.Equal(*again.ResolvedAt))

	_, err = f.svc.Incidents.CancelIncident(ctx(), officer, inc.ID)
	assertKind(t, err, KindIncidentClosed)

	_, err = f.svc.Incidents.AssignResource(ctx(), officer, inc.ID, ResourceInput{ResourceType: models.ResourceVehicle, ResourceName: "Rescue 7"})
	assertKind(t, err, KindIncidentClosed)
	_, err = f.svc.Incidents.TransitionResourceStatus(ctx(), officer, inc.ID, res.ID, models.ResourceEnRoute)
	assertKind(t, err, KindIncidentClosed)

	closing := f.recorder.Messages()
	last := closing[len(closing)-1]
	assert.Equal(t, models.NotificationIncident, last.Type)
	assert.Equal(t, []string{memberA.UserID}, last.RecipientIDs)
}

func TestCancelIncidentLeavesResolvedAtEmpty(t *testing.T) {
	f := newFixture(t)
	inc := f.incident(t)

	_, err := f.svc.Incidents.CancelIncident(ctx(), memberA, inc.ID)
	assertKind(t, err, KindForbidden)

	cancelled, err := f.svc.Incidents.CancelIncident(ctx(), officer, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IncidentCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ResolvedAt)
	assert.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Incidents.ResolveIncident(ctx(), officer, inc.ID)
	assertKind(t, err, KindIncidentClosed)
}
