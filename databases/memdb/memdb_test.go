package memdb_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/databases/memdb"
	"github.com/geijin5/apsar-emergency-api/models"
)

func TestCallOutResponseUpsertKeepsOneRowPerUser(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()
	first := time.Now().Add(-time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.ResponseAvailable
			if i%2 == 0 {
				status = models.ResponseEnRoute
			}
			_, err := store.CallOutResponses.Upsert(ctx, &models.CallOutResponse{
				CallOutID:   "co-1",
				UserID:      "u-1",
				Status:      status,
				RespondedAt: first,
				UpdatedAt:   time.Now(),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rows, err := store.CallOutResponses.FindByCallOut(ctx, "co-1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.WithinDuration(t, first, rows[0].RespondedAt, time.Millisecond)
}

func TestResourceNameUniqueWhileActive(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()

	first := &models.IncidentResource{ID: "r-1", IncidentID: "inc-1", ResourceName: "Rescue 1", Status: models.ResourceAssigned}
	require.NoError(t, store.IncidentResources.InsertOne(ctx, first))

	dup := &models.IncidentResource{ID: "r-2", IncidentID: "inc-1", ResourceName: "Rescue 1", Status: models.ResourceAssigned}
	assert.ErrorIs(t, store.IncidentResources.InsertOne(ctx, dup), databases.ErrDuplicate)

	other := &models.IncidentResource{ID: "r-3", IncidentID: "inc-2", ResourceName: "Rescue 1", Status: models.ResourceAssigned}
	assert.NoError(t, store.IncidentResources.InsertOne(ctx, other))

	_, err := store.IncidentResources.Transition(ctx, "r-1", models.ResourceAssigned, models.ResourceUnavailable, time.Now())
	require.NoError(t, err)
	assert.NoError(t, store.IncidentResources.InsertOne(ctx, dup))
}

func TestReportReplaceIsVersioned(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()

	r := &models.CalloutReport{ID: "rep-1", Status: models.ReportDraft}
	require.NoError(t, store.Reports.InsertOne(ctx, r))

	a, err := store.Reports.FindByID(ctx, "rep-1")
	require.NoError(t, err)
	b, err := store.Reports.FindByID(ctx, "rep-1")
	require.NoError(t, err)

	a.Status = models.ReportSubmitted
	require.NoError(t, store.Reports.Replace(ctx, a, 0))
	assert.Equal(t, int64(1), a.Version)

	b.Notes = "stale"
	assert.ErrorIs(t, store.Reports.Replace(ctx, b, 0), databases.ErrConditionFailed)

	stored, err := store.Reports.FindByID(ctx, "rep-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportSubmitted, stored.Status)
	assert.Empty(t, stored.Notes)
}

func TestConditionalCloseAndMissingRows(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.CallOuts.InsertOne(ctx, &models.CallOut{ID: "co-1", Status: models.CallOutActive}))

	co, err := store.CallOuts.Close(ctx, "co-1", models.CallOutCancelled, "officer-1", now)
	require.NoError(t, err)
	assert.Equal(t, models.CallOutCancelled, co.Status)
	assert.NotNil(t, co.ClosedAt)

	_, err = store.CallOuts.Close(ctx, "co-1", models.CallOutCompleted, "officer-1", now)
	assert.ErrorIs(t, err, databases.ErrConditionFailed)

	_, err = store.CallOuts.Close(ctx, "missing", models.CallOutCompleted, "officer-1", now)
	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestReadsDoNotAliasStoredRows(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()

	require.NoError(t, store.Checklists.InsertOne(ctx, &models.Checklist{
		ID:    "cl-1",
		Items: []models.ChecklistItem{{ItemID: "a", Status: models.ItemPending}},
	}))

	cl, err := store.Checklists.FindByID(ctx, "cl-1")
	require.NoError(t, err)
	cl.Items[0].Status = models.ItemComplete

	again, err := store.Checklists.FindByID(ctx, "cl-1")
	require.NoError(t, err)
	assert.Equal(t, models.ItemPending, again.Items[0].Status)
}

func TestUserFindIDsPagesByID(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()
	for _, u := range []models.User{
		{ID: "a", Email: "a@x", Role: models.RoleMember, IsActive: true},
		{ID: "b", Email: "b@x", Role: models.RoleOfficer, IsActive: true},
		{ID: "c", Email: "c@x", Role: models.RoleAdmin, IsActive: false},
		{ID: "d", Email: "d@x", Role: models.RoleAdmin, IsActive: true},
	} {
		u := u
		require.NoError(t, store.Users.InsertOne(ctx, &u))
	}

	ids, err := store.Users.FindIDs(ctx, databases.UserFilter{ActiveOnly: true}, "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	ids, err = store.Users.FindIDs(ctx, databases.UserFilter{ActiveOnly: true}, "b", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, ids)

	ids, err = store.Users.FindIDs(ctx, databases.UserFilter{MinRole: models.RoleOfficer, ActiveOnly: true}, "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "d"}, ids)

	dup := models.User{ID: "e", Email: "A@X"}
	assert.ErrorIs(t, store.Users.InsertOne(ctx, &dup), databases.ErrDuplicate)
}

func TestSchedulerLockSingleOwner(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()

	ok, err := store.SchedulerLocks.TryAcquireLock(ctx, "job", "one", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SchedulerLocks.TryAcquireLock(ctx, "job", "two", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SchedulerLocks.ReleaseLock(ctx, "job", "one"))
	ok, err = store.SchedulerLocks.TryAcquireLock(ctx, "job", "two", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
