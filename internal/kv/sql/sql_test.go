package sql_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
	kvsql "github.com/atasun/UltraDialer-sub011/internal/kv/sql"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) kv.Storer {
	t.Helper()
	store, err := kvsql.NewSQLiteStore(filepath.Join(t.TempDir(), "test.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_EmptyConnection(t *testing.T) {
	_, err := kvsql.NewSQLiteStore("")
	assert.Error(t, err)

	_, err = kvsql.NewPostgresStore("")
	assert.Error(t, err)
}

func TestStore_ListCampaignsFilter(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, c := range []*model.Campaign{
		{ID: "a", Status: model.CampaignRunning, ScheduleEnabled: true, BatchJobID: "job-a", ScheduleDays: []string{"monday"}},
		{ID: "b", Status: model.CampaignRunning, ScheduleEnabled: true},
		{ID: "c", Status: model.CampaignPaused, ScheduleEnabled: true, BatchJobID: "job-c"},
		{ID: "d", Status: model.CampaignRunning, BatchJobID: "job-d"},
	} {
		require.NoError(t, store.PutCampaign(ctx, c))
	}

	running, err := store.ListCampaigns(ctx, kv.CampaignFilter{Status: model.CampaignRunning, ScheduleEnabled: kv.Bool(true), HasBatchJob: true})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, "a", running[0].ID)
	assert.Equal(t, []string{"monday"}, running[0].ScheduleDays)

	syncable, err := store.ListCampaigns(ctx, kv.CampaignFilter{Status: model.CampaignRunning, HasBatchJob: true})
	require.NoError(t, err)
	require.Len(t, syncable, 2)
	assert.Equal(t, "d", syncable[1].ID)

	all, err := store.ListCampaigns(ctx, kv.CampaignFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStore_PutCampaignReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutCampaign(ctx, &model.Campaign{ID: "a", Name: "First", Status: model.CampaignDraft}))
	require.NoError(t, store.PutCampaign(ctx, &model.Campaign{ID: "a", Name: "Second", Status: model.CampaignRunning}))

	c, err := store.GetCampaign(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Second", c.Name)
	assert.Equal(t, model.CampaignRunning, c.Status)

	_, err = store.GetCampaign(ctx, "missing")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_UpdateCampaign(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutCampaign(ctx, &model.Campaign{ID: "a", Name: "Spring", Status: model.CampaignRunning, Config: map[string]any{"voice": "eve"}}))

	paused := model.CampaignPaused
	require.NoError(t, store.UpdateCampaign(ctx, "a", kv.CampaignUpdate{
		Status: &paused,
		Config: map[string]any{"voice": "eve", model.ConfigPauseReason: "scheduled"},
	}))

	c, err := store.GetCampaign(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.CampaignPaused, c.Status)
	assert.Equal(t, "Spring", c.Name)
	assert.Equal(t, model.PauseReasonScheduled, c.PauseReason())

	err = store.UpdateCampaign(ctx, "missing", kv.CampaignUpdate{Status: &paused})
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_FindPendingCall(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.PutCall(ctx, &model.CallRecord{ID: "1", CampaignID: "a", PhoneNumber: "15551234567", Status: model.CallPending}))
	require.NoError(t, store.PutCall(ctx, &model.CallRecord{ID: "2", CampaignID: "b", PhoneNumber: "15551234567", Status: model.CallPending}))

	r, err := store.FindPendingCall(ctx, "a", "15551234567")
	require.NoError(t, err)
	assert.Equal(t, "1", r.ID)

	_, err = store.FindPendingCall(ctx, "a", "+15551234567")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	completed := model.CallCompleted
	duration := 42
	require.NoError(t, store.UpdateCall(ctx, "1", kv.CallUpdate{
		Status:   &completed,
		Duration: &duration,
		Metadata: map[string]any{model.MetadataErrorMessage: "none"},
	}))

	_, err = store.FindPendingCall(ctx, "a", "15551234567")
	assert.ErrorIs(t, err, kv.ErrNotFound)

	calls, err := store.ListCalls(ctx, "a")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, model.CallCompleted, calls[0].Status)
	assert.Equal(t, 42, calls[0].Duration)
	assert.Equal(t, "none", calls[0].Metadata[model.MetadataErrorMessage])

	all, err := store.ListCalls(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_SchemaVersion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	v, err := store.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, store.SetSchemaVersion(ctx, 1))
	require.NoError(t, store.SetSchemaVersion(ctx, 2))
	v, err = store.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}
