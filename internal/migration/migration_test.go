package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/atasun/UltraDialer-sub011/internal/datastore"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_BackfillsPauseReason(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMockStore()
	for _, c := range []*model.Campaign{
		{ID: "legacy", Status: model.CampaignPaused},
		{ID: "scheduled", Status: model.CampaignPaused, Config: map[string]any{model.ConfigPauseReason: "scheduled"}},
		{ID: "running", Status: model.CampaignRunning},
	} {
		require.NoError(t, store.PutCampaign(ctx, c))
	}

	require.NoError(t, Apply(ctx, store))

	legacy, err := store.GetCampaign(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, model.PauseReasonManual, legacy.PauseReason())

	scheduled, err := store.GetCampaign(ctx, "scheduled")
	require.NoError(t, err)
	assert.Equal(t, model.PauseReasonScheduled, scheduled.PauseReason())

	running, err := store.GetCampaign(ctx, "running")
	require.NoError(t, err)
	assert.Equal(t, model.PauseReason(""), running.PauseReason())

	v, err := store.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestApply_SkipsAppliedMigrations(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMockStore()
	require.NoError(t, store.SetSchemaVersion(ctx, 1))
	require.NoError(t, store.PutCampaign(ctx, &model.Campaign{ID: "legacy", Status: model.CampaignPaused}))

	require.NoError(t, Apply(ctx, store))

	legacy, err := store.GetCampaign(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, model.PauseReason(""), legacy.PauseReason())
	assert.Equal(t, 0, store.UpdateCampaignCalls)
}

func TestApply_FailedBackfillIsRetried(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewMockStore()
	for _, c := range []*model.Campaign{
		{ID: "a", Status: model.CampaignPaused},
		{ID: "b", Status: model.CampaignPaused},
	} {
		require.NoError(t, store.PutCampaign(ctx, c))
	}

	store.UpdateCampaignFunc = func(ctx context.Context, id string, u kv.CampaignUpdate) error {
		if id == "a" {
			return errors.New("write conflict")
		}
		return nil
	}

	err := Apply(ctx, store)
	assert.ErrorContains(t, err, "campaign 'a'")

	// The other campaign is still backfilled, but the version is not recorded.
	b, err := store.GetCampaign(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, model.PauseReasonManual, b.PauseReason())

	v, err := store.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	store.UpdateCampaignFunc = nil
	require.NoError(t, Apply(ctx, store))

	a, err := store.GetCampaign(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, model.PauseReasonManual, a.PauseReason())

	v, err = store.GetSchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}
