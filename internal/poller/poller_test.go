package poller

import (
	"context"
	"errors"
	"testing"

	"github.com/atasun/UltraDialer-sub011/internal/executor"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoller_FetchStatus(t *testing.T) {
	ctx := context.Background()
	e := executor.NewMockExecutor()
	e.GetBatchJobStatusFunc = func(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error) {
		return &model.BatchJobSnapshot{
			ID:     "job-1",
			Status: "in_progress",
			Recipients: []model.Recipient{
				{PhoneNumber: "15551234567", Status: model.RecipientCompleted},
			},
		}, nil
	}
	p := New(e, nil)

	snapshot := p.FetchStatus(ctx, &model.Campaign{ID: "a", BatchJobID: "job-1"})
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Recipients, 1)

	assert.True(t, p.changed("b", jobState{batchJobID: "job-2", status: "in_progress"}))
	assert.False(t, p.changed("b", jobState{batchJobID: "job-2", status: "in_progress"}))
	assert.True(t, p.changed("b", jobState{batchJobID: "job-2", status: "completed"}))
	assert.True(t, p.changed("b", jobState{batchJobID: "job-3", status: "completed"}))
}

func TestPoller_Retain(t *testing.T) {
	ctx := context.Background()
	e := executor.NewMockExecutor()
	e.GetBatchJobStatusFunc = func(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error) {
		return &model.BatchJobSnapshot{ID: "job-" + campaignID, Status: "in_progress"}, nil
	}
	p := New(e, nil)

	for _, id := range []string{"a", "b", "c"} {
		require.NotNil(t, p.FetchStatus(ctx, &model.Campaign{ID: id, BatchJobID: "job-" + id}))
	}
	require.Len(t, p.knownState, 3)

	p.Retain([]string{"b"})
	assert.Len(t, p.knownState, 1)
	assert.Contains(t, p.knownState, "b")

	p.Retain(nil)
	assert.Empty(t, p.knownState)
}

func TestPoller_FetchStatus_NoBatchJob(t *testing.T) {
	e := executor.NewMockExecutor()
	p := New(e, nil)

	assert.Nil(t, p.FetchStatus(context.Background(), &model.Campaign{ID: "a"}))

	_, _, polled := e.Calls()
	assert.Empty(t, polled)
}

func TestPoller_FetchStatus_Error(t *testing.T) {
	e := executor.NewMockExecutor()
	e.GetBatchJobStatusFunc = func(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error) {
		return nil, errors.New("provider unavailable")
	}
	p := New(e, nil)

	assert.Nil(t, p.FetchStatus(context.Background(), &model.Campaign{ID: "a", BatchJobID: "job-1"}))
}
