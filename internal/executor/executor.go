// Package executor is the lifecycle authority for campaigns: it performs
// pause and resume transitions and fetches the status of batch jobs.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atasun/UltraDialer-sub011/internal/clients/provider"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
)

// ErrInvalidTransition is returned when a campaign is not in the state a transition starts from.
var ErrInvalidTransition = errors.New("invalid campaign transition")

// Executor performs campaign lifecycle operations.
type Executor interface {
	PauseCampaign(ctx context.Context, id string, reason model.PauseReason) error
	ResumeCampaign(ctx context.Context, id string, reason model.PauseReason) error
	// GetBatchJobStatus returns nil without an error when the campaign has no batch job.
	GetBatchJobStatus(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error)
}

// Local executes transitions against the campaign store and reads job
// status from the provider.
type Local struct {
	store    kv.CampaignStore
	provider provider.Client
}

// New creates a new Local executor. provider may be nil, in which case
// batch job status is never available.
func New(store kv.CampaignStore, p provider.Client) *Local {
	return &Local{store: store, provider: p}
}

// PauseCampaign moves a running campaign to paused and records reason.
func (e *Local) PauseCampaign(ctx context.Context, id string, reason model.PauseReason) error {
	return e.transition(ctx, id, model.CampaignRunning, model.CampaignPaused, reason)
}

// ResumeCampaign moves a paused campaign back to running and records reason.
func (e *Local) ResumeCampaign(ctx context.Context, id string, reason model.PauseReason) error {
	return e.transition(ctx, id, model.CampaignPaused, model.CampaignRunning, reason)
}

func (e *Local) transition(ctx context.Context, id string, from, to model.CampaignStatus, reason model.PauseReason) error {
	c, err := e.store.GetCampaign(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get campaign '%s': %w", id, err)
	}
	if c.Status != from {
		return fmt.Errorf("%w: campaign '%s' is %s, not %s", ErrInvalidTransition, id, c.Status, from)
	}

	config := c.CloneConfig()
	config[model.ConfigPauseReason] = string(reason)
	if err := e.store.UpdateCampaign(ctx, id, kv.CampaignUpdate{Status: &to, Config: config}); err != nil {
		return fmt.Errorf("failed to update campaign '%s': %w", id, err)
	}

	slog.Debug("campaign transitioned", "campaign_id", id, "from", from, "to", to, "reason", reason)
	return nil
}

// GetBatchJobStatus fetches the provider snapshot of the campaign's batch job.
func (e *Local) GetBatchJobStatus(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error) {
	c, err := e.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign '%s': %w", campaignID, err)
	}
	if !c.HasBatchJob() || e.provider == nil {
		return nil, nil
	}
	return e.provider.GetBatchJob(ctx, c.BatchJobID)
}
