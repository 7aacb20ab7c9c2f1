package poller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/atasun/UltraDialer-sub011/internal/executor"
	"github.com/atasun/UltraDialer-sub011/internal/metrics"
	"github.com/atasun/UltraDialer-sub011/internal/model"
)

// Poller fetches the live status of a campaign's batch job.
type Poller struct {
	executor executor.Executor
	metrics  *metrics.Recorder

	mu sync.Mutex
	// knownState holds the last batch job id and status seen per campaign.
	knownState map[string]jobState
}

type jobState struct {
	batchJobID string
	status     string
}

// New creates a new Poller. metrics may be nil.
func New(e executor.Executor, m *metrics.Recorder) *Poller {
	return &Poller{
		executor:   e,
		metrics:    m,
		knownState: make(map[string]jobState),
	}
}

// FetchStatus returns the batch job snapshot for c, or nil when c has no
// batch job or the provider could not be reached. Failures are logged.
func (p *Poller) FetchStatus(ctx context.Context, c *model.Campaign) *model.BatchJobSnapshot {
	if !c.HasBatchJob() {
		return nil
	}

	snapshot, err := p.executor.GetBatchJobStatus(ctx, c.ID)
	if err != nil {
		slog.Error("failed to fetch batch job status", "campaign_id", c.ID, "campaign", c.Name, "batch_job_id", c.BatchJobID, "error", err)
		p.metrics.PollFailed()
		return nil
	}
	if snapshot == nil {
		return nil
	}

	if p.changed(c.ID, jobState{batchJobID: c.BatchJobID, status: snapshot.Status}) {
		slog.Info("batch job status changed",
			"campaign_id", c.ID,
			"campaign", c.Name,
			"status", snapshot.Status,
			"dispatched", snapshot.DispatchedCount,
			"scheduled", snapshot.ScheduledCount,
		)
	}
	return snapshot
}

// Retain forgets every campaign not in campaignIDs.
func (p *Poller) Retain(campaignIDs []string) {
	keep := make(map[string]struct{}, len(campaignIDs))
	for _, id := range campaignIDs {
		keep[id] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.knownState {
		if _, ok := keep[id]; !ok {
			delete(p.knownState, id)
		}
	}
}

func (p *Poller) changed(campaignID string, state jobState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if known, ok := p.knownState[campaignID]; ok && known == state {
		return false
	}
	p.knownState[campaignID] = state
	return true
}
