package executor

import (
	"context"
	"sync"

	"github.com/atasun/UltraDialer-sub011/internal/model"
)

// MockExecutor is a mock implementation of the Executor interface for testing.
type MockExecutor struct {
	PauseCampaignFunc     func(ctx context.Context, id string, reason model.PauseReason) error
	ResumeCampaignFunc    func(ctx context.Context, id string, reason model.PauseReason) error
	GetBatchJobStatusFunc func(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error)

	mu      sync.Mutex
	Paused  []string
	Resumed []string
	Polled  []string
}

// NewMockExecutor creates a new MockExecutor that succeeds and reports no batch jobs.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		PauseCampaignFunc: func(ctx context.Context, id string, reason model.PauseReason) error {
			return nil
		},
		ResumeCampaignFunc: func(ctx context.Context, id string, reason model.PauseReason) error {
			return nil
		},
		GetBatchJobStatusFunc: func(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error) {
			return nil, nil
		},
	}
}

// PauseCampaign calls the PauseCampaignFunc.
func (m *MockExecutor) PauseCampaign(ctx context.Context, id string, reason model.PauseReason) error {
	m.mu.Lock()
	m.Paused = append(m.Paused, id)
	m.mu.Unlock()
	return m.PauseCampaignFunc(ctx, id, reason)
}

// ResumeCampaign calls the ResumeCampaignFunc.
func (m *MockExecutor) ResumeCampaign(ctx context.Context, id string, reason model.PauseReason) error {
	m.mu.Lock()
	m.Resumed = append(m.Resumed, id)
	m.mu.Unlock()
	return m.ResumeCampaignFunc(ctx, id, reason)
}

// GetBatchJobStatus calls the GetBatchJobStatusFunc.
func (m *MockExecutor) GetBatchJobStatus(ctx context.Context, campaignID string) (*model.BatchJobSnapshot, error) {
	m.mu.Lock()
	m.Polled = append(m.Polled, campaignID)
	m.mu.Unlock()
	return m.GetBatchJobStatusFunc(ctx, campaignID)
}

// Calls returns copies of the recorded paused, resumed and polled ids.
func (m *MockExecutor) Calls() (paused, resumed, polled []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Paused...), append([]string(nil), m.Resumed...), append([]string(nil), m.Polled...)
}
