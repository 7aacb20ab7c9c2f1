package provider

import (
	"context"

	"github.com/atasun/UltraDialer-sub011/internal/model"
)

// MockClient is a mock implementation of the Client interface for testing.
type MockClient struct {
	GetBatchJobFunc func(ctx context.Context, batchJobID string) (*model.BatchJobSnapshot, error)

	GetBatchJobCount int
}

// NewMockClient creates a new MockClient returning an empty snapshot.
func NewMockClient() *MockClient {
	return &MockClient{
		GetBatchJobFunc: func(ctx context.Context, batchJobID string) (*model.BatchJobSnapshot, error) {
			return &model.BatchJobSnapshot{ID: batchJobID}, nil
		},
	}
}

// GetBatchJob calls the GetBatchJobFunc.
func (m *MockClient) GetBatchJob(ctx context.Context, batchJobID string) (*model.BatchJobSnapshot, error) {
	m.GetBatchJobCount++
	return m.GetBatchJobFunc(ctx, batchJobID)
}
