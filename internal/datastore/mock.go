package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
)

// MockStore is an in-memory implementation of the Storer interface.
// ListCampaignsFunc replaces the in-memory listing. UpdateCampaignFunc and
// UpdateCallFunc run before the in-memory update and abort it by returning
// an error.
type MockStore struct {
	mu            sync.Mutex
	campaigns     map[string]*model.Campaign
	calls         map[string]*model.CallRecord
	schemaVersion int

	ListCampaignsFunc  func(ctx context.Context, filter kv.CampaignFilter) ([]*model.Campaign, error)
	UpdateCampaignFunc func(ctx context.Context, id string, u kv.CampaignUpdate) error
	UpdateCallFunc     func(ctx context.Context, id string, u kv.CallUpdate) error

	ListCampaignsCalls  int
	UpdateCampaignCalls int
	UpdateCallCalls     int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		campaigns: make(map[string]*model.Campaign),
		calls:     make(map[string]*model.CallRecord),
	}
}

// ListCampaigns returns copies of the campaigns matching filter, ordered by ID.
func (s *MockStore) ListCampaigns(ctx context.Context, filter kv.CampaignFilter) ([]*model.Campaign, error) {
	s.mu.Lock()
	s.ListCampaignsCalls++
	fn := s.ListCampaignsFunc
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, filter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var campaigns []*model.Campaign
	for _, c := range s.campaigns {
		if filter.Matches(c) {
			copied := *c
			copied.Config = c.CloneConfig()
			campaigns = append(campaigns, &copied)
		}
	}
	sort.Slice(campaigns, func(i, j int) bool { return campaigns[i].ID < campaigns[j].ID })
	return campaigns, nil
}

// GetCampaign retrieves a copy of a single campaign.
func (s *MockStore) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("%w: campaign with id '%s'", kv.ErrNotFound, id)
	}
	copied := *c
	copied.Config = c.CloneConfig()
	return &copied, nil
}

// PutCampaign stores c.
func (s *MockStore) PutCampaign(_ context.Context, c *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	s.campaigns[c.ID] = &copied
	return nil
}

// UpdateCampaign applies u to the stored campaign.
func (s *MockStore) UpdateCampaign(ctx context.Context, id string, u kv.CampaignUpdate) error {
	s.mu.Lock()
	s.UpdateCampaignCalls++
	fn := s.UpdateCampaignFunc
	s.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, id, u); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return fmt.Errorf("%w: campaign with id '%s'", kv.ErrNotFound, id)
	}
	u.Apply(c)
	return nil
}

// FindPendingCall returns the pending call with the lowest ID matching exactly.
func (s *MockStore) FindPendingCall(_ context.Context, campaignID, phoneNumber string) (*model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *model.CallRecord
	for _, r := range s.calls {
		if r.CampaignID != campaignID || r.PhoneNumber != phoneNumber || r.Status != model.CallPending {
			continue
		}
		if found == nil || r.ID < found.ID {
			found = r
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: pending call for '%s' in campaign '%s'", kv.ErrNotFound, phoneNumber, campaignID)
	}
	copied := *found
	return &copied, nil
}

// ListCalls returns the calls of a campaign, or every call when campaignID is empty.
func (s *MockStore) ListCalls(_ context.Context, campaignID string) ([]*model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var calls []*model.CallRecord
	for _, r := range s.calls {
		if campaignID == "" || r.CampaignID == campaignID {
			copied := *r
			calls = append(calls, &copied)
		}
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].ID < calls[j].ID })
	return calls, nil
}

// PutCall stores r.
func (s *MockStore) PutCall(_ context.Context, r *model.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *r
	s.calls[r.ID] = &copied
	return nil
}

// UpdateCall applies u to the stored call record.
func (s *MockStore) UpdateCall(ctx context.Context, id string, u kv.CallUpdate) error {
	s.mu.Lock()
	s.UpdateCallCalls++
	fn := s.UpdateCallFunc
	s.mu.Unlock()
	if fn != nil {
		if err := fn(ctx, id, u); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.calls[id]
	if !ok {
		return fmt.Errorf("%w: call with id '%s'", kv.ErrNotFound, id)
	}
	u.Apply(r)
	return nil
}

// GetSchemaVersion returns the stored schema version.
func (s *MockStore) GetSchemaVersion(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schemaVersion, nil
}

// SetSchemaVersion records the schema version.
func (s *MockStore) SetSchemaVersion(_ context.Context, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaVersion = version
	return nil
}

// Close is a no-op for the mock store.
func (s *MockStore) Close() error {
	return nil
}
