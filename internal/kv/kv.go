package kv

import (
	"context"
	"errors"
	"strings"

	"github.com/atasun/UltraDialer-sub011/internal/model"
)

// Err* are common errors returned by the datastore.
var (
	ErrNotFound            = errors.New("not found")
	ErrDBOperationFailed   = errors.New("db operation failed")
	ErrSerializationFailed = errors.New("serialization failed")
)

// CampaignFilter selects campaigns. Zero fields do not filter.
type CampaignFilter struct {
	Status          model.CampaignStatus
	ScheduleEnabled *bool
	HasBatchJob     bool
}

// Matches reports whether c satisfies the filter.
func (f CampaignFilter) Matches(c *model.Campaign) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.ScheduleEnabled != nil && c.ScheduleEnabled != *f.ScheduleEnabled {
		return false
	}
	if f.HasBatchJob && !c.HasBatchJob() {
		return false
	}
	return true
}

// Bool is a helper for CampaignFilter.ScheduleEnabled.
func Bool(b bool) *bool {
	return &b
}

// CampaignUpdate holds the campaign fields to overwrite. Nil fields are left alone.
type CampaignUpdate struct {
	Status *model.CampaignStatus
	Config map[string]any
}

// Apply writes the update onto c.
func (u CampaignUpdate) Apply(c *model.Campaign) {
	if u.Status != nil {
		c.Status = *u.Status
	}
	if u.Config != nil {
		c.Config = u.Config
	}
}

// CallUpdate holds the call record fields to overwrite. Nil fields are left alone.
type CallUpdate struct {
	Status                 *model.CallStatus
	Duration               *int
	ExternalConversationID *string
	Metadata               map[string]any
}

// Apply writes the update onto r.
func (u CallUpdate) Apply(r *model.CallRecord) {
	if u.Status != nil {
		r.Status = *u.Status
	}
	if u.Duration != nil {
		r.Duration = *u.Duration
	}
	if u.ExternalConversationID != nil {
		r.ExternalConversationID = *u.ExternalConversationID
	}
	if u.Metadata != nil {
		r.Metadata = u.Metadata
	}
}

// CampaignStore persists campaigns.
type CampaignStore interface {
	ListCampaigns(ctx context.Context, filter CampaignFilter) ([]*model.Campaign, error)
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)
	PutCampaign(ctx context.Context, c *model.Campaign) error
	UpdateCampaign(ctx context.Context, id string, u CampaignUpdate) error
}

// CallStore persists call records.
type CallStore interface {
	// FindPendingCall returns ErrNotFound when no pending record matches exactly.
	FindPendingCall(ctx context.Context, campaignID, phoneNumber string) (*model.CallRecord, error)
	ListCalls(ctx context.Context, campaignID string) ([]*model.CallRecord, error)
	PutCall(ctx context.Context, r *model.CallRecord) error
	UpdateCall(ctx context.Context, id string, u CallUpdate) error
}

// Storer is an interface that defines the methods for interacting with the datastore.
type Storer interface {
	CampaignStore
	CallStore

	GetSchemaVersion(ctx context.Context) (int, error)
	SetSchemaVersion(ctx context.Context, version int) error
	Close() error
}

// CallKey indexes pending calls by campaign and phone number.
func CallKey(campaignID, phoneNumber string) string {
	return strings.Join([]string{campaignID, phoneNumber}, "@")
}
