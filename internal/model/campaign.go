package model

import "time"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignFailed    CampaignStatus = "failed"
)

// PauseReason records why a campaign was last paused or resumed.
type PauseReason string

const (
	// PauseReasonScheduled marks transitions made by the scheduler because of the call window.
	PauseReasonScheduled PauseReason = "scheduled"
	// PauseReasonManual marks transitions made by an operator.
	PauseReasonManual PauseReason = "manual"
)

// ConfigPauseReason is the Config key holding the PauseReason.
const ConfigPauseReason = "pauseReason"

// Campaign represents an outbound-calling campaign.
type Campaign struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name" yaml:"name"`
	Status CampaignStatus `json:"status" yaml:"status"`

	ScheduleEnabled   bool     `json:"schedule_enabled" yaml:"schedule_enabled"`
	ScheduleDays      []string `json:"schedule_days,omitempty" yaml:"schedule_days,omitempty"`
	ScheduleTimeStart string   `json:"schedule_time_start,omitempty" yaml:"schedule_time_start,omitempty"`
	ScheduleTimeEnd   string   `json:"schedule_time_end,omitempty" yaml:"schedule_time_end,omitempty"`
	ScheduleTimezone  string   `json:"schedule_timezone,omitempty" yaml:"schedule_timezone,omitempty"`

	// BatchJobID references the provider batch job currently dispatching calls. Empty when none.
	BatchJobID string         `json:"batch_job_id,omitempty" yaml:"batch_job_id,omitempty"`
	Config     map[string]any `json:"config,omitempty" yaml:"config,omitempty"`

	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}

// PauseReason returns the reason recorded in the campaign config, if any.
func (c *Campaign) PauseReason() PauseReason {
	if c.Config == nil {
		return ""
	}
	switch v := c.Config[ConfigPauseReason].(type) {
	case string:
		return PauseReason(v)
	case PauseReason:
		return v
	default:
		return ""
	}
}

// HasBatchJob reports whether a provider batch job is attached.
func (c *Campaign) HasBatchJob() bool {
	return c.BatchJobID != ""
}

// CloneConfig returns a shallow copy of the config map, never nil.
func (c *Campaign) CloneConfig() map[string]any {
	out := make(map[string]any, len(c.Config)+1)
	for k, v := range c.Config {
		out[k] = v
	}
	return out
}
