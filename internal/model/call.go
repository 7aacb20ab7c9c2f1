package model

import "time"

// CallStatus is the local status of a single call.
type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
	CallNoAnswer  CallStatus = "no-answer"
)

// MetadataErrorMessage is the Metadata key the provider error is merged under.
const MetadataErrorMessage = "errorMessage"

// CallRecord is one locally owned call to a destination phone number.
type CallRecord struct {
	ID          string     `json:"id" yaml:"id"`
	CampaignID  string     `json:"campaign_id" yaml:"campaign_id"`
	PhoneNumber string     `json:"phone_number" yaml:"phone_number"`
	Status      CallStatus `json:"status" yaml:"status"`
	// Duration is in seconds.
	Duration               int            `json:"duration" yaml:"duration"`
	ExternalConversationID string         `json:"external_conversation_id,omitempty" yaml:"external_conversation_id,omitempty"`
	Metadata               map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
}
