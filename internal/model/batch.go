package model

import "strings"

// RecipientStatus is the status the provider reports for a single recipient.
type RecipientStatus string

const (
	RecipientPending    RecipientStatus = "pending"
	RecipientInProgress RecipientStatus = "in_progress"
	RecipientCompleted  RecipientStatus = "completed"
	RecipientNoResponse RecipientStatus = "no_response"
	RecipientFailed     RecipientStatus = "failed"
	RecipientCancelled  RecipientStatus = "cancelled"
	RecipientVoicemail  RecipientStatus = "voicemail"
)

// ParseRecipientStatus normalises a provider status string. Hyphens and
// underscores are treated alike, so "in-progress" and "in_progress" are equal.
func ParseRecipientStatus(s string) RecipientStatus {
	return RecipientStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
}

// Terminal reports whether the provider has finished with the recipient.
func (s RecipientStatus) Terminal() bool {
	switch s {
	case RecipientPending, RecipientInProgress:
		return false
	default:
		return true
	}
}

// CallStatus maps a terminal provider status onto the local call status.
// Every status the provider may add falls through to CallFailed.
func (s RecipientStatus) CallStatus() CallStatus {
	switch s {
	case RecipientCompleted:
		return CallCompleted
	case RecipientNoResponse:
		return CallNoAnswer
	case RecipientFailed, RecipientCancelled, RecipientVoicemail:
		return CallFailed
	default:
		return CallFailed
	}
}

// Recipient is the provider view of one destination in a batch job.
type Recipient struct {
	RecipientID     string          `json:"id"`
	PhoneNumber     string          `json:"phone_number"`
	Status          RecipientStatus `json:"status"`
	ConversationID  string          `json:"conversation_id,omitempty"`
	DurationSeconds int             `json:"call_duration_secs,omitempty"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}

// BatchJobSnapshot is the live state of a provider batch job.
type BatchJobSnapshot struct {
	ID              string      `json:"id"`
	Status          string      `json:"status"`
	DispatchedCount int         `json:"total_calls_dispatched"`
	ScheduledCount  int         `json:"total_calls_scheduled"`
	Recipients      []Recipient `json:"recipients"`
}
