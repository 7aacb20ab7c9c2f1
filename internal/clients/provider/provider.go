// Package provider talks to the external batch-calling provider.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/sony/gobreaker"
)

// ErrUnexpectedStatus is returned when the provider answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected provider status")

// Client is an interface that defines the methods for interacting with the provider API.
type Client interface {
	GetBatchJob(ctx context.Context, batchJobID string) (*model.BatchJobSnapshot, error)
}

// Config holds the settings of a provider client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// client is the concrete implementation of the Client interface.
type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a new provider client using hc for transport.
func NewClient(cfg Config, hc *http.Client) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("provider base url must be set")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid provider base url: %w", err)
	}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}

	return &client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    hc,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "provider",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}, nil
}

type recipientResponse struct {
	ID               string `json:"id"`
	PhoneNumber      string `json:"phone_number"`
	Status           string `json:"status"`
	ConversationID   string `json:"conversation_id"`
	CallDurationSecs *int   `json:"call_duration_secs"`
	ErrorMessage     string `json:"error_message"`
}

type batchJobResponse struct {
	ID                   string              `json:"id"`
	Status               string              `json:"status"`
	TotalCallsDispatched int                 `json:"total_calls_dispatched"`
	TotalCallsScheduled  int                 `json:"total_calls_scheduled"`
	Recipients           []recipientResponse `json:"recipients"`
}

// GetBatchJob fetches the live state of a batch job.
func (c *client) GetBatchJob(ctx context.Context, batchJobID string) (*model.BatchJobSnapshot, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.getBatchJob(ctx, batchJobID)
	})
	if err != nil {
		return nil, err
	}
	return res.(*model.BatchJobSnapshot), nil
}

func (c *client) getBatchJob(ctx context.Context, batchJobID string) (*model.BatchJobSnapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/convai/batch-calling/%s", c.baseURL, url.PathEscape(batchJobID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch job '%s': %w", batchJobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %d for batch job '%s': %s", ErrUnexpectedStatus, resp.StatusCode, batchJobID, strings.TrimSpace(string(body)))
	}

	var payload batchJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode batch job '%s': %w", batchJobID, err)
	}
	return payload.toSnapshot(), nil
}

func (p *batchJobResponse) toSnapshot() *model.BatchJobSnapshot {
	snapshot := &model.BatchJobSnapshot{
		ID:              p.ID,
		Status:          p.Status,
		DispatchedCount: p.TotalCallsDispatched,
		ScheduledCount:  p.TotalCallsScheduled,
		Recipients:      make([]model.Recipient, 0, len(p.Recipients)),
	}
	for _, r := range p.Recipients {
		recipient := model.Recipient{
			RecipientID:    r.ID,
			PhoneNumber:    r.PhoneNumber,
			Status:         model.ParseRecipientStatus(r.Status),
			ConversationID: r.ConversationID,
			ErrorMessage:   r.ErrorMessage,
		}
		if r.CallDurationSecs != nil {
			recipient.DurationSeconds = *r.CallDurationSecs
		}
		snapshot.Recipients = append(snapshot.Recipients, recipient)
	}
	return snapshot
}
