// Package reconciler applies provider-reported recipient outcomes to the
// locally stored call records.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/metrics"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/hashicorp/go-multierror"
)

// Result summarises one reconciliation pass.
type Result struct {
	// Updated counts call records moved out of pending.
	Updated int
	// InFlight counts recipients the provider has not finished with.
	InFlight int
	// Unmatched counts terminal recipients with no pending call record,
	// including those already finalised by an earlier pass.
	Unmatched int
}

// Reconciler maps recipient outcomes onto call records.
type Reconciler struct {
	store   kv.CallStore
	metrics *metrics.Recorder
}

// New creates a new Reconciler. metrics may be nil.
func New(store kv.CallStore, m *metrics.Recorder) *Reconciler {
	return &Reconciler{store: store, metrics: m}
}

// Reconcile updates the pending call record of every terminal recipient.
// Each record is written on its own; a failed write does not stop the
// remaining recipients and all failures are returned together.
func (r *Reconciler) Reconcile(ctx context.Context, campaignID string, recipients []model.Recipient) (Result, error) {
	var (
		res  Result
		errs *multierror.Error
	)

	for _, recipient := range recipients {
		if !recipient.Status.Terminal() {
			res.InFlight++
			continue
		}

		call, err := r.findPendingCall(ctx, campaignID, recipient.PhoneNumber)
		if errors.Is(err, kv.ErrNotFound) {
			slog.Debug("no pending call for recipient", "campaign_id", campaignID, "recipient_id", recipient.RecipientID)
			res.Unmatched++
			continue
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("recipient '%s': %w", recipient.RecipientID, err))
			continue
		}

		status := recipient.Status.CallStatus()
		if err := r.store.UpdateCall(ctx, call.ID, update(call, recipient, status)); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("call '%s': %w", call.ID, err))
			continue
		}

		res.Updated++
		r.metrics.Reconciled(string(status))
	}

	r.metrics.Unmatched(res.Unmatched)
	return res, errs.ErrorOrNil()
}

// findPendingCall matches the phone number exactly, then without a leading "+".
func (r *Reconciler) findPendingCall(ctx context.Context, campaignID, phoneNumber string) (*model.CallRecord, error) {
	call, err := r.store.FindPendingCall(ctx, campaignID, phoneNumber)
	if !errors.Is(err, kv.ErrNotFound) {
		return call, err
	}

	stripped, ok := strings.CutPrefix(phoneNumber, "+")
	if !ok {
		return nil, err
	}
	return r.store.FindPendingCall(ctx, campaignID, stripped)
}

func update(call *model.CallRecord, recipient model.Recipient, status model.CallStatus) kv.CallUpdate {
	duration := max(recipient.DurationSeconds, 0)
	u := kv.CallUpdate{
		Status:   &status,
		Duration: &duration,
	}
	if recipient.ConversationID != "" {
		u.ExternalConversationID = &recipient.ConversationID
	}
	if recipient.ErrorMessage != "" {
		metadata := make(map[string]any, len(call.Metadata)+1)
		for k, v := range call.Metadata {
			metadata[k] = v
		}
		metadata[model.MetadataErrorMessage] = recipient.ErrorMessage
		u.Metadata = metadata
	}
	return u
}
