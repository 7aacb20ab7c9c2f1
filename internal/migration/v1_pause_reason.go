package migration

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/hashicorp/go-multierror"
)

func init() {
	Register(&PauseReasonMigration{})
}

// PauseReasonMigration marks paused campaigns without a pause reason as
// manually paused, so the scheduler never resumes them.
type PauseReasonMigration struct{}

// Version returns the migration version.
func (m *PauseReasonMigration) Version() int {
	return 1
}

// Description returns the migration description.
func (m *PauseReasonMigration) Description() string {
	return "Backfill pauseReason=manual for paused campaigns"
}

// Up runs the migration.
func (m *PauseReasonMigration) Up(ctx context.Context, store kv.Storer) error {
	campaigns, err := store.ListCampaigns(ctx, kv.CampaignFilter{Status: model.CampaignPaused})
	if err != nil {
		return err
	}

	// Keep going after a failure so one run backfills as much as it can.
	// The version is only recorded once every campaign succeeded.
	var errs *multierror.Error
	for _, c := range campaigns {
		if c.PauseReason() != "" {
			continue
		}
		config := c.CloneConfig()
		config[model.ConfigPauseReason] = string(model.PauseReasonManual)
		if err := store.UpdateCampaign(ctx, c.ID, kv.CampaignUpdate{Config: config}); err != nil {
			slog.Error("failed to backfill pause reason", "campaign_id", c.ID, "error", err)
			errs = multierror.Append(errs, fmt.Errorf("campaign '%s': %w", c.ID, err))
			continue
		}
		slog.Debug("backfilled pause reason", "campaign_id", c.ID)
	}
	return errs.ErrorOrNil()
}
