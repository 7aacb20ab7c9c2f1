package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

var campaignsApplyCmd = &cobra.Command{
	Use:   "apply [url]",
	Short: "Create or replace a campaign and its calls from a YAML file.",
	Long: `Create or replace a campaign and its calls from a YAML file.

The url may be a local path, a file:// url or an http(s):// url. Calls
without an id are given a new one, so re-applying a file only replaces
the calls that name their id.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doCampaignsApply(cmd.Context(), cmd.OutOrStdout(), args[0])
	},
}

func doCampaignsApply(ctx context.Context, w io.Writer, url string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	source, state, err := buildSourcer().Source(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to source '%s': %w", url, err)
	}
	slog.Debug("sourced campaign", "url", url, "state", state, "campaign_id", source.Campaign.ID)

	store, err := datastoreNewStore(false)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	if err := store.PutCampaign(ctx, &source.Campaign); err != nil {
		return fmt.Errorf("failed to store campaign '%s': %w", source.Campaign.ID, err)
	}
	for i := range source.Calls {
		if err := store.PutCall(ctx, &source.Calls[i]); err != nil {
			return fmt.Errorf("failed to store call '%s': %w", source.Calls[i].ID, err)
		}
	}

	fmt.Fprintf(w, "campaign %s applied with %d calls\n", source.Campaign.ID, len(source.Calls))
	return nil
}

func init() {
	campaignsCmd.AddCommand(campaignsApplyCmd)
}
