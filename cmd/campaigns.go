package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/executor"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/atasun/UltraDialer-sub011/internal/window"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// campaignsCmd represents the campaigns command
var campaignsCmd = &cobra.Command{
	Use:   "campaigns",
	Short: "Manage campaigns.",
	Long:  `Manage campaigns.`,
}

var campaignsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all campaigns and their calling window state.",
	Long:  `List all campaigns and their calling window state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		return doCampaignsList(cmd.Context(), cmd.OutOrStdout(), model.CampaignStatus(status), time.Now())
	},
}

var campaignsPauseCmd = &cobra.Command{
	Use:   "pause [id]",
	Short: "Pause a running campaign.",
	Long: `Pause a running campaign.

The pause is recorded as manual, and the scheduler will not resume the
campaign when its calling window opens.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doCampaignTransition(cmd.Context(), cmd.OutOrStdout(), args[0], model.TransitionPause)
	},
}

var campaignsResumeCmd = &cobra.Command{
	Use:   "resume [id]",
	Short: "Resume a paused campaign.",
	Long:  `Resume a paused campaign.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return doCampaignTransition(cmd.Context(), cmd.OutOrStdout(), args[0], model.TransitionResume)
	},
}

func doCampaignsList(ctx context.Context, w io.Writer, status model.CampaignStatus, now time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := datastoreNewStore(true)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	campaigns, err := store.ListCampaigns(ctx, kv.CampaignFilter{Status: status})
	if err != nil {
		return fmt.Errorf("failed to list campaigns: %w", err)
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Name", "Status", "Window", "In Window", "Next Open", "Pause Reason"})

	for _, c := range campaigns {
		inWindow := "-"
		nextOpen := "-"
		if c.ScheduleEnabled {
			inWindow = fmt.Sprintf("%t", window.IsWithin(c, now))
			if t, ok := window.NextOpen(c, now); ok && !t.Equal(now) {
				nextOpen = t.Format(time.RFC3339)
			}
		}
		table.Append([]string{
			c.ID,
			c.Name,
			string(c.Status),
			describeWindow(c),
			inWindow,
			nextOpen,
			string(c.PauseReason()),
		})
	}

	return table.Render()
}

func describeWindow(c *model.Campaign) string {
	if !c.ScheduleEnabled {
		return "always"
	}
	return fmt.Sprintf("%s %s-%s %s", strings.Join(c.ScheduleDays, ","), c.ScheduleTimeStart, c.ScheduleTimeEnd, c.ScheduleTimezone)
}

func doCampaignTransition(ctx context.Context, w io.Writer, id string, action model.TransitionAction) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := datastoreNewStore(false)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	e := executor.New(store, nil)
	switch action {
	case model.TransitionPause:
		err = e.PauseCampaign(ctx, id, model.PauseReasonManual)
	case model.TransitionResume:
		err = e.ResumeCampaign(ctx, id, model.PauseReasonManual)
	default:
		return fmt.Errorf("unknown action '%s'", action)
	}
	if err != nil {
		return fmt.Errorf("failed to %s campaign: %w", action, err)
	}

	fmt.Fprintf(w, "campaign %s: %s\n", id, action)
	return nil
}

func init() {
	rootCmd.AddCommand(campaignsCmd)
	campaignsCmd.AddCommand(campaignsListCmd)
	campaignsCmd.AddCommand(campaignsPauseCmd)
	campaignsCmd.AddCommand(campaignsResumeCmd)

	campaignsListCmd.Flags().String("status", "", "Only list campaigns with this status")
}
