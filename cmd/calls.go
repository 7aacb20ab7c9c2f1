package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// callsCmd represents the calls command
var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Inspect call records.",
	Long:  `Inspect call records.`,
}

var callsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List call records.",
	Long:  `List call records, optionally limited to one campaign.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		campaignID, _ := cmd.Flags().GetString("campaign")
		return doCallsList(cmd.Context(), cmd.OutOrStdout(), campaignID)
	},
}

func doCallsList(ctx context.Context, w io.Writer, campaignID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := datastoreNewStore(true)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	calls, err := store.ListCalls(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to list calls: %w", err)
	}

	table := tablewriter.NewWriter(w)
	table.Header([]string{"ID", "Campaign", "Phone Number", "Status", "Duration", "Conversation"})

	for _, c := range calls {
		table.Append([]string{c.ID, c.CampaignID, c.PhoneNumber, string(c.Status), strconv.Itoa(c.Duration), c.ExternalConversationID})
	}

	return table.Render()
}

func init() {
	rootCmd.AddCommand(callsCmd)
	callsCmd.AddCommand(callsListCmd)

	callsListCmd.Flags().String("campaign", "", "Only list calls of this campaign")
}
