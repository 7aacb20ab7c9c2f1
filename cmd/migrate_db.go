package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/atasun/UltraDialer-sub011/internal/migration"
	"github.com/spf13/cobra"
)

var migrateDbCmd = &cobra.Command{
	Use:   "db",
	Short: "Apply all pending database migrations.",
	Long:  `Apply all pending database migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doMigrateDB(cmd.Context(), cmd.OutOrStdout())
	},
}

func doMigrateDB(ctx context.Context, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := datastoreNewStore(false)
	if err != nil {
		return fmt.Errorf("failed to create datastore: %w", err)
	}
	defer store.Close()

	if err := migration.Apply(ctx, store); err != nil {
		return err
	}

	version, err := store.GetSchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	fmt.Fprintf(w, "datastore is at version %d\n", version)
	return nil
}

func init() {
	migrateCmd.AddCommand(migrateDbCmd)
}
