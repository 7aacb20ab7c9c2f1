package cmd

import "github.com/spf13/cobra"

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the datastore.",
	Long:  `Migrate the datastore.`,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
