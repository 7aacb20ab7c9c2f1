package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	internalhttp "github.com/atasun/UltraDialer-sub011/internal/http"
	"github.com/atasun/UltraDialer-sub011/internal/migration"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the campaign scheduler.",
	Long:  `Run the campaign scheduler.`,
}

var schedulerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler until interrupted.",
	Long: `Run the scheduler until interrupted.

A tick runs immediately and then once every scheduler.interval. The
metrics and window endpoints are served on http.port.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return doSchedulerRun(ctx)
	},
}

var schedulerTickCmd = &cobra.Command{
	Use:   "tick",
	Short: "Run a single scheduler tick and exit.",
	Long:  `Run a single scheduler tick and exit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doSchedulerTick(cmd.Context())
	},
}

func doSchedulerRun(ctx context.Context) error {
	store, err := datastoreNewStore(false)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	if err := migration.Apply(ctx, store); err != nil {
		return fmt.Errorf("failed to migrate datastore: %w", err)
	}

	s, m, err := buildScheduler(store)
	if err != nil {
		return err
	}

	s.Start()
	defer s.Stop()

	err = internalhttp.Serve(ctx, viper.GetInt("http.port"), internalhttp.NewRouter(store, m.Registry()))
	slog.Info("shutting down scheduler")
	return err
}

func doSchedulerTick(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := datastoreNewStore(false)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer store.Close()

	s, _, err := buildScheduler(store)
	if err != nil {
		return err
	}
	return s.Tick(ctx)
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerTickCmd)

	schedulerRunCmd.Flags().Int("port", 8080, "Port to serve metrics and window state on")
	viper.BindPFlag("http.port", schedulerRunCmd.Flags().Lookup("port"))
}
