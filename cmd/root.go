/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/atasun/UltraDialer-sub011/internal/otel"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string
var logLevel string

// version is set at build time.
var version = "dev"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ultradialer",
	Short: "Keeps outbound calling campaigns inside their calling windows.",
	Long: `Keeps outbound calling campaigns inside their calling windows.

ultradialer pauses and resumes campaigns as their configured calling window
opens and closes, and reconciles local call records with the batch jobs run
by the voice provider.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		InitConfig()
		initOTel(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/ultradialer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	setDefaults()

	rootCmd.PersistentFlags().String("otel-endpoint", "", "OpenTelemetry endpoint")
	viper.BindPFlag("otel.endpoint", rootCmd.PersistentFlags().Lookup("otel-endpoint"))
}

func setDefaults() {
	viper.SetDefault("datastore.type", "bbolt")
	viper.SetDefault("datastore.path", "")
	viper.SetDefault("datastore.project_id", "")
	viper.SetDefault("datastore.dsn", "")

	viper.SetDefault("scheduler.interval", "60s")
	viper.SetDefault("scheduler.sync_concurrency", 1)

	viper.SetDefault("provider.base_url", "https://api.elevenlabs.io")
	viper.SetDefault("provider.api_key", "")
	viper.SetDefault("provider.timeout", "30s")

	viper.SetDefault("http.port", 8080)

	viper.SetDefault("git.tokens", map[string]string{})

	viper.SetDefault("notify.slack.token", "")
	viper.SetDefault("notify.slack.channel", "")
	viper.SetDefault("notify.slack.template", "")
	viper.SetDefault("notify.email.host", "")
	viper.SetDefault("notify.email.port", 587)
	viper.SetDefault("notify.email.username", "")
	viper.SetDefault("notify.email.password", "")
	viper.SetDefault("notify.email.from", "")
	viper.SetDefault("notify.email.to", []string{})
	viper.SetDefault("notify.email.template", "")

	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)
	viper.SetDefault("otel.headers", map[string]string{})
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// A missing .env is the normal case.
	dotenvErr := godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find xdg config path and set it for viper if found.
		configPath, err := xdg.ConfigFile("ultradialer/config.yaml")
		if err == nil {
			viper.AddConfigPath(filepath.Dir(configPath))
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yaml")
		}
	}

	viper.SetEnvPrefix("ULTRADIALER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	configReadErr := viper.ReadInConfig()

	// Initialise the logger
	var programLevel = new(slog.LevelVar)
	switch strings.ToLower(viper.GetString("log.level")) {
	case "debug":
		programLevel.Set(slog.LevelDebug)
	case "warn":
		programLevel.Set(slog.LevelWarn)
	case "error":
		programLevel.Set(slog.LevelError)
	default:
		programLevel.Set(slog.LevelInfo)
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: programLevel})
	slog.SetDefault(slog.New(handler))

	if dotenvErr != nil && !os.IsNotExist(dotenvErr) {
		slog.Warn("could not read .env file", "error", dotenvErr)
	}

	if configReadErr != nil {
		if _, ok := configReadErr.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("config file not found")
		} else {
			slog.Warn("could not read config file, using defaults", "error", configReadErr)
		}
	}
}

func initOTel(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	shutdown, err := otel.Init(ctx, version)
	if err != nil {
		slog.Error("could not setup OpenTelemetry", "error", err)
		os.Exit(1)
	}
	cobra.OnFinalize(func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Error("could not shutdown OpenTelemetry", "error", err)
		}
	})
}
