package cmd

import (
	"fmt"
	"log/slog"

	"github.com/atasun/UltraDialer-sub011/internal/clients/email"
	"github.com/atasun/UltraDialer-sub011/internal/clients/provider"
	"github.com/atasun/UltraDialer-sub011/internal/clients/slack"
	"github.com/atasun/UltraDialer-sub011/internal/executor"
	internalhttp "github.com/atasun/UltraDialer-sub011/internal/http"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/metrics"
	"github.com/atasun/UltraDialer-sub011/internal/poller"
	"github.com/atasun/UltraDialer-sub011/internal/reconciler"
	"github.com/atasun/UltraDialer-sub011/internal/scheduler"
	"github.com/spf13/viper"
)

// newSlackClient and newEmailClient are swapped out in tests.
var newSlackClient = func(token string) slack.Client {
	return slack.NewClient(token)
}

var newEmailClient = func(host string, port int, username, password, from string) email.Client {
	return email.NewClient(host, port, username, password, from)
}

// buildScheduler wires a scheduler and its collaborators from the configuration.
func buildScheduler(store kv.Storer) (*scheduler.Scheduler, *metrics.Recorder, error) {
	timeout := viper.GetDuration("provider.timeout")
	p, err := provider.NewClient(provider.Config{
		BaseURL: viper.GetString("provider.base_url"),
		APIKey:  viper.GetString("provider.api_key"),
		Timeout: timeout,
	}, internalhttp.NewClient(timeout))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create provider client: %w", err)
	}

	m := metrics.NewRecorder()
	e := executor.New(store, p)

	opts := []scheduler.Option{
		scheduler.WithInterval(viper.GetDuration("scheduler.interval")),
		scheduler.WithConcurrency(viper.GetInt("scheduler.sync_concurrency")),
		scheduler.WithMetrics(m),
	}

	if token := viper.GetString("notify.slack.token"); token != "" {
		channel := viper.GetString("notify.slack.channel")
		if channel == "" {
			return nil, nil, fmt.Errorf("notify.slack.channel must be set when notify.slack.token is set")
		}
		opts = append(opts, scheduler.WithNotifier(
			slack.NewNotifier(newSlackClient(token), channel, viper.GetString("notify.slack.template")),
		))
		slog.Debug("slack notifications enabled", "channel", channel)
	}

	if host := viper.GetString("notify.email.host"); host != "" {
		to := viper.GetStringSlice("notify.email.to")
		if len(to) == 0 {
			return nil, nil, fmt.Errorf("notify.email.to must be set when notify.email.host is set")
		}
		c := newEmailClient(
			host,
			viper.GetInt("notify.email.port"),
			viper.GetString("notify.email.username"),
			viper.GetString("notify.email.password"),
			viper.GetString("notify.email.from"),
		)
		opts = append(opts, scheduler.WithNotifier(email.NewNotifier(c, to, viper.GetString("notify.email.template"))))
		slog.Debug("email notifications enabled", "recipients", len(to))
	}

	s := scheduler.New(store, e, poller.New(e, m), reconciler.New(store, m), opts...)
	return s, m, nil
}
