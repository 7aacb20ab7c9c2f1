package slack

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/atasun/UltraDialer-sub011/internal/processor"
)

// DefaultTemplate renders a scheduled campaign transition as Markdown.
const DefaultTemplate = `{{ if eq .Action "pause" }}Paused{{ else }}Resumed{{ end }} **{{ .Campaign.Name }}** ({{ .Reason }}).` +
	`{{ if not .NextOpen.IsZero }} Calling window reopens {{ dateInZone "Mon 02 Jan 15:04 MST" .NextOpen .Timezone }}.{{ end }}`

// Notifier posts campaign transitions to a Slack channel.
type Notifier struct {
	client   Client
	channel  string
	template string
	stack    processor.Stack
}

// NewNotifier creates a Notifier. An empty tmpl uses DefaultTemplate.
func NewNotifier(c Client, channel, tmpl string) *Notifier {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	return &Notifier{
		client:   c,
		channel:  channel,
		template: tmpl,
		stack: processor.Stack{
			processor.NewTemplateProcessor(),
			processor.NewMarkdownToSlackProcessor(),
		},
	}
}

// NotifyTransition renders t and posts it to the configured channel.
func (n *Notifier) NotifyTransition(ctx context.Context, t model.Transition) error {
	text, err := n.stack.Process(n.template, map[string]any{
		"Campaign": t.Campaign,
		"Action":   string(t.Action),
		"Reason":   string(t.Reason),
		"At":       t.At,
		"NextOpen": t.NextOpen,
		"Timezone": t.Campaign.ScheduleTimezone,
	})
	if err != nil {
		return fmt.Errorf("failed to render transition: %w", err)
	}

	channelID, timestamp, err := n.client.PostMessage(ctx, n.channel, text)
	if err != nil {
		return err
	}
	slog.Debug("sent transition notification", "campaign_id", t.Campaign.ID, "channel_id", channelID, "timestamp", timestamp)
	return nil
}
