package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/atasun/UltraDialer-sub011/internal/processor"
)

// DefaultSubject is the subject template of transition emails.
const DefaultSubject = `[{{ .Campaign.Name }}] campaign {{ if eq .Action "pause" }}paused{{ else }}resumed{{ end }}`

// DefaultTemplate renders a campaign transition as Markdown.
const DefaultTemplate = `{{ if eq .Action "pause" }}Paused{{ else }}Resumed{{ end }} **{{ .Campaign.Name }}** ({{ .Reason }}) at {{ dateInZone "Mon 02 Jan 15:04 MST" .At .Timezone }}.` +
	`{{ if not .NextOpen.IsZero }}

The calling window reopens {{ dateInZone "Mon 02 Jan 15:04 MST" .NextOpen .Timezone }}.{{ end }}`

// Notifier emails campaign transitions to a fixed list of recipients.
type Notifier struct {
	client   Client
	to       []string
	template string
	subject  processor.Processor
	body     processor.Stack
}

// NewNotifier creates a Notifier. An empty tmpl uses DefaultTemplate.
func NewNotifier(c Client, to []string, tmpl string) *Notifier {
	if tmpl == "" {
		tmpl = DefaultTemplate
	}
	return &Notifier{
		client:   c,
		to:       to,
		template: tmpl,
		subject:  processor.NewTemplateProcessor(),
		body: processor.Stack{
			processor.NewTemplateProcessor(),
			processor.NewMarkdownToHTMLProcessor(),
		},
	}
}

// NotifyTransition renders t and emails it. The context is unused because
// net/smtp does not accept one.
func (n *Notifier) NotifyTransition(_ context.Context, t model.Transition) error {
	data := map[string]any{
		"Campaign": t.Campaign,
		"Action":   string(t.Action),
		"Reason":   string(t.Reason),
		"At":       t.At,
		"NextOpen": t.NextOpen,
		"Timezone": t.Campaign.ScheduleTimezone,
	}

	subject, err := n.subject.Process(DefaultSubject, data)
	if err != nil {
		return fmt.Errorf("failed to render subject: %w", err)
	}
	body, err := n.body.Process(n.template, data)
	if err != nil {
		return fmt.Errorf("failed to render transition: %w", err)
	}

	if err := n.client.Send(n.to, subject, body); err != nil {
		return err
	}
	slog.Debug("emailed transition notification", "campaign_id", t.Campaign.ID, "recipients", len(n.to))
	return nil
}
