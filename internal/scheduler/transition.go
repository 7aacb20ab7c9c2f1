package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/atasun/UltraDialer-sub011/internal/window"
)

// Pause asks the executor to pause c, recording reason.
func (s *Scheduler) Pause(ctx context.Context, c *model.Campaign, reason model.PauseReason) error {
	err := s.executor.PauseCampaign(ctx, c.ID, reason)
	s.metrics.Transition(string(model.TransitionPause), err)
	if err != nil {
		slog.Error("failed to pause campaign", "campaign_id", c.ID, "campaign", c.Name, "reason", reason, "error", err)
		return fmt.Errorf("failed to pause campaign '%s': %w", c.Name, err)
	}

	t := model.Transition{Campaign: *c, Action: model.TransitionPause, Reason: reason, At: s.now()}
	if next, ok := window.NextOpen(c, t.At); ok {
		t.NextOpen = next
	}
	slog.Info("paused campaign", "campaign_id", c.ID, "campaign", c.Name, "reason", reason, "next_open", t.NextOpen)
	s.notify(ctx, t)
	return nil
}

// Resume asks the executor to resume c, recording reason.
func (s *Scheduler) Resume(ctx context.Context, c *model.Campaign, reason model.PauseReason) error {
	err := s.executor.ResumeCampaign(ctx, c.ID, reason)
	s.metrics.Transition(string(model.TransitionResume), err)
	if err != nil {
		slog.Error("failed to resume campaign", "campaign_id", c.ID, "campaign", c.Name, "reason", reason, "error", err)
		return fmt.Errorf("failed to resume campaign '%s': %w", c.Name, err)
	}

	slog.Info("resumed campaign", "campaign_id", c.ID, "campaign", c.Name, "reason", reason)
	s.notify(ctx, model.Transition{Campaign: *c, Action: model.TransitionResume, Reason: reason, At: s.now()})
	return nil
}

func (s *Scheduler) notify(ctx context.Context, t model.Transition) {
	if t.Reason != model.PauseReasonScheduled {
		return
	}
	for _, n := range s.notifiers {
		if err := n.NotifyTransition(ctx, t); err != nil {
			slog.Warn("failed to send transition notification", "campaign_id", t.Campaign.ID, "action", t.Action, "error", err)
		}
	}
}
