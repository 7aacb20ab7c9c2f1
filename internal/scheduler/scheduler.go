// Package scheduler drives the periodic engine tick: it enforces campaign
// call windows and synchronises batch job outcomes into call records.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atasun/UltraDialer-sub011/internal/executor"
	"github.com/atasun/UltraDialer-sub011/internal/kv"
	"github.com/atasun/UltraDialer-sub011/internal/metrics"
	"github.com/atasun/UltraDialer-sub011/internal/model"
	"github.com/atasun/UltraDialer-sub011/internal/reconciler"
	"github.com/atasun/UltraDialer-sub011/internal/window"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultInterval is the time between two ticks.
	DefaultInterval = 60 * time.Second

	phaseEnforceWindows = "enforce_windows"
	phaseSyncBatches    = "sync_batches"
)

// StatusFetcher returns the batch job snapshot of a campaign, or nil.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, c *model.Campaign) *model.BatchJobSnapshot
}

// retainer is implemented by fetchers that keep per-campaign state.
type retainer interface {
	Retain(campaignIDs []string)
}

// Reconciler applies recipient outcomes to call records.
type Reconciler interface {
	Reconcile(ctx context.Context, campaignID string, recipients []model.Recipient) (reconciler.Result, error)
}

// Notifier is told about transitions made by the scheduler.
type Notifier interface {
	NotifyTransition(ctx context.Context, t model.Transition) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithInterval sets the time between ticks.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithConcurrency bounds how many campaigns are synchronised at once.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMetrics records tick activity.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithNotifier sends a notification after every scheduled transition. It may
// be given more than once.
func WithNotifier(n Notifier) Option {
	return func(s *Scheduler) { s.notifiers = append(s.notifiers, n) }
}

// Scheduler is the engine's periodic driver.
type Scheduler struct {
	store      kv.CampaignStore
	executor   executor.Executor
	poller     StatusFetcher
	reconciler Reconciler

	now         func() time.Time
	interval    time.Duration
	concurrency int
	metrics     *metrics.Recorder
	notifiers   []Notifier
	tracer      trace.Tracer

	enforcing atomic.Bool
	syncing   atomic.Bool

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// New creates a new scheduler.
func New(store kv.CampaignStore, e executor.Executor, p StatusFetcher, r Reconciler, opts ...Option) *Scheduler {
	s := &Scheduler{
		store:       store,
		executor:    e,
		poller:      p,
		reconciler:  r,
		now:         time.Now,
		interval:    DefaultInterval,
		concurrency: 1,
		tracer:      otel.Tracer("github.com/atasun/UltraDialer-sub011/internal/scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one tick immediately and then one every interval. Calling
// Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		slog.Info("scheduler already running")
		return
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = cron.New()
	s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.runTick))
	s.cron.Start()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.runTick()
	}()

	slog.Info("scheduler started", "interval", s.interval, "sync_concurrency", s.concurrency)
}

// Stop stops the timer, cancels in-flight ticks and waits for them to
// return. It is safe to call on a scheduler that was never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}

	cancel()
	<-c.Stop().Done()
	s.pending.Wait()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) runTick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	_ = s.Tick(ctx)
}

// Tick runs window enforcement and batch synchronisation concurrently and
// waits for both. Errors and panics are logged here and returned.
func (s *Scheduler) Tick(ctx context.Context) error {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "scheduler.tick")
	defer span.End()

	var wg sync.WaitGroup
	var enforceErr, syncErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		enforceErr = safely(phaseEnforceWindows, func() error { return s.EnforceWindows(ctx) })
	}()
	go func() {
		defer wg.Done()
		syncErr = safely(phaseSyncBatches, func() error { return s.SyncBatches(ctx) })
	}()
	wg.Wait()

	s.metrics.ObserveTick(s.now().Sub(start))

	err := multierror.Append(nil, enforceErr, syncErr).ErrorOrNil()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tick completed with errors")
		slog.Error("tick completed with errors", "error", err)
		return err
	}
	slog.Debug("tick completed", "duration", s.now().Sub(start))
	return nil
}

// EnforceWindows pauses running campaigns that are outside their call
// window and resumes campaigns the scheduler paused once their window opens.
// It returns immediately when a previous run is still in progress.
func (s *Scheduler) EnforceWindows(ctx context.Context) error {
	if !s.enforcing.CompareAndSwap(false, true) {
		slog.Debug("window enforcement already in progress, skipping")
		s.metrics.PhaseSkipped(phaseEnforceWindows)
		return nil
	}
	defer s.enforcing.Store(false)

	ctx, span := s.tracer.Start(ctx, "scheduler.enforce_windows")
	defer span.End()

	now := s.now()
	var errs *multierror.Error

	running, err := s.store.ListCampaigns(ctx, kv.CampaignFilter{
		Status:          model.CampaignRunning,
		ScheduleEnabled: kv.Bool(true),
		HasBatchJob:     true,
	})
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to list running campaigns: %w", err))
	}
	for _, c := range running {
		if window.IsWithin(c, now) {
			continue
		}
		if err := s.Pause(ctx, c, model.PauseReasonScheduled); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	paused, err := s.store.ListCampaigns(ctx, kv.CampaignFilter{
		Status:          model.CampaignPaused,
		ScheduleEnabled: kv.Bool(true),
		HasBatchJob:     true,
	})
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("failed to list paused campaigns: %w", err))
	}
	for _, c := range paused {
		if c.PauseReason() != model.PauseReasonScheduled {
			continue
		}
		if !window.IsWithin(c, now) {
			continue
		}
		if err := s.Resume(ctx, c, model.PauseReasonScheduled); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	span.SetAttributes(attribute.Int("campaigns.running", len(running)), attribute.Int("campaigns.paused", len(paused)))
	return errs.ErrorOrNil()
}

// SyncBatches polls the batch job of every running campaign and reconciles
// the reported outcomes. A failing campaign does not stop the others. It
// returns immediately when a previous run is still in progress.
func (s *Scheduler) SyncBatches(ctx context.Context) error {
	if !s.syncing.CompareAndSwap(false, true) {
		slog.Debug("batch sync already in progress, skipping")
		s.metrics.PhaseSkipped(phaseSyncBatches)
		return nil
	}
	defer s.syncing.Store(false)

	ctx, span := s.tracer.Start(ctx, "scheduler.sync_batches")
	defer span.End()

	campaigns, err := s.store.ListCampaigns(ctx, kv.CampaignFilter{
		Status:      model.CampaignRunning,
		HasBatchJob: true,
	})
	if err != nil {
		return fmt.Errorf("failed to list running campaigns: %w", err)
	}
	span.SetAttributes(attribute.Int("campaigns.running", len(campaigns)))

	if r, ok := s.poller.(retainer); ok {
		ids := make([]string, len(campaigns))
		for i, c := range campaigns {
			ids[i] = c.ID
		}
		r.Retain(ids)
	}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for _, c := range campaigns {
		g.Go(func() error {
			err := safely(phaseSyncBatches, func() error { return s.syncCampaign(ctx, c) })
			if err != nil {
				slog.Error("failed to sync campaign", "campaign_id", c.ID, "campaign", c.Name, "error", err)
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errs.ErrorOrNil()
}

func (s *Scheduler) syncCampaign(ctx context.Context, c *model.Campaign) error {
	snapshot := s.poller.FetchStatus(ctx, c)
	if snapshot == nil || len(snapshot.Recipients) == 0 {
		return nil
	}

	res, err := s.reconciler.Reconcile(ctx, c.ID, snapshot.Recipients)
	if res.Updated > 0 {
		slog.Info("reconciled call records", "campaign_id", c.ID, "campaign", c.Name, "updated", res.Updated, "in_flight", res.InFlight)
	}
	if err != nil {
		return fmt.Errorf("campaign '%s': %w", c.Name, err)
	}
	return nil
}

// safely runs fn and turns a panic into an error.
func safely(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered from panic", "phase", phase, "panic", r)
			err = fmt.Errorf("%s panicked: %v", phase, r)
		}
	}()
	return fn()
}
