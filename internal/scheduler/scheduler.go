package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"WalletCampaign/internal/model"
	"WalletCampaign/internal/notifier"
	"WalletCampaign/internal/store"
)

// Runner is the campaign pass the scheduler triggers.
type Runner interface {
	Run(ctx context.Context, wallets []model.Wallet) (model.RunSummary, error)
}

// Scheduler runs the campaign on a cron schedule and answers operator commands.
type Scheduler struct {
	Cron    *cron.Cron
	Runner  Runner
	Store   *store.Store
	Wallets []model.Wallet
	Log     *zap.Logger
	Now     func() time.Time

	ctx     context.Context
	running sync.Mutex

	mu       sync.Mutex
	stopping bool
	wg       sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Cron expressions carry a seconds field and are
// evaluated in UTC so the daily run lines up with the 03:00 UTC spin boundary.
func NewScheduler(ctx context.Context, runner Runner, st *store.Store, wallets []model.Wallet, log *zap.Logger) *Scheduler {
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Runner:  runner,
		Store:   st,
		Wallets: wallets,
		Log:     log,
		Now:     time.Now,
		ctx:     ctx,
	}
}

// RegisterAll registers the daily run and the optional second sweep.
func (s *Scheduler) RegisterAll(runCron, sweepCron string) error {
	if _, err := s.Cron.AddFunc(runCron, func() { s.trigger("scheduled") }); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	if sweepCron != "" {
		if _, err := s.Cron.AddFunc(sweepCron, func() { s.trigger("sweep") }); err != nil {
			return fmt.Errorf("register sweep task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running pass to finish. Triggers that arrive
// afterwards are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()

	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.Log.Info("scheduler stopped")
}

// RunNow executes a pass immediately (RUN_ON_START). It reports false if one is already running.
func (s *Scheduler) RunNow() bool {
	return s.trigger("manual")
}

func (s *Scheduler) trigger(name string) bool {
	if !s.track() {
		return false
	}
	return s.runOnce(name)
}

// track registers a pass with the WaitGroup unless Stop has begun.
func (s *Scheduler) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.wg.Add(1)
	return true
}

// runOnce serialises passes from cron, RUN_ON_START and the /run command. The caller must
// have registered the pass with track.
func (s *Scheduler) runOnce(trigger string) bool {
	defer s.wg.Done()
	if !s.running.TryLock() {
		s.Log.Warn("campaign run already in progress", zap.String("trigger", trigger))
		return false
	}
	defer s.running.Unlock()

	s.Log.Info("running campaign", zap.String("trigger", trigger))
	if _, err := s.Runner.Run(s.ctx, s.Wallets); err != nil {
		s.Log.Warn("campaign run ended early", zap.Error(err))
	}
	return true
}

// HandleCommand processes an operator command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch command {
	case "/status":
		stats := s.Store.Stats()
		return notifier.FormatWalletReport(s.Store.All(), stats.LastUpdate, s.Now())
	case "/run":
		if !s.running.TryLock() {
			return "⏳ A campaign run is already in progress."
		}
		s.running.Unlock()
		if !s.track() {
			return "⏹ Scheduler is shutting down."
		}
		go s.runOnce("command")
		return "▶️ Campaign run started."
	default:
		return "Available commands:\n• /status\n• /run"
	}
}
