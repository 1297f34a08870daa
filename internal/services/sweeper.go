package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/focusmate/settlement/usecase/reminder"
)

// SweeperConfig controls the reminder sweep schedule.
type SweeperConfig struct {
	Interval time.Duration
}

// ReminderSweeper runs the reminder sweep on a fixed interval. Exactly one
// sweep is active at a time; a tick that fires while the previous sweep is
// still running is skipped.
type ReminderSweeper struct {
	uc     *reminder.UseCase
	logger *zap.Logger
	cron   *cron.Cron
	cfg    SweeperConfig

	running sync.Mutex
}

func NewReminderSweeper(uc *reminder.UseCase, logger *zap.Logger, cfg SweeperConfig) *ReminderSweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ReminderSweeper{
		uc:     uc,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		s.RunOnce(ctx)
	})

	return s
}

// Start launches the cron scheduler.
func (s *ReminderSweeper) Start() {
	if s == nil || s.cron == nil {
		return
	}
	s.cron.Start()
	s.logger.Info("reminder sweeper started", zap.Duration("interval", s.cfg.Interval))
}

// Stop gracefully stops the scheduler, waiting for an in-flight sweep.
func (s *ReminderSweeper) Stop(ctx context.Context) {
	if s == nil || s.cron == nil {
		return
	}
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	s.logger.Info("reminder sweeper stopped")
}

// RunOnce executes a single sweep if none is in flight. Returns the number of
// notifications emitted and whether the sweep actually ran.
func (s *ReminderSweeper) RunOnce(ctx context.Context) (int, bool) {
	if !s.running.TryLock() {
		s.logger.Debug("sweep still running, skipping tick")
		return 0, false
	}
	defer s.running.Unlock()

	fired, err := s.uc.Sweep(ctx, time.Now())
	if err != nil {
		// Store unreachable or similar; the next tick retries.
		s.logger.Warn("reminder sweep failed", zap.Error(err))
		return 0, true
	}
	if fired > 0 {
		s.logger.Info("reminder sweep complete", zap.Int("notifications", fired))
	}
	return fired, true
}
