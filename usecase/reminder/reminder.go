package reminder

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
	"github.com/focusmate/settlement/usecase"
)

// Config bounds the sweep window. Grace covers scheduler downtime without
// resurrecting long-expired reminders; Lookahead lets a reminder fire slightly
// early instead of a full tick late.
type Config struct {
	Grace       time.Duration
	Lookahead   time.Duration
	Parallelism int
}

// UseCase implements the reminder sweep: find due reminders, notify, then
// record the fired RemindAt. Notify-then-record means a crash in between can
// duplicate a notification on the next sweep; dropping one can not happen.
type UseCase struct {
	tasks    repository.TaskRepository
	notifier usecase.Notifier
	logger   *zap.Logger
	cfg      Config
}

func New(tasks repository.TaskRepository, notifier usecase.Notifier, logger *zap.Logger, cfg Config) *UseCase {
	if cfg.Grace <= 0 {
		cfg.Grace = 60 * time.Minute
	}
	if cfg.Lookahead <= 0 {
		cfg.Lookahead = 15 * time.Minute
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// Sweep emits at most one notification per (task, RemindAt) pair due at now.
// Returns the number of notifications emitted. A store error aborts the whole
// sweep; the next tick retries.
func (uc *UseCase) Sweep(ctx context.Context, now time.Time) (int, error) {
	window := repository.ReminderWindow{
		From: now.Add(-uc.cfg.Grace),
		To:   now.Add(uc.cfg.Lookahead),
	}

	due, err := uc.tasks.ListDueReminders(ctx, window)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Parallelism)
	results := make([]bool, len(due))

	for i := range due {
		task := due[i]
		// The query already filters, but the window check is cheap and
		// guards against a store returning stale rows.
		if !task.ReminderDue(now, uc.cfg.Grace, uc.cfg.Lookahead) {
			continue
		}
		idx := i
		g.Go(func() error {
			if uc.fire(gctx, &task, now) {
				results[idx] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	fired := 0
	for _, ok := range results {
		if ok {
			fired++
		}
	}
	return fired, nil
}

// fire delivers one notification and records the RemindAt it covered. Failed
// delivery leaves the fired marker untouched so the next sweep retries.
func (uc *UseCase) fire(ctx context.Context, task *domain.Task, now time.Time) bool {
	remindAt := *task.Reminder.RemindAt

	notification := domain.Notification{
		TaskID:     task.ID,
		OwnerEmail: task.OwnerEmail,
		TaskName:   task.Name,
		RemindAt:   remindAt,
		FiredAt:    now,
	}

	if err := uc.notifier.Notify(ctx, notification); err != nil {
		uc.logger.Warn("reminder notification failed",
			zap.String("task_id", task.ID),
			zap.Time("remind_at", remindAt),
			zap.Error(err))
		return false
	}

	if err := uc.tasks.MarkReminderFired(ctx, task.ID, remindAt); err != nil {
		// Notification went out but the marker did not stick; the next
		// sweep may deliver a duplicate. Accepted over losing reminders.
		uc.logger.Warn("reminder fired but not recorded",
			zap.String("task_id", task.ID),
			zap.Time("remind_at", remindAt),
			zap.Error(err))
	}
	return true
}
