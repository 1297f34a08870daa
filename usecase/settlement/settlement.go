package settlement

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
	"github.com/focusmate/settlement/usecase"
)

// Config tunes the coordinator's retry behaviour for transient store errors.
type Config struct {
	StoreRetries int
	RetryBackoff time.Duration
}

// UseCase is the settlement coordinator. It owns the task -> completed-ledger
// transition and hands the reward credit to the outbox.
type UseCase struct {
	tasks   repository.TaskRepository
	ledger  repository.LedgerRepository
	lock    repository.TaskLock
	credits usecase.CreditQueue
	logger  *zap.Logger
	cfg     Config

	local keyedMutex
}

func New(
	tasks repository.TaskRepository,
	ledger repository.LedgerRepository,
	lock repository.TaskLock,
	credits usecase.CreditQueue,
	logger *zap.Logger,
	cfg Config,
) *UseCase {
	if cfg.StoreRetries <= 0 {
		cfg.StoreRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:   tasks,
		ledger:  ledger,
		lock:    lock,
		credits: credits,
		logger:  logger,
		cfg:     cfg,
	}
}

// Settle converts an active task into a completed-ledger entry and queues the
// reward credit. The ledger write happens before the active task is removed,
// so a crash in between leaves a settled-looking task that the next Settle
// call cleans up (the ledger insert reports it as already settled).
//
// A failing credit delivery never fails the settlement; the outbox retries it
// and gives up with a logged warning.
func (uc *UseCase) Settle(ctx context.Context, taskID, requestingEmail string) (int, error) {
	if taskID == "" {
		return 0, domain.ErrInvalidPayload
	}

	release, err := uc.acquire(ctx, taskID)
	if err != nil {
		return 0, err
	}
	defer release()

	task, err := uc.loadTask(ctx, taskID)
	if err != nil {
		return 0, err
	}

	record := domain.NewCompletedTask(task, time.Now().UTC())

	if err := uc.writeLedger(ctx, record); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			// A previous attempt recorded the completion but crashed
			// before deleting the task. Finish the removal and report
			// the task as gone, matching a plain double-settle.
			uc.removeTask(ctx, taskID)
			return 0, domain.ErrAlreadySettled
		}
		return 0, err
	}

	uc.removeTask(ctx, taskID)

	uc.queueCredit(ctx, domain.RewardCredit{
		OwnerEmail:     creditRecipient(task.OwnerEmail, requestingEmail),
		Points:         record.PointsAwarded,
		IdempotencyKey: task.ID,
	})

	uc.logger.Info("task settled",
		zap.String("task_id", task.ID),
		zap.String("owner", task.OwnerEmail),
		zap.Int("points", record.PointsAwarded))

	return record.PointsAwarded, nil
}

func (uc *UseCase) acquire(ctx context.Context, taskID string) (func(), error) {
	if uc.lock != nil {
		release, err := uc.lock.Acquire(ctx, taskID)
		if err == nil {
			return release, nil
		}
		if domain.IsDomainError(err, domain.ErrCodeConflict) {
			return nil, domain.ErrAlreadySettled
		}
		// Redis down: degrade to in-process exclusion so a single
		// instance still serializes same-task callers.
		uc.logger.Warn("settlement lock unavailable, using local fallback",
			zap.String("task_id", taskID), zap.Error(err))
	}
	return uc.local.lock(taskID), nil
}

func (uc *UseCase) loadTask(ctx context.Context, taskID string) (*domain.Task, error) {
	var task *domain.Task
	err := uc.withStoreRetry(ctx, "load task", func() error {
		var err error
		task, err = uc.tasks.GetByID(ctx, taskID)
		return err
	})
	return task, err
}

func (uc *UseCase) writeLedger(ctx context.Context, record *domain.CompletedTask) error {
	return uc.withStoreRetry(ctx, "write ledger", func() error {
		return uc.ledger.Insert(ctx, record)
	})
}

func (uc *UseCase) removeTask(ctx context.Context, taskID string) {
	err := uc.withStoreRetry(ctx, "remove task", func() error {
		return uc.tasks.Delete(ctx, taskID)
	})
	if err != nil && !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		// The ledger entry already exists, so the settlement stands; the
		// next Settle for this ID will retry the removal.
		uc.logger.Warn("settled task left in active store", zap.String("task_id", taskID), zap.Error(err))
	}
}

func (uc *UseCase) queueCredit(ctx context.Context, credit domain.RewardCredit) {
	if uc.credits == nil {
		return
	}
	if err := uc.credits.EnqueueCredit(ctx, credit); err != nil {
		uc.logger.Warn("reward credit dropped",
			zap.String("idempotency_key", credit.IdempotencyKey),
			zap.Int("points", credit.Points),
			zap.Error(err))
	}
}

// withStoreRetry retries transient persistence failures. Domain errors (not
// found, already settled, bad input) are final and returned as-is.
func (uc *UseCase) withStoreRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < uc.cfg.StoreRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(uc.cfg.RetryBackoff * time.Duration(attempt)):
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		var dErr *domain.Error
		if errors.As(err, &dErr) {
			return err
		}
		lastErr = err
		uc.logger.Warn("store operation failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return domain.WrapError(domain.ErrCodeInternal, op+" failed", lastErr)
}

func creditRecipient(ownerEmail, requestingEmail string) string {
	if ownerEmail != "" {
		return ownerEmail
	}
	return requestingEmail
}
