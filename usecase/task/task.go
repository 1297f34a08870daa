package task

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
)

type UseCase struct {
	tasks  repository.TaskRepository
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		logger: logger,
	}
}

func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	return uc.tasks.List(ctx, filter)
}

// ListDueSoon returns the owner's tasks due within the window, consumed by the
// notification collaborator.
func (uc *UseCase) ListDueSoon(ctx context.Context, ownerEmail string, window time.Duration) ([]domain.Task, error) {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return uc.tasks.ListDueSoon(ctx, ownerEmail, time.Now().Add(window))
}

func (uc *UseCase) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return uc.tasks.GetByID(ctx, id)
}

func (uc *UseCase) CreateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := validate(task); err != nil {
		return nil, err
	}
	return uc.tasks.Create(ctx, task)
}

func (uc *UseCase) UpdateTask(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if err := validate(task); err != nil {
		return nil, err
	}
	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidPayload
	}
	return uc.tasks.Delete(ctx, id)
}

func validate(task *domain.Task) error {
	if task == nil || strings.TrimSpace(task.Name) == "" {
		return domain.ErrInvalidPayload
	}
	if task.Priority == "" {
		task.Priority = domain.PriorityLow
	}
	if task.Reminder.Enabled && task.Reminder.RemindAt == nil {
		return domain.NewError(domain.ErrCodeInvalid, "reminder enabled without remind_at")
	}
	return nil
}
