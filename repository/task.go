package repository

import (
	"context"
	"time"

	"github.com/focusmate/settlement/domain"
)

type TaskFilter struct {
	OwnerEmail string
	Category   string
	Limit      int
	Offset     int
}

// ReminderWindow bounds a due-reminder query: reminders whose RemindAt falls
// within [From, To] and were not yet fired for that RemindAt.
type ReminderWindow struct {
	From time.Time
	To   time.Time
}

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	ListDueSoon(ctx context.Context, ownerEmail string, until time.Time) ([]domain.Task, error)
	ListDueReminders(ctx context.Context, window ReminderWindow) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	// Delete removes the task and reports domain.ErrTaskNotFound when no row
	// was deleted, which lets callers use it as an atomic claim.
	Delete(ctx context.Context, id string) error
	// MarkReminderFired sets LastFiredAt to remindAt only if it moves forward,
	// keeping the fired marker monotonic under concurrent sweeps.
	MarkReminderFired(ctx context.Context, id string, remindAt time.Time) error
}
