package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
)

const taskColumns = `id, owner_email, name, description, category, priority, due_date,
	reminder_enabled, remind_at, last_fired_at, created_at, updated_at`

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR owner_email = $1)
	  AND ($2 = '' OR category = $2)
	ORDER BY created_at DESC
	LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, filter.OwnerEmail, filter.Category, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) ListDueSoon(ctx context.Context, ownerEmail string, until time.Time) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE ($1 = '' OR owner_email = $1)
	  AND due_date IS NOT NULL
	  AND due_date <= $2
	ORDER BY due_date ASC
	`
	rows, err := r.pool.Query(ctx, query, ownerEmail, until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) ListDueReminders(ctx context.Context, window repository.ReminderWindow) ([]domain.Task, error) {
	const query = `
	SELECT ` + taskColumns + `
	FROM tasks
	WHERE reminder_enabled
	  AND remind_at IS NOT NULL
	  AND remind_at BETWEEN $1 AND $2
	  AND (last_fired_at IS NULL OR last_fired_at < remind_at)
	ORDER BY remind_at ASC
	`
	rows, err := r.pool.Query(ctx, query, window.From, window.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTasks(rows)
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	if task.ID == "" {
		task.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO tasks (id, owner_email, name, description, category, priority, due_date,
		reminder_enabled, remind_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.OwnerEmail,
		task.Name,
		task.Description,
		task.Category,
		task.Priority,
		task.DueDate,
		task.Reminder.Enabled,
		task.Reminder.RemindAt,
	).Scan(&task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	// last_fired_at only moves forward, even if the caller sends a stale copy.
	const query = `
	UPDATE tasks
	SET name = $2,
		description = $3,
		category = $4,
		priority = $5,
		due_date = $6,
		reminder_enabled = $7,
		remind_at = $8,
		last_fired_at = GREATEST(last_fired_at, $9),
		updated_at = NOW()
	WHERE id = $1
	RETURNING updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.Name,
		task.Description,
		task.Category,
		task.Priority,
		task.DueDate,
		task.Reminder.Enabled,
		task.Reminder.RemindAt,
		task.Reminder.LastFiredAt,
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tasks WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) MarkReminderFired(ctx context.Context, id string, remindAt time.Time) error {
	const query = `
	UPDATE tasks
	SET last_fired_at = $2,
		updated_at = NOW()
	WHERE id = $1
	  AND (last_fired_at IS NULL OR last_fired_at < $2)
	`
	tag, err := r.pool.Exec(ctx, query, id, remindAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Either the task is gone (settled mid-sweep) or another sweep
		// already recorded this RemindAt. Both are fine to ignore.
		return nil
	}
	return nil
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.OwnerEmail,
		&task.Name,
		&task.Description,
		&task.Category,
		&task.Priority,
		&task.DueDate,
		&task.Reminder.Enabled,
		&task.Reminder.RemindAt,
		&task.Reminder.LastFiredAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}
