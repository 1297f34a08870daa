package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
)

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns the Postgres-backed completed-task ledger.
func NewLedgerRepository(pool *pgxpool.Pool) repository.LedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (r *ledgerRepository) Insert(ctx context.Context, record *domain.CompletedTask) error {
	if record == nil || record.SourceTaskID == "" {
		return domain.ErrInvalidPayload
	}

	// The unique index on source_task_id makes the insert the settlement
	// claim: whoever lands the row owns the settlement.
	const query = `
	INSERT INTO completed_tasks (source_task_id, owner_email, name, category, priority,
		due_date, points_awarded, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (source_task_id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		record.SourceTaskID,
		record.OwnerEmail,
		record.Name,
		record.Category,
		record.Priority,
		record.DueDate,
		record.PointsAwarded,
		record.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySettled
	}
	return nil
}

func (r *ledgerRepository) GetBySourceTaskID(ctx context.Context, sourceTaskID string) (*domain.CompletedTask, error) {
	const query = `
	SELECT source_task_id, owner_email, name, category, priority, due_date, points_awarded, completed_at
	FROM completed_tasks
	WHERE source_task_id = $1
	`
	return scanCompleted(r.pool.QueryRow(ctx, query, sourceTaskID))
}

func (r *ledgerRepository) List(ctx context.Context, filter repository.LedgerFilter) ([]domain.CompletedTask, error) {
	const query = `
	SELECT source_task_id, owner_email, name, category, priority, due_date, points_awarded, completed_at
	FROM completed_tasks
	WHERE ($1 = '' OR owner_email = $1)
	ORDER BY completed_at DESC
	LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, filter.OwnerEmail, clampLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CompletedTask
	for rows.Next() {
		record, err := scanCompleted(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func (r *ledgerRepository) TotalPoints(ctx context.Context, ownerEmail string) (int, error) {
	const query = `
	SELECT COALESCE(SUM(points_awarded), 0)
	FROM completed_tasks
	WHERE owner_email = $1
	`
	var total int
	if err := r.pool.QueryRow(ctx, query, ownerEmail).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func scanCompleted(row interface {
	Scan(dest ...interface{}) error
}) (*domain.CompletedTask, error) {
	var record domain.CompletedTask
	if err := row.Scan(
		&record.SourceTaskID,
		&record.OwnerEmail,
		&record.Name,
		&record.Category,
		&record.Priority,
		&record.DueDate,
		&record.PointsAwarded,
		&record.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return &record, nil
}
