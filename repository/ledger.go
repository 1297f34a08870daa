package repository

import (
	"context"

	"github.com/focusmate/settlement/domain"
)

type LedgerFilter struct {
	OwnerEmail string
	Limit      int
	Offset     int
}

// LedgerRepository is the append-only store of settled tasks.
type LedgerRepository interface {
	// Insert appends a completed-task entry. A second insert for the same
	// SourceTaskID returns domain.ErrAlreadySettled and leaves the original
	// entry untouched.
	Insert(ctx context.Context, record *domain.CompletedTask) error
	GetBySourceTaskID(ctx context.Context, sourceTaskID string) (*domain.CompletedTask, error)
	List(ctx context.Context, filter LedgerFilter) ([]domain.CompletedTask, error)
	TotalPoints(ctx context.Context, ownerEmail string) (int, error)
}
