package history

import (
	"context"

	"go.uber.org/zap"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/repository"
)

// UseCase serves read-only queries over the completed-task ledger.
type UseCase struct {
	ledger repository.LedgerRepository
	logger *zap.Logger
}

func New(ledger repository.LedgerRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		ledger: ledger,
		logger: logger,
	}
}

func (uc *UseCase) ListCompleted(ctx context.Context, filter repository.LedgerFilter) ([]domain.CompletedTask, error) {
	return uc.ledger.List(ctx, filter)
}

func (uc *UseCase) TotalPoints(ctx context.Context, ownerEmail string) (int, error) {
	if ownerEmail == "" {
		return 0, domain.ErrInvalidPayload
	}
	return uc.ledger.TotalPoints(ctx, ownerEmail)
}
