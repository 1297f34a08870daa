package services

import (
	"context"

	"github.com/focusmate/settlement/domain"
	"github.com/focusmate/settlement/usecase"
)

// CreditBridge adapts the drainer to the coordinator's CreditQueue port.
type CreditBridge struct {
	drainer *CreditDrainer
}

func NewCreditBridge(drainer *CreditDrainer) *CreditBridge {
	return &CreditBridge{drainer: drainer}
}

func (b *CreditBridge) EnqueueCredit(ctx context.Context, credit domain.RewardCredit) error {
	if b.drainer == nil {
		return domain.ErrInvalidPayload
	}
	return b.drainer.Submit(ctx, credit)
}

var _ usecase.CreditQueue = (*CreditBridge)(nil)
