package usecase

import (
	"context"

	"github.com/focusmate/settlement/domain"
)

// CreditQueue abstracts the reward-credit outbox so the coordinator stays
// delivery-agnostic.
type CreditQueue interface {
	EnqueueCredit(ctx context.Context, credit domain.RewardCredit) error
}

// Notifier publishes reminder notifications to the dispatch collaborator.
type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}
