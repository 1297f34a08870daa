package outbox

import (
	"time"

	"github.com/focusmate/settlement/domain"
)

// Entry is a reward credit waiting for delivery to the external ledger.
// Entries are keyed by the credit's idempotency key, so re-enqueueing the same
// settlement overwrites rather than duplicates.
type Entry struct {
	Credit     domain.RewardCredit `json:"credit"`
	Attempts   int                 `json:"attempts"`
	EnqueuedAt time.Time           `json:"enqueued_at"`
}

func (e *Entry) normalize() {
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now()
	}
}
