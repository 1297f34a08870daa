package domain

// RewardCredit is the message delivered to the external reward ledger after a
// settlement. IdempotencyKey is the source task ID so a redelivered credit is
// discarded by the ledger instead of double-counted.
type RewardCredit struct {
	OwnerEmail     string `json:"owner_email"`
	Points         int    `json:"points"`
	IdempotencyKey string `json:"idempotency_key"`
}
