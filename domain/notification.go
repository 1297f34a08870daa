package domain

import "time"

// Notification is the ephemeral event emitted when a task reminder fires.
// It is published to the dispatch collaborator and never persisted here.
type Notification struct {
	TaskID     string    `json:"task_id"`
	OwnerEmail string    `json:"owner_email"`
	TaskName   string    `json:"task_name"`
	RemindAt   time.Time `json:"remind_at"`
	FiredAt    time.Time `json:"fired_at"`
}
