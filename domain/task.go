package domain

import (
	"strings"
	"time"
)

// Task priorities as stored. Unknown values are tolerated and earn the Low
// reward when points are computed.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Reward points per priority. Settlement snapshots the value into the ledger;
// it is never recomputed afterwards.
const (
	PointsLow    = 10
	PointsMedium = 30
	PointsHigh   = 50
)

// Reminder carries the optional reminder state of a task. LastFiredAt is set
// to the RemindAt value that was delivered, never to wall-clock time, so a
// reminder fires at most once per RemindAt.
type Reminder struct {
	Enabled     bool       `json:"enabled"`
	RemindAt    *time.Time `json:"remind_at,omitempty"`
	LastFiredAt *time.Time `json:"last_fired_at,omitempty"`
}

// Task represents a pending unit of work owned by a user. Completed tasks do
// not live here; settlement moves them to the completed ledger.
type Task struct {
	ID          string     `json:"id"`
	OwnerEmail  string     `json:"owner_email"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category,omitempty"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Reminder    Reminder   `json:"reminder"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// PointsForPriority maps a task priority to the reward points awarded at
// settlement. Matching is case-insensitive; anything unrecognized earns the
// Low amount.
func PointsForPriority(priority string) int {
	switch strings.ToLower(strings.TrimSpace(priority)) {
	case "medium":
		return PointsMedium
	case "high":
		return PointsHigh
	default:
		return PointsLow
	}
}

// ReminderDue reports whether the task's reminder should fire for a sweep at
// now, given the window [now-grace, now+lookahead]. A reminder whose RemindAt
// was already delivered (LastFiredAt >= RemindAt) is never due again.
func (t *Task) ReminderDue(now time.Time, grace, lookahead time.Duration) bool {
	if t == nil || !t.Reminder.Enabled || t.Reminder.RemindAt == nil {
		return false
	}
	at := *t.Reminder.RemindAt
	if t.Reminder.LastFiredAt != nil && !t.Reminder.LastFiredAt.Before(at) {
		return false
	}
	if at.Before(now.Add(-grace)) {
		return false
	}
	return !at.After(now.Add(lookahead))
}
