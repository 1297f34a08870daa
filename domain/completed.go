package domain

import "time"

// CompletedTask is the immutable ledger entry written when a task is settled.
// Exactly one entry exists per source task; the unique index on SourceTaskID
// backs that up at the storage layer.
type CompletedTask struct {
	SourceTaskID  string     `json:"source_task_id"`
	OwnerEmail    string     `json:"owner_email"`
	Name          string     `json:"name"`
	Category      string     `json:"category,omitempty"`
	Priority      string     `json:"priority"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	PointsAwarded int        `json:"points_awarded"`
	CompletedAt   time.Time  `json:"completed_at"`
}

// NewCompletedTask builds the ledger entry for a task being settled, snapshotting
// the reward points at completion time.
func NewCompletedTask(task *Task, completedAt time.Time) *CompletedTask {
	return &CompletedTask{
		SourceTaskID:  task.ID,
		OwnerEmail:    task.OwnerEmail,
		Name:          task.Name,
		Category:      task.Category,
		Priority:      task.Priority,
		DueDate:       task.DueDate,
		PointsAwarded: PointsForPriority(task.Priority),
		CompletedAt:   completedAt,
	}
}
