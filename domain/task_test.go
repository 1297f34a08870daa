package domain

import (
	"testing"
	"time"
)

func TestPointsForPriority(t *testing.T) {
	tests := []struct {
		priority string
		want     int
	}{
		{PriorityLow, 10},
		{PriorityMedium, 30},
		{PriorityHigh, 50},
		{"low", 10},
		{"MEDIUM", 30},
		{" high ", 50},
		{"", 10},
		{"urgent", 10},
		{"Critical", 10},
	}
	for _, tt := range tests {
		if got := PointsForPriority(tt.priority); got != tt.want {
			t.Errorf("PointsForPriority(%q) = %d, want %d", tt.priority, got, tt.want)
		}
	}
}

func TestReminderDue(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	grace := 60 * time.Minute
	lookahead := 15 * time.Minute

	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	tests := []struct {
		name     string
		reminder Reminder
		want     bool
	}{
		{"disabled", Reminder{Enabled: false, RemindAt: at(-5 * time.Minute)}, false},
		{"no remind_at", Reminder{Enabled: true}, false},
		{"due five minutes ago", Reminder{Enabled: true, RemindAt: at(-5 * time.Minute)}, true},
		{"due right now", Reminder{Enabled: true, RemindAt: at(0)}, true},
		{"within lookahead", Reminder{Enabled: true, RemindAt: at(10 * time.Minute)}, true},
		{"beyond lookahead", Reminder{Enabled: true, RemindAt: at(30 * time.Minute)}, false},
		{"expired beyond grace", Reminder{Enabled: true, RemindAt: at(-2 * time.Hour)}, false},
		{"edge of grace", Reminder{Enabled: true, RemindAt: at(-grace)}, true},
		{"already fired", Reminder{Enabled: true, RemindAt: at(-5 * time.Minute), LastFiredAt: at(-5 * time.Minute)}, false},
		{"fired for earlier occurrence", Reminder{Enabled: true, RemindAt: at(-5 * time.Minute), LastFiredAt: at(-20 * time.Minute)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &Task{ID: "t1", Reminder: tt.reminder}
			if got := task.ReminderDue(now, grace, lookahead); got != tt.want {
				t.Errorf("ReminderDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewCompletedTaskSnapshotsPoints(t *testing.T) {
	completedAt := time.Now().UTC()
	task := &Task{
		ID:         "t1",
		OwnerEmail: "ada@example.com",
		Name:       "write report",
		Priority:   PriorityHigh,
	}

	record := NewCompletedTask(task, completedAt)

	if record.SourceTaskID != "t1" {
		t.Errorf("SourceTaskID = %q, want t1", record.SourceTaskID)
	}
	if record.PointsAwarded != PointsHigh {
		t.Errorf("PointsAwarded = %d, want %d", record.PointsAwarded, PointsHigh)
	}
	if !record.CompletedAt.Equal(completedAt) {
		t.Errorf("CompletedAt = %v, want %v", record.CompletedAt, completedAt)
	}
}
