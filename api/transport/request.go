package transport

// TaskRequest is the create/update payload for active tasks.
type TaskRequest struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Priority    string           `json:"priority"`
	DueDate     string           `json:"due_date"`
	Reminder    *ReminderRequest `json:"reminder"`
}

type ReminderRequest struct {
	Enabled  bool   `json:"enabled"`
	RemindAt string `json:"remind_at"`
}

// SettleResponse is returned by the task completion endpoint.
type SettleResponse struct {
	PointsAwarded int `json:"points_awarded"`
}

// PointsResponse is the reward total for one owner.
type PointsResponse struct {
	OwnerEmail  string `json:"owner_email"`
	TotalPoints int    `json:"total_points"`
}

// SweepResponse reports the outcome of a manually triggered reminder sweep.
type SweepResponse struct {
	Notifications int  `json:"notifications"`
	Ran           bool `json:"ran"`
}
