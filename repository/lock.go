package repository

import "context"

// TaskLock serializes settlement attempts for a single task ID across
// coordinator instances. Acquire returns domain.ErrLockHeld when another
// holder owns the key; the returned release func is safe to call once.
type TaskLock interface {
	Acquire(ctx context.Context, taskID string) (release func(), err error)
}
