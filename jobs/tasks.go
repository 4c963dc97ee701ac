package jobs

import (
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionSweep marks idle sessions dead and disconnects their users.
	TaskSessionSweep = "sessions:sweep"
	// TaskIdempotencyCleanup prunes old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// NewSessionSweepTask constructs the periodic sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}

// NewIdempotencyCleanupTask constructs the periodic cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil)
}
