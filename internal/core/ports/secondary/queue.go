package secondary

import (
	"context"

	"gitlab.com/grader-api/internal/domain"
)

// JobQueue is the durable, ordered submission log with consumer-group
// dispatch. Delivery is at-least-once; consumers must tolerate redelivery.
type JobQueue interface {
	// Enqueue appends a job message to the log
	Enqueue(ctx context.Context, job *domain.JobMessage) error

	// EnsureGroup creates the consumer group if it does not exist yet.
	// Creating an existing group is not an error.
	EnsureGroup(ctx context.Context) error

	// Read blocks up to the configured interval for the next undelivered
	// message for this consumer identity. Returns errs.NoMessage when the
	// block times out and errs.GroupMissing when the group reference is
	// invalid and must be recreated.
	Read(ctx context.Context, consumer string) (*DeliveredJob, error)

	// Ack removes a delivered message from the consumer's pending set.
	// Call only after the job's side effects are durably applied.
	Ack(ctx context.Context, entryID string) error
}

// DeliveredJob pairs a job message with its stream entry id for acking
type DeliveredJob struct {
	EntryID string
	Job     domain.JobMessage
}
