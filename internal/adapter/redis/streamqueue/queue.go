// package streamqueue implements the durable job log on a Redis stream with
// consumer-group dispatch.
package streamqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/domain"
	"gitlab.com/grader-api/internal/static/errs"
)

var _ secondary.JobQueue = (*StreamQueue)(nil)

// StreamQueue implements the JobQueue interface on Redis streams
type StreamQueue struct {
	redisClient *redis.Client
	cfg         *config.GraderConfig
	logger      primary.Logger
}

// NewStreamQueue creates a new Redis stream queue
func NewStreamQueue(redisClient *redis.Client, cfg *config.GraderConfig, logger primary.Logger) *StreamQueue {
	return &StreamQueue{
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}
}

// Enqueue appends a job message to the submission stream
func (q *StreamQueue) Enqueue(ctx context.Context, job *domain.JobMessage) error {
	err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: q.cfg.StreamName,
		ID:     "*",
		Values: map[string]interface{}{
			"submissionID":            strconv.FormatInt(job.SubmissionID, 10),
			"userID":                  job.UserID,
			"programmingAssignmentID": strconv.FormatInt(job.AssignmentID, 10),
			"code":                    job.Code,
			"testCode":                job.TestCode,
		},
	}).Err()

	if err != nil {
		q.logger.Error("Failed to enqueue job", "submissionId", job.SubmissionID, "error", err)
		return fmt.Errorf("failed to enqueue job: %w", err)
	}

	return nil
}

// EnsureGroup creates the consumer group, tolerating one that already exists
func (q *StreamQueue) EnsureGroup(ctx context.Context) error {
	err := q.redisClient.XGroupCreateMkStream(ctx, q.cfg.StreamName, q.cfg.GroupName, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Read blocks up to the configured interval for the next undelivered message
// assigned to this consumer identity. At most one message is requested per
// call so a worker processes jobs strictly one at a time.
func (q *StreamQueue) Read(ctx context.Context, consumer string) (*secondary.DeliveredJob, error) {
	streams, err := q.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.GroupName,
		Consumer: consumer,
		Streams:  []string{q.cfg.StreamName, ">"},
		Count:    1,
		Block:    q.cfg.ReadBlock,
	}).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errs.NoMessage
		}
		if strings.Contains(err.Error(), "NOGROUP") {
			return nil, fmt.Errorf("read from %s: %w", q.cfg.StreamName, errs.GroupMissing)
		}
		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, errs.NoMessage
	}

	msg := streams[0].Messages[0]
	job, err := jobFromValues(msg.Values)
	if err != nil {
		// A malformed entry would be redelivered forever; ack it away.
		q.logger.Error("Dropping malformed stream entry", "entryId", msg.ID, "error", err)
		if ackErr := q.Ack(ctx, msg.ID); ackErr != nil {
			q.logger.Error("Failed to ack malformed entry", "entryId", msg.ID, "error", ackErr)
		}
		return nil, errs.NoMessage
	}

	return &secondary.DeliveredJob{EntryID: msg.ID, Job: *job}, nil
}

// Ack removes a delivered message from the consumer group's pending set
func (q *StreamQueue) Ack(ctx context.Context, entryID string) error {
	if err := q.redisClient.XAck(ctx, q.cfg.StreamName, q.cfg.GroupName, entryID).Err(); err != nil {
		return fmt.Errorf("failed to ack entry %s: %w", entryID, err)
	}
	return nil
}

func jobFromValues(values map[string]interface{}) (*domain.JobMessage, error) {
	getStr := func(k string) string {
		if v, ok := values[k].(string); ok {
			return v
		}
		return ""
	}

	submissionID, err := strconv.ParseInt(getStr("submissionID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid submissionID %q: %w", getStr("submissionID"), err)
	}
	assignmentID, err := strconv.ParseInt(getStr("programmingAssignmentID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid programmingAssignmentID %q: %w", getStr("programmingAssignmentID"), err)
	}

	return &domain.JobMessage{
		SubmissionID: submissionID,
		UserID:       getStr("userID"),
		AssignmentID: assignmentID,
		Code:         getStr("code"),
		TestCode:     getStr("testCode"),
	}, nil
}
