package grader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/domain"
	"gitlab.com/grader-api/internal/static/errs"
)

// retryDelay spaces out read attempts after an unexpected queue error so a
// broken Redis connection does not spin the loop.
const retryDelay = time.Second

// Service is the grading worker: it pulls job messages from the queue,
// drives the sandbox and verdict interpreter, commits the outcome, fans it
// out, and acknowledges the message.
type Service struct {
	queue     secondary.JobQueue
	store     secondary.SubmissionStore
	runner    secondary.CodeRunner
	cache     secondary.ResultCache
	publisher secondary.EventPublisher
	logger    primary.Logger
	consumer  string
}

// NewService creates a grading worker with a unique consumer identity
func NewService(
	queue secondary.JobQueue,
	store secondary.SubmissionStore,
	runner secondary.CodeRunner,
	cache secondary.ResultCache,
	publisher secondary.EventPublisher,
	logger primary.Logger,
) *Service {
	return &Service{
		queue:     queue,
		store:     store,
		runner:    runner,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		consumer:  fmt.Sprintf("grader-%s", uuid.NewString()),
	}
}

// Consumer returns this worker's consumer-group identity
func (s *Service) Consumer() string {
	return s.consumer
}

// Run is the worker loop. Jobs are processed strictly one at a time; the
// loop exits only when ctx is cancelled. Queue errors never crash the loop:
// a missing group is recreated, everything else is logged and retried.
func (s *Service) Run(ctx context.Context) {
	if err := s.queue.EnsureGroup(ctx); err != nil {
		s.logger.Error("Failed to create consumer group", "error", err)
	}
	s.logger.Info("Grading worker started", "consumer", s.consumer)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Grading worker stopping", "consumer", s.consumer)
			return
		default:
		}

		delivered, err := s.queue.Read(ctx, s.consumer)
		if err != nil {
			if errors.Is(err, errs.NoMessage) {
				continue
			}
			if errors.Is(err, errs.GroupMissing) {
				s.logger.Warn("Consumer group missing, recreating", "consumer", s.consumer)
				if err := s.queue.EnsureGroup(ctx); err != nil {
					s.logger.Error("Failed to recreate consumer group", "error", err)
				}
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			s.logger.Error("Failed to read from stream", "error", err)
			time.Sleep(retryDelay)
			continue
		}

		s.processDelivery(ctx, delivered)
	}
}

// processDelivery runs one delivered job through the grade/commit/publish
// sequence and acknowledges it. The message is acked once the commit has
// been applied (or found to be already applied); a failure before that
// point leaves it pending so the queue redelivers it.
func (s *Service) processDelivery(ctx context.Context, delivered *secondary.DeliveredJob) {
	job := delivered.Job
	s.logger.Info("Processing submission",
		"entryId", delivered.EntryID,
		"submissionId", job.SubmissionID,
		"userId", job.UserID)

	if err := s.Grade(ctx, &job, domain.EventTypeSubmission); err != nil {
		s.logger.Error("Failed to grade submission",
			"submissionId", job.SubmissionID, "error", err)
		return
	}

	if err := s.queue.Ack(ctx, delivered.EntryID); err != nil {
		// The commit is durable; a redelivery will hit AlreadySettled and
		// be acked without re-publishing.
		s.logger.Error("Failed to ack entry", "entryId", delivered.EntryID, "error", err)
	}
}

// Grade runs the full settlement sequence for one job message: sandbox run,
// verdict interpretation, check-and-set commit, cache flush, and fan-out.
// The sweeper reuses this path with the reprocessed event type.
//
// Returns an error only when the submission was not settled (sandbox or
// store failure); losing the settle race to another writer counts as
// settled. Cache-flush and publish failures are logged and swallowed
// because the authoritative commit has already been applied.
func (s *Service) Grade(ctx context.Context, job *domain.JobMessage, eventType domain.EventType) error {
	runKey := uuid.NewString()
	raw, err := s.runner.Run(ctx, job.Code, job.TestCode, runKey)
	if err != nil {
		return fmt.Errorf("sandbox run for submission %d: %w", job.SubmissionID, err)
	}

	verdict := Interpret(raw)

	_, err = s.store.SettlePending(ctx, job.SubmissionID, verdict.Feedback, verdict.Correct)
	if err != nil {
		if errors.Is(err, errs.AlreadySettled) {
			s.logger.Info("Submission already settled by another writer",
				"submissionId", job.SubmissionID)
			return nil
		}
		return err
	}

	if err := s.cache.FlushExcept(ctx); err != nil {
		s.logger.Error("Failed to flush cache", "submissionId", job.SubmissionID, "error", err)
	}

	event := &domain.GradingEvent{
		SubmissionID: job.SubmissionID,
		AssignmentID: job.AssignmentID,
		UserID:       job.UserID,
		Status:       domain.StatusProcessed,
		Feedback:     verdict.Feedback,
		Correct:      verdict.Correct,
		Code:         job.Code,
		Type:         eventType,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish grading event",
			"submissionId", job.SubmissionID, "error", err)
	}

	s.logger.Info("Submission settled",
		"submissionId", job.SubmissionID,
		"correct", verdict.Correct,
		"type", eventType)
	return nil
}
