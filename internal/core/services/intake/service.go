// package intake implements the submission intake flow: persist the
// pending record, enqueue the grading job, and the short-circuits that
// avoid grading work the system has already done.
package intake

import (
	"context"

	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/domain"
	"gitlab.com/grader-api/internal/static/errs"
)

// Service handles submission intake and the read endpoints of the API
type Service struct {
	store     secondary.SubmissionStore
	queue     secondary.JobQueue
	publisher secondary.EventPublisher
	logger    primary.Logger
}

// NewService creates a new intake service. The store is expected to be the
// cache-decorated one so reads are memoized and mutations flush.
func NewService(
	store secondary.SubmissionStore,
	queue secondary.JobQueue,
	publisher secondary.EventPublisher,
	logger primary.Logger,
) *Service {
	return &Service{
		store:     store,
		queue:     queue,
		publisher: publisher,
		logger:    logger,
	}
}

// SubmitResult reports how a submission was accepted
type SubmitResult struct {
	SubmissionID int64
	// Copied is true when the verdict was copied from an identical earlier
	// submission instead of being graded again.
	Copied bool
}

// Submit accepts a new submission. A user with a submission still in
// grading is rejected. An identical (assignment, code) pair the user has
// already submitted is settled immediately by copying the earlier verdict,
// without touching the sandbox; otherwise the submission is persisted as
// pending and enqueued for grading.
func (s *Service) Submit(ctx context.Context, userID string, assignmentID int64, code, testCode string) (*SubmitResult, error) {
	pending, err := s.store.CountPendingByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if pending > 0 {
		return nil, errs.PendingSubmissionExists
	}

	previous, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range previous {
		match := &previous[i]
		if match.AssignmentID == assignmentID && match.Code == code && match.Status == domain.StatusProcessed {
			return s.copyVerdict(ctx, match)
		}
	}

	submission := domain.NewPendingSubmission(userID, assignmentID, code)
	id, err := s.store.Add(ctx, submission)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Submission persisted", "submissionId", id, "userId", userID)

	job := &domain.JobMessage{
		SubmissionID: id,
		UserID:       userID,
		AssignmentID: assignmentID,
		Code:         code,
		TestCode:     testCode,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// The row stays pending; the sweeper picks it up past the age
		// threshold, so intake still succeeds.
		s.logger.Error("Failed to enqueue submission, sweeper will recover it",
			"submissionId", id, "error", err)
	}

	return &SubmitResult{SubmissionID: id}, nil
}

// copyVerdict re-settles a duplicate submission from the earlier one's
// outcome and publishes it as if freshly graded
func (s *Service) copyVerdict(ctx context.Context, match *domain.Submission) (*SubmitResult, error) {
	s.logger.Info("Matching earlier submission found, copying verdict",
		"submissionId", match.ID, "userId", match.UserID)

	_, err := s.store.UpdateStatus(ctx, match.ID, domain.StatusProcessed, match.Feedback, match.Correct)
	if err != nil {
		return nil, err
	}

	event := &domain.GradingEvent{
		SubmissionID: match.ID,
		AssignmentID: match.AssignmentID,
		UserID:       match.UserID,
		Status:       domain.StatusProcessed,
		Feedback:     match.Feedback,
		Correct:      match.Correct,
		Code:         match.Code,
		Type:         domain.EventTypeSubmission,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish copied verdict",
			"submissionId", match.ID, "error", err)
	}

	return &SubmitResult{SubmissionID: match.ID, Copied: true}, nil
}

// NextAssignment returns the assignment the user should work on next: the
// one after their highest correctly solved assignment, or the first one if
// nothing is solved yet. Nil means the course is finished.
func (s *Service) NextAssignment(ctx context.Context, userID string) (*domain.Assignment, error) {
	submissions, err := s.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var maxSolved int64
	for _, submission := range submissions {
		if submission.Correct && submission.AssignmentID > maxSolved {
			maxSolved = submission.AssignmentID
		}
	}

	return s.store.GetAssignmentByOrder(ctx, maxSolved+1)
}

// Points returns how many distinct assignments the user has solved
func (s *Service) Points(ctx context.Context, userID string) (int64, error) {
	return s.store.CountCorrectByUser(ctx, userID)
}

// SubmissionsByUser returns all submissions of a user, most recent first
func (s *Service) SubmissionsByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.store.GetByUser(ctx, userID)
}

// Submissions returns one page of all submissions, most recent first
func (s *Service) Submissions(ctx context.Context, limit, offset int) ([]domain.Submission, error) {
	return s.store.List(ctx, limit, offset)
}

// SubmissionStatus returns the submission with the given id, nil if absent
func (s *Service) SubmissionStatus(ctx context.Context, id int64) (*domain.Submission, error) {
	return s.store.GetByID(ctx, id)
}

// Delete removes a submission. Only the owner may delete, and only their
// most recent submission.
func (s *Service) Delete(ctx context.Context, id int64, userID string) error {
	submission, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if submission == nil {
		return errs.SubmissionNotFound
	}
	if submission.UserID != userID {
		return errs.NotSubmissionOwner
	}

	mostRecent, err := s.store.GetMostRecentByUser(ctx, userID)
	if err != nil {
		return err
	}
	if mostRecent == nil || mostRecent.ID != id {
		return errs.NotMostRecent
	}

	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errs.SubmissionNotFound
	}

	s.logger.Info("Submission deleted", "submissionId", id, "userId", userID)
	return nil
}
