package secondary

import (
	"context"
	"time"

	"gitlab.com/grader-api/internal/domain"
)

// SubmissionStore is the narrow read/write contract the pipeline holds on
// the durable submission record. The Postgres adapter implements it; the
// cache wrapper decorates its read side for the API.
type SubmissionStore interface {
	// GetPendingOlderThan retrieves submissions still pending whose
	// last_updated is older than the given age. Used by the sweeper.
	GetPendingOlderThan(ctx context.Context, age time.Duration) ([]domain.Submission, error)

	// GetTestCode retrieves the hidden test harness for an assignment
	GetTestCode(ctx context.Context, assignmentID int64) (string, error)

	// UpdateStatus unconditionally writes status, feedback and correctness
	// for a submission and returns the new last_updated timestamp. Returns
	// errs.SubmissionNotFound if the id does not exist.
	UpdateStatus(ctx context.Context, id int64, status domain.SubmissionStatus, feedback string, correct bool) (time.Time, error)

	// SettlePending is the check-and-set commit: it transitions the
	// submission to processed only if it is still pending. Returns
	// errs.AlreadySettled when another writer won the race and
	// errs.SubmissionNotFound when the id does not exist.
	SettlePending(ctx context.Context, id int64, feedback string, correct bool) (time.Time, error)

	// Add persists a new pending submission and returns its assigned id
	Add(ctx context.Context, submission *domain.Submission) (int64, error)

	// GetByUser retrieves all submissions of a user, most recent first
	GetByUser(ctx context.Context, userID string) ([]domain.Submission, error)

	// GetByID retrieves a single submission, nil if absent
	GetByID(ctx context.Context, id int64) (*domain.Submission, error)

	// GetMostRecentByUser retrieves the user's latest submission, nil if none
	GetMostRecentByUser(ctx context.Context, userID string) (*domain.Submission, error)

	// CountPendingByUser counts the user's submissions still in grading
	CountPendingByUser(ctx context.Context, userID string) (int64, error)

	// CountCorrectByUser counts distinct assignments the user has solved
	CountCorrectByUser(ctx context.Context, userID string) (int64, error)

	// List retrieves submissions page by page, most recent first
	List(ctx context.Context, limit, offset int) ([]domain.Submission, error)

	// DeleteByID removes a submission, reporting whether a row was deleted
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// GetAssignmentByOrder retrieves the assignment at a position in the
	// course sequence, nil if the sequence is exhausted
	GetAssignmentByOrder(ctx context.Context, order int64) (*domain.Assignment, error)
}
