// package submissionrepo contains the PostgreSQL implementation of the
// submission store contract.
package submissionrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/domain"
	"gitlab.com/grader-api/internal/static/errs"
)

var _ secondary.SubmissionStore = (*SubmissionRepository)(nil)

// SubmissionRepository implements the SubmissionStore interface with PostgreSQL
type SubmissionRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewSubmissionRepository creates a new PostgreSQL submission repository
func NewSubmissionRepository(db *sqlx.DB, logger primary.Logger) *SubmissionRepository {
	return &SubmissionRepository{
		db:     db,
		logger: logger,
	}
}

// GetPendingOlderThan retrieves submissions stuck at status=pending whose
// last update is older than the given age
func (r *SubmissionRepository) GetPendingOlderThan(ctx context.Context, age time.Duration) ([]domain.Submission, error) {
	cutoff := time.Now().Add(-age)

	query := `
		SELECT id, user_uuid, programming_assignment_id, code, status,
			   grader_feedback, correct, last_updated
		FROM programming_assignment_submissions
		WHERE status = $1 AND last_updated < $2
		ORDER BY last_updated ASC
	`

	submissions := make([]domain.Submission, 0)
	if err := r.db.SelectContext(ctx, &submissions, query, domain.StatusPending, cutoff); err != nil {
		r.logger.Error("Failed to get pending submissions", "error", err)
		return nil, fmt.Errorf("failed to get pending submissions: %w", err)
	}

	return submissions, nil
}

// GetTestCode retrieves the hidden test harness for an assignment
func (r *SubmissionRepository) GetTestCode(ctx context.Context, assignmentID int64) (string, error) {
	query := `SELECT test_code FROM programming_assignments WHERE id = $1`

	var testCode string
	if err := r.db.GetContext(ctx, &testCode, query, assignmentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("assignment %d not found", assignmentID)
		}
		r.logger.Error("Failed to get test code", "assignmentId", assignmentID, "error", err)
		return "", fmt.Errorf("failed to get test code: %w", err)
	}

	return testCode, nil
}

// UpdateStatus unconditionally writes the grading outcome for a submission
// and returns the new last_updated timestamp
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id int64, status domain.SubmissionStatus, feedback string, correct bool) (time.Time, error) {
	query := `
		UPDATE programming_assignment_submissions
		SET status = $1, grader_feedback = $2, correct = $3, last_updated = NOW()
		WHERE id = $4
		RETURNING last_updated
	`

	var lastUpdated time.Time
	err := r.db.QueryRowContext(ctx, query, status, feedback, correct, id).Scan(&lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, fmt.Errorf("update of submission %d: %w", id, errs.SubmissionNotFound)
		}
		r.logger.Error("Failed to update submission status", "submissionId", id, "error", err)
		return time.Time{}, fmt.Errorf("failed to update submission status: %w", err)
	}

	return lastUpdated, nil
}

// SettlePending is the check-and-set commit: the transition to processed
// applies only while the submission is still pending, so a worker and the
// sweeper racing on the same id converge on a single settlement.
func (r *SubmissionRepository) SettlePending(ctx context.Context, id int64, feedback string, correct bool) (time.Time, error) {
	query := `
		UPDATE programming_assignment_submissions
		SET status = $1, grader_feedback = $2, correct = $3, last_updated = NOW()
		WHERE id = $4 AND status = $5
		RETURNING last_updated
	`

	var lastUpdated time.Time
	err := r.db.QueryRowContext(ctx, query, domain.StatusProcessed, feedback, correct, id, domain.StatusPending).Scan(&lastUpdated)
	if err == nil {
		return lastUpdated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		r.logger.Error("Failed to settle submission", "submissionId", id, "error", err)
		return time.Time{}, fmt.Errorf("failed to settle submission: %w", err)
	}

	// No row moved: the id is either gone or already processed
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return time.Time{}, getErr
	}
	if existing == nil {
		return time.Time{}, fmt.Errorf("settle of submission %d: %w", id, errs.SubmissionNotFound)
	}
	return time.Time{}, fmt.Errorf("settle of submission %d: %w", id, errs.AlreadySettled)
}

// Add persists a new pending submission and returns its assigned id
func (r *SubmissionRepository) Add(ctx context.Context, submission *domain.Submission) (int64, error) {
	query := `
		INSERT INTO programming_assignment_submissions (
			programming_assignment_id, code, user_uuid, status,
			grader_feedback, correct, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(
		ctx,
		query,
		submission.AssignmentID,
		submission.Code,
		submission.UserID,
		submission.Status,
		submission.Feedback,
		submission.Correct,
		submission.LastUpdated,
	).Scan(&id)

	if err != nil {
		r.logger.Error("Failed to add submission", "error", err)
		return 0, fmt.Errorf("failed to add submission: %w", err)
	}

	return id, nil
}

// GetByUser retrieves all submissions of a user, most recent first
func (r *SubmissionRepository) GetByUser(ctx context.Context, userID string) ([]domain.Submission, error) {
	query := `
		SELECT id, user_uuid, programming_assignment_id, code, status,
			   grader_feedback, correct, last_updated
		FROM programming_assignment_submissions
		WHERE user_uuid = $1
		ORDER BY programming_assignment_id DESC, last_updated DESC
	`

	submissions := make([]domain.Submission, 0)
	if err := r.db.SelectContext(ctx, &submissions, query, userID); err != nil {
		r.logger.Error("Failed to get submissions by user", "userId", userID, "error", err)
		return nil, fmt.Errorf("failed to get submissions by user: %w", err)
	}

	return submissions, nil
}

// GetByID retrieves a single submission by its id
func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*domain.Submission, error) {
	query := `
		SELECT id, user_uuid, programming_assignment_id, code, status,
			   grader_feedback, correct, last_updated
		FROM programming_assignment_submissions
		WHERE id = $1
	`

	var submission domain.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get submission", "submissionId", id, "error", err)
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}

	return &submission, nil
}

// GetMostRecentByUser retrieves the user's latest submission
func (r *SubmissionRepository) GetMostRecentByUser(ctx context.Context, userID string) (*domain.Submission, error) {
	query := `
		SELECT id, user_uuid, programming_assignment_id, code, status,
			   grader_feedback, correct, last_updated
		FROM programming_assignment_submissions
		WHERE user_uuid = $1
		ORDER BY last_updated DESC
		LIMIT 1
	`

	var submission domain.Submission
	if err := r.db.GetContext(ctx, &submission, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get most recent submission", "userId", userID, "error", err)
		return nil, fmt.Errorf("failed to get most recent submission: %w", err)
	}

	return &submission, nil
}

// CountPendingByUser counts the user's submissions still in grading
func (r *SubmissionRepository) CountPendingByUser(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COUNT(*) FROM programming_assignment_submissions
		WHERE user_uuid = $1 AND status = $2
	`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, userID, domain.StatusPending); err != nil {
		r.logger.Error("Failed to count pending submissions", "userId", userID, "error", err)
		return 0, fmt.Errorf("failed to count pending submissions: %w", err)
	}

	return count, nil
}

// CountCorrectByUser counts distinct assignments the user has solved
func (r *SubmissionRepository) CountCorrectByUser(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT programming_assignment_id)
		FROM programming_assignment_submissions
		WHERE user_uuid = $1 AND correct = TRUE
	`

	var count int64
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		r.logger.Error("Failed to count correct submissions", "userId", userID, "error", err)
		return 0, fmt.Errorf("failed to count correct submissions: %w", err)
	}

	return count, nil
}

// List retrieves submissions page by page, most recent first
func (r *SubmissionRepository) List(ctx context.Context, limit, offset int) ([]domain.Submission, error) {
	query := `
		SELECT id, user_uuid, programming_assignment_id, code, status,
			   grader_feedback, correct, last_updated
		FROM programming_assignment_submissions
		ORDER BY last_updated DESC
		LIMIT $1 OFFSET $2
	`

	submissions := make([]domain.Submission, 0)
	if err := r.db.SelectContext(ctx, &submissions, query, limit, offset); err != nil {
		r.logger.Error("Failed to list submissions", "error", err)
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}

	return submissions, nil
}

// DeleteByID removes a submission, reporting whether a row was deleted
func (r *SubmissionRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	query := `DELETE FROM programming_assignment_submissions WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete submission", "submissionId", id, "error", err)
		return false, fmt.Errorf("failed to delete submission: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}

	return affected > 0, nil
}

// GetAssignmentByOrder retrieves the assignment at a position in the course sequence
func (r *SubmissionRepository) GetAssignmentByOrder(ctx context.Context, order int64) (*domain.Assignment, error) {
	query := `
		SELECT id, title, assignment_order, handout, test_code
		FROM programming_assignments
		WHERE assignment_order = $1
	`

	var assignment domain.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get assignment by order", "order", order, "error", err)
		return nil, fmt.Errorf("failed to get assignment by order: %w", err)
	}

	return &assignment, nil
}
