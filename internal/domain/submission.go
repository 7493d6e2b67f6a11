package domain

import "time"

// SubmissionStatus represents the grading status of a submission
type SubmissionStatus string

const (
	StatusPending   SubmissionStatus = "pending"
	StatusProcessed SubmissionStatus = "processed"
)

// Submission represents a student's code submission for a programming assignment
type Submission struct {
	ID           int64            `db:"id" json:"id"`
	UserID       string           `db:"user_uuid" json:"user_uuid"`
	AssignmentID int64            `db:"programming_assignment_id" json:"programming_assignment_id"`
	Code         string           `db:"code" json:"code"`
	Status       SubmissionStatus `db:"status" json:"status"`
	Feedback     string           `db:"grader_feedback" json:"grader_feedback"`
	Correct      bool             `db:"correct" json:"correct"`
	LastUpdated  time.Time        `db:"last_updated" json:"last_updated"`
}

// NewPendingSubmission creates a submission waiting to be graded
func NewPendingSubmission(userID string, assignmentID int64, code string) *Submission {
	return &Submission{
		UserID:       userID,
		AssignmentID: assignmentID,
		Code:         code,
		Status:       StatusPending,
		Feedback:     "Submission is waiting to be graded...",
		Correct:      false,
		LastUpdated:  time.Now(),
	}
}
