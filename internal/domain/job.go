package domain

// JobMessage represents a grading job carried on the submission stream.
// All fields travel as strings in the stream entry; the queue adapter owns
// the conversion.
type JobMessage struct {
	SubmissionID int64
	UserID       string
	AssignmentID int64
	Code         string
	TestCode     string
}

// Verdict is the structured grading outcome derived from raw grader output
type Verdict struct {
	Correct  bool
	Feedback string
}
