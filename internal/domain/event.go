package domain

// EventType discriminates first-time results from sweeper reprocessing
type EventType string

const (
	EventTypeSubmission  EventType = "submission"
	EventTypeReprocessed EventType = "reprocessed"
)

// GradingEvent is the settled outcome pushed to subscribers. The JSON field
// names match what the websocket relay and admin dashboard expect.
type GradingEvent struct {
	SubmissionID int64            `json:"id"`
	AssignmentID int64            `json:"programming_assignment_id"`
	UserID       string           `json:"user_uuid"`
	Status       SubmissionStatus `json:"status"`
	Feedback     string           `json:"grader_feedback"`
	Correct      bool             `json:"correct"`
	Code         string           `json:"code"`
	Type         EventType        `json:"type"`
}
