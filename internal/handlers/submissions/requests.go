package submissions

// SubmitRequest carries a new submission. TestCode travels with the request
// because the assignment pages ship the visible harness alongside the task;
// the grader runs it as delivered.
type SubmitRequest struct {
	User         string `json:"user"`
	AssignmentID int64  `json:"id"`
	Code         string `json:"code"`
	TestCode     string `json:"testCode"`
}

// UserRequest identifies a user for the per-user read endpoints
type UserRequest struct {
	User string `json:"user"`
}
