package domain

// Assignment represents a programming assignment with its hidden test harness.
// The pipeline only ever reads TestCode; everything else serves the API.
type Assignment struct {
	ID              int64  `db:"id" json:"id"`
	Title           string `db:"title" json:"title"`
	AssignmentOrder int64  `db:"assignment_order" json:"assignment_order"`
	Handout         string `db:"handout" json:"handout"`
	TestCode        string `db:"test_code" json:"test_code"`
}
