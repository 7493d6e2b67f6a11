package submissionrepo

import "github.com/jmoiron/sqlx"

var schema = `
CREATE TABLE IF NOT EXISTS programming_assignments (
    id BIGSERIAL PRIMARY KEY,
    title VARCHAR(255) NOT NULL,
    assignment_order BIGINT NOT NULL,
    handout TEXT NOT NULL DEFAULT '',
    test_code TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS programming_assignment_submissions (
    id BIGSERIAL PRIMARY KEY,
    programming_assignment_id BIGINT NOT NULL REFERENCES programming_assignments (id),
    code TEXT NOT NULL,
    user_uuid VARCHAR(255) NOT NULL,
    status VARCHAR(32) NOT NULL DEFAULT 'pending',
    grader_feedback TEXT NOT NULL DEFAULT '',
    correct BOOLEAN NOT NULL DEFAULT FALSE,
    last_updated TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_submissions_status_updated
    ON programming_assignment_submissions (status, last_updated);
CREATE INDEX IF NOT EXISTS idx_submissions_user
    ON programming_assignment_submissions (user_uuid);
`

// Migrate creates the grading tables if they do not exist yet
func Migrate(db *sqlx.DB) {
	db.MustExec(schema)
}
