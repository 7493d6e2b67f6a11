package errs

import "errors"

var (
	// SubmissionNotFound means a commit targeted an id that does not exist.
	SubmissionNotFound = errors.New("submission not found")

	// AlreadySettled means a check-and-set commit lost the race: another
	// writer already moved the submission out of pending.
	AlreadySettled = errors.New("submission already settled")

	// NoMessage means a blocking stream read timed out with nothing to deliver.
	NoMessage = errors.New("no message available")

	// GroupMissing means the consumer group reference is invalid, typically
	// because the backing stream was reset. The caller should recreate the
	// group and retry.
	GroupMissing = errors.New("consumer group missing")

	// ExecutionFailed is the opaque sandbox failure: some step of the
	// build/run/extract protocol did not complete.
	ExecutionFailed = errors.New("sandbox execution failed")

	PendingSubmissionExists = errors.New("user already has a submission in grading")
	NotSubmissionOwner      = errors.New("submission belongs to another user")
	NotMostRecent           = errors.New("only the most recent submission can be deleted")
)
