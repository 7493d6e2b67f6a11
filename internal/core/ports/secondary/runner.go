package secondary

import "context"

// CodeRunner executes untrusted code plus a test harness inside an
// isolated, disposable environment and returns the harness's raw output.
//
// The key must be unique per invocation so concurrent runs cannot collide
// on image or container names. An empty output with a nil error means the
// run completed without producing feedback (by policy, an infinite loop in
// the submitted code); any protocol failure surfaces as an error wrapping
// errs.ExecutionFailed.
type CodeRunner interface {
	Run(ctx context.Context, code, testCode, key string) (string, error)
}
