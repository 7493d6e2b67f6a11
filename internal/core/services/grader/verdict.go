package grader

import (
	"strings"

	"gitlab.com/grader-api/internal/domain"
)

// SuccessMarker is the token the test harness prints when every assertion
// passed.
const SuccessMarker = "OK"

// InfiniteLoopFeedback is the verdict for a run that produced no output at
// all: the harness never got far enough to print anything, which in practice
// means the submitted code never terminated.
const InfiniteLoopFeedback = "No feedback from grader. That means your code has an infinite loop"

// Interpret maps raw grader output to a structured verdict. Total over all
// inputs: every string, including empty or truncated output, yields a
// defined result.
func Interpret(raw string) domain.Verdict {
	if raw == "" {
		return domain.Verdict{Correct: false, Feedback: InfiniteLoopFeedback}
	}
	return domain.Verdict{
		Correct:  strings.Contains(raw, SuccessMarker),
		Feedback: raw,
	}
}
