package secondary

import (
	"context"

	"gitlab.com/grader-api/internal/domain"
)

// EventPublisher fans a settled grading outcome out to the per-user channel
// and the shared admin channel. Delivery to viewers is best-effort; callers
// log failures and move on.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.GradingEvent) error
}
