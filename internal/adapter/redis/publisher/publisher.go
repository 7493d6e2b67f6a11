package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"gitlab.com/grader-api/internal/config"
	"gitlab.com/grader-api/internal/core/ports/primary"
	"gitlab.com/grader-api/internal/core/ports/secondary"
	"gitlab.com/grader-api/internal/domain"
)

var _ secondary.EventPublisher = (*EventPublisher)(nil)

// EventPublisher pushes settled grading outcomes over Redis pub/sub: one
// channel per user plus the shared admin channel. The websocket relay
// subscribes on the other side; delivery to viewers is best-effort.
type EventPublisher struct {
	redisClient *redis.Client
	cfg         *config.GraderConfig
	logger      primary.Logger
}

// NewEventPublisher creates a new Redis event publisher
func NewEventPublisher(redisClient *redis.Client, cfg *config.GraderConfig, logger primary.Logger) *EventPublisher {
	return &EventPublisher{
		redisClient: redisClient,
		cfg:         cfg,
		logger:      logger,
	}
}

// Publish sends the event to the user's channel and the admin channel
func (p *EventPublisher) Publish(ctx context.Context, event *domain.GradingEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal grading event: %w", err)
	}

	userChannel := fmt.Sprintf(p.cfg.UserChannelFm, event.UserID)
	received, err := p.redisClient.Publish(ctx, userChannel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", userChannel, err)
	}
	p.logger.Debug("Published grading result", "channel", userChannel, "receivers", received)

	if err := p.redisClient.Publish(ctx, p.cfg.AdminChannel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.cfg.AdminChannel, err)
	}

	return nil
}
