package publisher

import (
	"context"

	"github.com/rulehub/rulehub-backend/internal/domain"
)

// Publisher delivers engagement events to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, event domain.EngagementEvent) error
	Close() error
}

// Nop drops every event. Used when RabbitMQ is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, domain.EngagementEvent) error { return nil }
func (Nop) Close() error                                          { return nil }
