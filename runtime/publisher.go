package runtime

import (
	"context"
	"log/slog"

	"forum-lab/contract"
	"forum-lab/domain/event"
	"forum-lab/observability"

	"github.com/google/uuid"
)

// Publisher fans an event out to every live session of the target users.
// Fire and forget: a publish failure never reaches the caller, a message is
// sent once it is persisted.
type Publisher struct {
	log      *slog.Logger
	registry contract.IRegistry
	monitor  *observability.Monitor
}

func NewPublisher(log *slog.Logger, registry contract.IRegistry, monitor *observability.Monitor) *Publisher {
	return &Publisher{log: log, registry: registry, monitor: monitor}
}

func (p *Publisher) Publish(ctx context.Context, e event.DomainEvent, users ...uuid.UUID) {
	p.monitor.IncrEventsPublished()
	for _, userID := range users {
		for _, sink := range p.registry.SinksFor(userID) {
			if err := sink.Consume(ctx, e); err != nil {
				p.monitor.IncrDeliveryErrors()
				p.log.Debug("event not delivered to session",
					"event", e.Name(),
					"user_id", userID,
					"error", err)
				continue
			}
			p.monitor.IncrSinksReached()
		}
	}
}
