//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"

	"forum-lab/domain"
	"forum-lab/domain/event"

	"github.com/google/uuid"
)

// EventSink receives realtime events for a single live session.
// Implementations must never block the caller: a slow or full session drops
// the event instead of stalling the publish path.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IRegistry tracks which live sessions belong to which user. One user may
// hold several concurrent sessions; all of them share the channel named by
// the user id.
type IRegistry interface {
	Subscribe(userID uuid.UUID, sink EventSink)
	Unsubscribe(userID uuid.UUID, sink EventSink)
	SinksFor(userID uuid.UUID) []EventSink
}

// IPublisher pushes an event to every live session of the given users.
// Best effort, at most once per connected session: nothing is retried and
// offline sessions never see the event through this path.
type IPublisher interface {
	Publish(ctx context.Context, e event.DomainEvent, users ...uuid.UUID)
}

// UserDirectory resolves a user id to its record. The messaging core only
// consumes this view of the account system.
type UserDirectory interface {
	FindByID(id uuid.UUID) (domain.User, error)
}
