package runtime

import (
	"context"

	"forum-lab/domain/event"
)

// Session is the buffered sink behind one live connection. The transport
// layer drains Events and pushes each payload to its client.
type Session struct {
	Events chan event.DomainEvent
}

func NewSession(bufferSize int) *Session {
	return &Session{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume hands the event to the connection's channel. A full buffer drops
// the event instead of blocking the publisher: delivery here is best effort
// and the client re-syncs from the store anyway.
func (s *Session) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
