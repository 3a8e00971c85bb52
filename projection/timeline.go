// Package projection builds local views from observed realtime events.
// It consumes events and never touches domain state or the stores.
package projection

import (
	"context"
	"sync"

	"forum-lab/domain/event"
)

// Timeline is a client-side view of one user's incoming messages, in
// arrival order. Delivery is at most once per session, but a client that
// reconnects may replay, so duplicates are dropped by message id.
type Timeline struct {
	Owner string

	mu       sync.Mutex
	messages []event.NewMessage
	seen     map[string]struct{}
}

func NewTimeline(owner string) *Timeline {
	return &Timeline{
		Owner: owner,
		seen:  make(map[string]struct{}),
	}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.NewMessage:
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.seen[evt.MessageID]; ok {
			return nil
		}
		t.seen[evt.MessageID] = struct{}{}
		t.messages = append(t.messages, evt)
	}
	return nil
}

// Messages snapshots the current view.
func (t *Timeline) Messages() []event.NewMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]event.NewMessage, len(t.messages))
	copy(out, t.messages)
	return out
}
