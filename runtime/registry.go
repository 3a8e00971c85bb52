// Package runtime owns the live-session state and the realtime publish path.
// It moves events around; domain rules live elsewhere.
package runtime

import (
	"sync"

	"forum-lab/contract"

	"github.com/google/uuid"
)

type sessionSet map[contract.EventSink]struct{}

// Registry maps a user id to the set of that user's live sessions. It is the
// only holder of connection state: connect/disconnect mutate it, the publish
// step reads it, nothing else touches it.
type Registry struct {
	mu      sync.RWMutex
	members map[uuid.UUID]sessionSet
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[uuid.UUID]sessionSet)}
}

// Subscribe adds one live session to the user's channel. A user connected
// from several clients ends up with several sinks under the same id, all of
// which receive every publish.
func (r *Registry) Subscribe(userID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[userID]; !ok {
		r.members[userID] = make(sessionSet)
	}
	r.members[userID][sink] = struct{}{}
}

// Unsubscribe removes a single session. The user's entry disappears with its
// last session so the map does not accumulate empty sets.
func (r *Registry) Unsubscribe(userID uuid.UUID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.members[userID]
	if !ok {
		return
	}
	delete(sessions, sink)
	if len(sessions) == 0 {
		delete(r.members, userID)
	}
}

// SinksFor snapshots the user's current sessions. Returns nil for a user
// with no live session.
func (r *Registry) SinksFor(userID uuid.UUID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions, ok := r.members[userID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(sessions))
	for sink := range sessions {
		sinks = append(sinks, sink)
	}
	return sinks
}
