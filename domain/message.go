// Package domain contains core concepts of the forum system.
// This file defines private messages and conversation identity.
// Messages are immutable once created; only the Read flag moves, false to true.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message represents a private message between exactly two users.
type Message struct {
	ID             uuid.UUID
	SenderID       uuid.UUID
	ReceiverID     uuid.UUID
	Content        string
	ConversationID string
	CreatedAt      time.Time
	Read           bool
}

// ConversationID derives the canonical conversation key for a pair of users.
// The stringified ids are sorted before joining, so both directions of the
// same pair always produce the same key: ConversationID(a, b) == ConversationID(b, a).
func ConversationID(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}

// Counterpart returns the participant of the message that is not user.
func (m Message) Counterpart(user uuid.UUID) uuid.UUID {
	if m.SenderID == user {
		return m.ReceiverID
	}
	return m.SenderID
}

// Involves reports whether user is one of the two participants.
func (m Message) Involves(user uuid.UUID) bool {
	return m.SenderID == user || m.ReceiverID == user
}

// After reports whether m comes strictly after other in thread order:
// ascending CreatedAt, ties broken by id so the order is total and stable.
func (m Message) After(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.After(other.CreatedAt)
	}
	return m.ID.String() > other.ID.String()
}
