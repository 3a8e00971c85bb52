package domain

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the derived inbox row for one counterpart. It is never
// stored: each query rebuilds it from the flat message log so it always
// reflects the store at query time.
type Conversation struct {
	ID                   string
	OtherUserID          uuid.UUID
	OtherUsername        string
	LastMessageContent   string
	LastMessageTimestamp time.Time
	UnreadCount          int
}
