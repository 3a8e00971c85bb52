package domain

import (
	"time"

	"github.com/google/uuid"
)

// Topic is a discussion thread. The author's username is denormalized at
// creation time, like every other rendered entity.
type Topic struct {
	ID             uuid.UUID
	Title          string
	Content        string
	AuthorID       uuid.UUID
	AuthorUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Post is a reply inside a topic.
type Post struct {
	ID             uuid.UUID
	TopicID        uuid.UUID
	Content        string
	AuthorID       uuid.UUID
	AuthorUsername string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
