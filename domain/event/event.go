// Package event defines what the realtime layer pushes to live sessions.
package event

import (
	"forum-lab/domain"
)

// CreatedAtLayout is the timestamp format the clients expect in realtime
// payloads.
const CreatedAtLayout = "2006-01-02 15:04:05"

type DomainEvent interface {
	Name() string
}

// NewMessage is emitted to both participants once a private message has been
// persisted. Field names and the CreatedAt format are part of the wire
// contract, do not rename them.
type NewMessage struct {
	MessageID      string `json:"message_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
	SenderUsername string `json:"sender_username"`
}

func (NewMessage) Name() string { return "new_message" }

// FromMessage builds the wire payload for a persisted message.
func FromMessage(m domain.Message, senderUsername string) NewMessage {
	return NewMessage{
		MessageID:      m.ID.String(),
		SenderID:       m.SenderID.String(),
		ReceiverID:     m.ReceiverID.String(),
		Content:        m.Content,
		CreatedAt:      m.CreatedAt.UTC().Format(CreatedAtLayout),
		SenderUsername: senderUsername,
	}
}
