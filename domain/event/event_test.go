package event

import (
	"encoding/json"
	"testing"
	"time"

	"forum-lab/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestFromMessage_Wire_Payload(t *testing.T) {
	req := require.New(t)
	message := domain.Message{
		ID:         uuid.New(),
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Content:    "see you at noon",
		CreatedAt:  time.Date(2025, 3, 14, 9, 26, 53, 987654321, time.UTC),
	}

	payload := FromMessage(message, "alice")

	req.Equal("new_message", payload.Name())
	req.Equal(message.ID.String(), payload.MessageID)
	req.Equal(message.SenderID.String(), payload.SenderID)
	req.Equal(message.ReceiverID.String(), payload.ReceiverID)
	req.Equal("alice", payload.SenderUsername)
	// Seconds precision, no zone suffix: what the clients parse.
	req.Equal("2025-03-14 09:26:53", payload.CreatedAt)

	data, err := json.Marshal(payload)
	req.NoError(err)
	for _, field := range []string{
		`"message_id"`, `"sender_id"`, `"receiver_id"`,
		`"content"`, `"created_at"`, `"sender_username"`,
	} {
		req.Contains(string(data), field)
	}
}
