package projection

import (
	"context"
	"testing"

	"forum-lab/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTimeline_Consume_NewMessage(t *testing.T) {
	timeline := NewTimeline("bob")
	ctx := context.Background()

	evt1 := event.NewMessage{
		MessageID:      uuid.NewString(),
		SenderUsername: "alice",
		Content:        "Hello Bob",
	}
	evt2 := event.NewMessage{
		MessageID:      uuid.NewString(),
		SenderUsername: "clara",
		Content:        "Hi Bob",
	}

	require.NoError(t, timeline.Consume(ctx, evt1))
	require.NoError(t, timeline.Consume(ctx, evt2))

	messages := timeline.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "alice", messages[0].SenderUsername)
	require.Equal(t, "clara", messages[1].SenderUsername)
}

func TestTimeline_Drops_Replayed_Messages(t *testing.T) {
	timeline := NewTimeline("bob")
	ctx := context.Background()

	evt := event.NewMessage{
		MessageID:      uuid.NewString(),
		SenderUsername: "alice",
		Content:        "delivered twice",
	}

	require.NoError(t, timeline.Consume(ctx, evt))
	require.NoError(t, timeline.Consume(ctx, evt))

	require.Len(t, timeline.Messages(), 1)
}
