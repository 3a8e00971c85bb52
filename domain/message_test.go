package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestConversationID_Is_Commutative(t *testing.T) {
	req := require.New(t)
	for i := 0; i < 100; i++ {
		a := uuid.New()
		b := uuid.New()
		req.Equal(ConversationID(a, b), ConversationID(b, a))
	}
}

func TestConversationID_Is_Unique_Per_Pair(t *testing.T) {
	req := require.New(t)
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	req.NotEqual(ConversationID(a, b), ConversationID(a, c))
	req.NotEqual(ConversationID(a, b), ConversationID(b, c))
}

func TestConversationID_Joins_Sorted_IDs(t *testing.T) {
	req := require.New(t)
	a := uuid.New()
	b := uuid.New()

	id := ConversationID(a, b)
	low, high := a.String(), b.String()
	if low > high {
		low, high = high, low
	}
	req.Equal(low+"-"+high, id)
	req.True(strings.Contains(id, a.String()))
	req.True(strings.Contains(id, b.String()))
}

func TestMessage_Counterpart_And_Involves(t *testing.T) {
	req := require.New(t)
	alice := uuid.New()
	bob := uuid.New()
	stranger := uuid.New()
	message := Message{SenderID: alice, ReceiverID: bob}

	req.Equal(bob, message.Counterpart(alice))
	req.Equal(alice, message.Counterpart(bob))

	req.True(message.Involves(alice))
	req.True(message.Involves(bob))
	req.False(message.Involves(stranger))
}

func TestMessage_After_Orders_By_Time_Then_ID(t *testing.T) {
	req := require.New(t)
	at := time.Now().UTC()
	earlier := Message{ID: uuid.New(), CreatedAt: at}
	later := Message{ID: uuid.New(), CreatedAt: at.Add(time.Second)}

	req.True(later.After(earlier))
	req.False(earlier.After(later))

	// Same instant: the id breaks the tie, exactly one side wins.
	twinA := Message{ID: uuid.New(), CreatedAt: at}
	twinB := Message{ID: uuid.New(), CreatedAt: at}
	req.NotEqual(twinA.After(twinB), twinB.After(twinA))
}
