package repositories

import (
	"log/slog"
	"testing"
	"time"

	"forum-lab/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newMessage(sender, receiver uuid.UUID, content string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        content,
		ConversationID: domain.ConversationID(sender, receiver),
		CreatedAt:      at,
	}
}

func Test_Save_And_Fetch_Thread_In_Order(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	alice := uuid.New()
	bob := uuid.New()
	at := time.Now().UTC().Truncate(time.Nanosecond)
	messages := []domain.Message{
		newMessage(alice, bob, "salut", at),
		newMessage(bob, alice, "hey", at.Add(1*time.Minute)),
		newMessage(alice, bob, "still around?", at.Add(2*time.Minute)),
	}
	// Save out of order, the key layout must still sort the thread.
	for _, i := range []int{2, 0, 1} {
		_, err := repository.Save(messages[i])
		req.NoError(err)
	}

	thread, err := repository.MessagesBetween(alice, bob)
	req.NoError(err)
	req.Len(thread, len(messages))
	req.Equal(messages, thread)

	// The thread is the same whichever side asks for it.
	mirrored, err := repository.MessagesBetween(bob, alice)
	req.NoError(err)
	req.Equal(thread, mirrored)
}

func Test_Fetch_Thread_Excludes_Other_Pairs(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	alice := uuid.New()
	bob := uuid.New()
	clara := uuid.New()
	at := time.Now().UTC()
	_, err := repository.Save(newMessage(alice, bob, "for bob", at))
	req.NoError(err)
	_, err = repository.Save(newMessage(alice, clara, "for clara", at))
	req.NoError(err)

	thread, err := repository.MessagesBetween(alice, bob)
	req.NoError(err)
	req.Len(thread, 1)
	req.Equal("for bob", thread[0].Content)
}

func Test_Messages_Involving_Covers_Both_Directions(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	alice := uuid.New()
	bob := uuid.New()
	clara := uuid.New()
	at := time.Now().UTC()
	_, err := repository.Save(newMessage(alice, bob, "a to b", at))
	req.NoError(err)
	_, err = repository.Save(newMessage(clara, alice, "c to a", at.Add(time.Second)))
	req.NoError(err)
	_, err = repository.Save(newMessage(bob, clara, "b to c", at.Add(2*time.Second)))
	req.NoError(err)

	involving, err := repository.MessagesInvolving(alice)
	req.NoError(err)
	req.Len(involving, 2)
	for _, m := range involving {
		req.True(m.Involves(alice))
	}
}

func Test_Mark_As_Read_Is_Directional_And_Idempotent(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	alice := uuid.New()
	bob := uuid.New()
	at := time.Now().UTC()
	_, err := repository.Save(newMessage(alice, bob, "unread one", at))
	req.NoError(err)
	_, err = repository.Save(newMessage(alice, bob, "unread two", at.Add(time.Second)))
	req.NoError(err)
	_, err = repository.Save(newMessage(bob, alice, "reply", at.Add(2*time.Second)))
	req.NoError(err)

	// Bob opens the thread: only what alice sent him flips.
	req.NoError(repository.MarkAsRead(alice, bob))

	thread, err := repository.MessagesBetween(alice, bob)
	req.NoError(err)
	req.Len(thread, 3)
	for _, m := range thread {
		if m.SenderID == alice {
			req.True(m.Read, "message from alice should be read: %s", m.Content)
		} else {
			req.False(m.Read, "bob's own reply must stay unread for alice")
		}
	}

	// A second pass changes nothing.
	req.NoError(repository.MarkAsRead(alice, bob))
	again, err := repository.MessagesBetween(alice, bob)
	req.NoError(err)
	req.Equal(thread, again)
}

func Test_Save_Assigns_Missing_ID(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	repository := NewMessageRepository(db, slog.Default())

	alice := uuid.New()
	bob := uuid.New()
	message := newMessage(alice, bob, "no id yet", time.Now().UTC())
	message.ID = uuid.Nil

	saved, err := repository.Save(message)
	req.NoError(err)
	req.NotEqual(uuid.Nil, saved.ID)
}
