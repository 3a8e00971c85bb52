//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"time"

	"forum-lab/domain"
	"forum-lab/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Save(message domain.Message) (domain.Message, error)
	MessagesBetween(a, b uuid.UUID) ([]domain.Message, error)
	MessagesInvolving(user uuid.UUID) ([]domain.Message, error)
	MarkAsRead(sender, receiver uuid.UUID) error
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// diskMessage is the CBOR shape of a message on disk.
type diskMessage struct {
	ID             string `cbor:"id"`
	SenderID       string `cbor:"sender_id"`
	ReceiverID     string `cbor:"receiver_id"`
	Content        string `cbor:"content"`
	ConversationID string `cbor:"conversation_id"`
	CreatedAt      int64  `cbor:"created_at"` // unix nanoseconds, UTC
	Read           bool   `cbor:"read"`
}

const msgPrefix = "msg:"

// messageKey builds "msg:{conversation_id}:{timestamp_padded}:{uuid}".
// The 19-digit zero padding keeps lexicographical order equal to
// chronological order within a conversation; the uuid suffix breaks ties
// for messages stored at the same nanosecond.
func messageKey(m domain.Message) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s",
		msgPrefix,
		m.ConversationID,
		m.CreatedAt.UnixNano(),
		m.ID,
	))
}

func conversationPrefix(conversationID string) []byte {
	return []byte(msgPrefix + conversationID + ":")
}

// Save persists a new message. A missing id is assigned here. An existing
// key means somebody is re-saving under an id already on disk; messages are
// append-only so that path is logged as suspicious before the value is
// replaced.
func (m MessageRepository) Save(message domain.Message) (domain.Message, error) {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	bytes, err := cbor.Marshal(fromDomainMessage(message))
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		key := messageKey(message)
		if _, err := txn.Get(key); err == nil {
			m.log.Warn("message id already persisted, overwriting is unusual",
				"message_id", message.ID,
				"conversation_id", message.ConversationID)
		}
		return txn.Set(key, bytes)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return message, nil
}

// MessagesBetween returns the full thread of a pair, ascending by creation
// time. The key layout makes a forward prefix scan come out already sorted,
// ties included.
func (m MessageRepository) MessagesBetween(a, b uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	prefix := conversationPrefix(domain.ConversationID(a, b))
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			message, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return messages, nil
}

// MessagesInvolving returns every message the user sent or received, in no
// particular order. The conversation aggregation works on this flat log.
func (m MessageRepository) MessagesInvolving(user uuid.UUID) ([]domain.Message, error) {
	var messages []domain.Message
	prefix := []byte(msgPrefix)
	err := m.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			message, err := decodeMessage(it.Item())
			if err != nil {
				return err
			}
			if message.Involves(user) {
				messages = append(messages, message)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return messages, nil
}

// MarkAsRead flips the read flag on every unread message sent from sender to
// receiver. The flag only moves false to true and already-read messages are
// left untouched, so calling this twice is a no-op the second time.
func (m MessageRepository) MarkAsRead(sender, receiver uuid.UUID) error {
	prefix := conversationPrefix(domain.ConversationID(sender, receiver))
	err := m.db.Update(func(txn *badger.Txn) error {
		// Badger forbids writes while an iterator is open on the same
		// transaction, so collect the rewrites first.
		type rewrite struct {
			key   []byte
			value []byte
		}
		var rewrites []rewrite
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var disk diskMessage
			err := item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			})
			if err != nil {
				it.Close()
				return err
			}
			if disk.Read || disk.SenderID != sender.String() || disk.ReceiverID != receiver.String() {
				continue
			}
			disk.Read = true
			bytes, err := cbor.Marshal(disk)
			if err != nil {
				it.Close()
				return err
			}
			rewrites = append(rewrites, rewrite{key: item.KeyCopy(nil), value: bytes})
		}
		it.Close()
		for _, rw := range rewrites {
			if err := txn.Set(rw.key, rw.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return nil
}

func decodeMessage(item *badger.Item) (domain.Message, error) {
	var disk diskMessage
	err := item.Value(func(val []byte) error {
		return cbor.Unmarshal(val, &disk)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toDomainMessage(disk)
}

func fromDomainMessage(m domain.Message) diskMessage {
	return diskMessage{
		ID:             m.ID.String(),
		SenderID:       m.SenderID.String(),
		ReceiverID:     m.ReceiverID.String(),
		Content:        m.Content,
		ConversationID: m.ConversationID,
		CreatedAt:      m.CreatedAt.UnixNano(),
		Read:           m.Read,
	}
}

func toDomainMessage(disk diskMessage) (domain.Message, error) {
	id, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	senderID, err := uuid.Parse(disk.SenderID)
	if err != nil {
		return domain.Message{}, err
	}
	receiverID, err := uuid.Parse(disk.ReceiverID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:             id,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        disk.Content,
		ConversationID: disk.ConversationID,
		CreatedAt:      time.Unix(0, disk.CreatedAt).UTC(),
		Read:           disk.Read,
	}, nil
}
