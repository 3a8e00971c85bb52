//go:generate go run go.uber.org/mock/mockgen -source=messaging_service.go -destination=../mocks/mock_messaging_service.go -package=mocks
package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"
	"time"
	"unicode/utf8"

	"forum-lab/contract"
	"forum-lab/domain"
	"forum-lab/domain/event"
	"forum-lab/errors"
	"forum-lab/moderation"
	"forum-lab/repositories"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessagingService interface {
	SendMessage(ctx context.Context, senderID, receiverID, content string) (domain.Message, error)
	OpenConversation(ctx context.Context, viewerID, otherID string) ([]domain.Message, error)
	ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error)
	Connect(userID string, sink contract.EventSink) error
	Disconnect(userID string, sink contract.EventSink) error
}

type MessagingService struct {
	log              *slog.Logger
	messages         repositories.IMessageRepository
	users            contract.UserDirectory
	registry         contract.IRegistry
	publisher        contract.IPublisher
	moderator        *moderation.Moderator
	maxContentLength int
}

func NewMessagingService(log *slog.Logger, messages repositories.IMessageRepository,
	users contract.UserDirectory, registry contract.IRegistry,
	publisher contract.IPublisher, moderator *moderation.Moderator,
	maxContentLength int) *MessagingService {
	return &MessagingService{
		log:              log,
		messages:         messages,
		users:            users,
		registry:         registry,
		publisher:        publisher,
		moderator:        moderator,
		maxContentLength: maxContentLength,
	}
}

// SendMessage validates, persists and publishes one private message.
// Validation failures never reach the store. The publish step is best
// effort: once Save returns, the send has succeeded whatever happens to the
// live sessions.
func (s *MessagingService) SendMessage(ctx context.Context, senderID, receiverID, content string) (domain.Message, error) {
	sender, err := parseID(senderID)
	if err != nil {
		return domain.Message{}, err
	}
	receiver, err := parseID(receiverID)
	if err != nil {
		return domain.Message{}, err
	}
	if sender == receiver {
		return domain.Message{}, errors.ErrSelfConversation
	}
	if content == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > s.maxContentLength {
		return domain.Message{}, errors.ErrContentTooLong
	}

	senderUser, err := s.users.FindByID(sender)
	if err != nil {
		return domain.Message{}, err
	}
	if _, err := s.users.FindByID(receiver); err != nil {
		return domain.Message{}, err
	}

	censored := s.moderator.Censor(content)
	if censored != content {
		s.log.Warn("message content censored",
			"sender_id", sender,
			"lang", moderation.Language(content))
	}

	message := domain.Message{
		ID:             uuid.New(),
		SenderID:       sender,
		ReceiverID:     receiver,
		Content:        censored,
		ConversationID: domain.ConversationID(sender, receiver),
		CreatedAt:      time.Now().UTC(),
		Read:           false,
	}
	saved, err := s.messages.Save(message)
	if err != nil {
		return domain.Message{}, err
	}

	s.publisher.Publish(ctx, event.FromMessage(saved, senderUser.Username), sender, receiver)
	return saved, nil
}

// OpenConversation returns the full thread with the counterpart, oldest
// first, and marks everything the counterpart sent to the viewer as read.
// A failed read-mark does not hide the thread; it is logged and the unread
// counters will catch up on the next open.
func (s *MessagingService) OpenConversation(ctx context.Context, viewerID, otherID string) ([]domain.Message, error) {
	viewer, err := parseID(viewerID)
	if err != nil {
		return nil, err
	}
	other, err := parseID(otherID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.FindByID(other); err != nil {
		return nil, err
	}

	thread, err := s.messages.MessagesBetween(viewer, other)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkAsRead(other, viewer); err != nil {
		s.log.Error("failed to mark conversation as read",
			"viewer_id", viewer,
			"other_id", other,
			"error", err)
	}
	return thread, nil
}

// ListConversations rebuilds the inbox from the flat message log: filter the
// user's messages, group them per conversation, keep each group's latest
// message, resolve the counterpart, count what is still unread, then order
// by recency. Nothing is cached, the result always reflects the store.
func (s *MessagingService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	user, err := parseID(userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.MessagesInvolving(user)
	if err != nil {
		return nil, err
	}

	groups := lo.GroupBy(messages, func(m domain.Message) string {
		return m.ConversationID
	})

	conversations := make([]domain.Conversation, 0, len(groups))
	for conversationID, group := range groups {
		last := lo.MaxBy(group, func(a, b domain.Message) bool {
			return a.After(b)
		})
		otherID := last.Counterpart(user)
		other, err := s.users.FindByID(otherID)
		if stderrors.Is(err, errors.ErrUserNotFound) {
			// The counterpart account no longer resolves. The row is
			// dropped, matching the historical behavior of this view.
			s.log.Warn("skipping conversation with unresolvable counterpart",
				"conversation_id", conversationID,
				"other_id", otherID)
			continue
		}
		if err != nil {
			return nil, err
		}

		unread := lo.CountBy(group, func(m domain.Message) bool {
			return m.ReceiverID == user && !m.Read
		})
		conversations = append(conversations, domain.Conversation{
			ID:                   conversationID,
			OtherUserID:          other.ID,
			OtherUsername:        other.Username,
			LastMessageContent:   last.Content,
			LastMessageTimestamp: last.CreatedAt,
			UnreadCount:          unread,
		})
	}

	sort.Slice(conversations, func(i, j int) bool {
		a, b := conversations[i], conversations[j]
		if !a.LastMessageTimestamp.Equal(b.LastMessageTimestamp) {
			return a.LastMessageTimestamp.After(b.LastMessageTimestamp)
		}
		return a.ID < b.ID
	})
	return conversations, nil
}

// Connect joins the user's realtime channel. Every live session of a user
// subscribes under the same id, so a publish reaches all of them.
func (s *MessagingService) Connect(userID string, sink contract.EventSink) error {
	user, err := parseID(userID)
	if err != nil {
		return err
	}
	s.registry.Subscribe(user, sink)
	return nil
}

func (s *MessagingService) Disconnect(userID string, sink contract.EventSink) error {
	user, err := parseID(userID)
	if err != nil {
		return err
	}
	s.registry.Unsubscribe(user, sink)
	return nil
}

// parseID turns an externally supplied identifier into a uuid, mapping any
// malformed input onto the single identifier error the callers surface.
func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidIdentifier
	}
	return parsed, nil
}
