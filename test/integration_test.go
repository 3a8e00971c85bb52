package test

import (
	"context"
	"testing"
	"time"

	"forum-lab/auth"
	"forum-lab/internal"
	"forum-lab/mocks"
	"forum-lab/moderation"
	"forum-lab/observability"
	"forum-lab/projection"
	"forum-lab/repositories"
	"forum-lab/runtime"
	"forum-lab/services"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("integration-secret", 24*time.Hour)
}

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)
	t.Cleanup(func() { _ = blugeWriter.Close() })

	log := internal.GetLoggerFromString("debug")
	moderator, err := moderation.NewModerator([]string{"scammer"}, '*', log)
	req.NoError(err)

	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log)
	topicRepository := repositories.NewTopicRepository(db, blugeWriter, log)

	registry := runtime.NewRegistry()
	monitor := observability.NewMonitor(log)
	publisher := runtime.NewPublisher(log, registry, monitor)

	authService := services.NewAuthService(userRepository, newTokenManager())
	forumService := services.NewForumService(log, topicRepository, userRepository, moderator, 10, 5)
	messagingService := services.NewMessagingService(log, messageRepository, userRepository,
		registry, publisher, moderator, 500)

	// 1. Two accounts register and log in.
	alice, _, err := authService.Register("alice", "alice@example.com", "ComplexPass123!")
	req.NoError(err)
	bob, _, err := authService.Register("bob", "bob@example.com", "AnotherPass456!")
	req.NoError(err)
	_, token, err := authService.Login("alice", "ComplexPass123!")
	req.NoError(err)
	req.NotEmpty(token)

	// 2. Alice opens a topic, bob replies, the topic is searchable.
	topic, err := forumService.CreateTopic(alice.ID.String(), "Welcome thread", "introduce yourself here")
	req.NoError(err)
	_, err = forumService.CreatePost(bob.ID.String(), topic.ID.String(), "hello from bob")
	req.NoError(err)
	found, total, err := forumService.SearchTopics(ctx, "welcome", 1)
	req.NoError(err)
	req.Equal(1, total)
	req.Equal(topic.ID, found[0].ID)

	// 3. Bob goes live with two consumers: a raw session and a timeline
	// projection, plus a mock to pin down the delivery count.
	ctrl := gomock.NewController(t)
	bobSession := runtime.NewSession(8)
	bobTimeline := projection.NewTimeline("bob")
	mockSink := mocks.NewMockEventSink(ctrl)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	req.NoError(messagingService.Connect(bob.ID.String(), bobSession))
	req.NoError(messagingService.Connect(bob.ID.String(), bobTimeline))
	req.NoError(messagingService.Connect(bob.ID.String(), mockSink))

	// 4. Alice messages bob; moderation masks the insult on the way in.
	sent, err := messagingService.SendMessage(ctx, alice.ID.String(), bob.ID.String(), "that seller is a scammer")
	req.NoError(err)
	req.Equal("that seller is a *******", sent.Content)

	// Every live consumer of bob got the event.
	select {
	case delivered := <-bobSession.Events:
		req.Equal("new_message", delivered.Name())
	default:
		t.Fatal("session did not receive the event")
	}
	timelineMessages := bobTimeline.Messages()
	req.Len(timelineMessages, 1)
	req.Equal("alice", timelineMessages[0].SenderUsername)

	// 5. Bob's inbox shows one unread conversation; opening it clears it.
	conversations, err := messagingService.ListConversations(ctx, bob.ID.String())
	req.NoError(err)
	req.Len(conversations, 1)
	req.Equal("alice", conversations[0].OtherUsername)
	req.Equal(1, conversations[0].UnreadCount)

	thread, err := messagingService.OpenConversation(ctx, bob.ID.String(), alice.ID.String())
	req.NoError(err)
	req.Len(thread, 1)

	conversations, err = messagingService.ListConversations(ctx, bob.ID.String())
	req.NoError(err)
	req.Zero(conversations[0].UnreadCount)

	// 6. The publish path was counted.
	stats := monitor.GetLatest()
	req.Equal(uint64(1), stats.EventsPublished)
	req.Equal(uint64(3), stats.SinksReached)
}
