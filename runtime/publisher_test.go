package runtime

import (
	"context"
	"log/slog"
	"testing"

	"forum-lab/domain/event"
	"forum-lab/observability"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func drain(events chan event.DomainEvent) []event.DomainEvent {
	var out []event.DomainEvent
	for {
		select {
		case e := <-events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func TestPublisher_Reaches_Every_Session_Of_Target_Users(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	monitor := observability.NewMonitor(slog.Default())
	publisher := NewPublisher(slog.Default(), registry, monitor)

	alice := uuid.New()
	bob := uuid.New()
	clara := uuid.New()

	aliceLaptop := NewSession(8)
	alicePhone := NewSession(8)
	bobSession := NewSession(8)
	claraSession := NewSession(8)
	registry.Subscribe(alice, aliceLaptop)
	registry.Subscribe(alice, alicePhone)
	registry.Subscribe(bob, bobSession)
	registry.Subscribe(clara, claraSession)

	payload := event.NewMessage{MessageID: uuid.NewString(), Content: "hello"}
	publisher.Publish(context.Background(), payload, alice, bob)

	// Every session of both participants got it once.
	req.Equal([]event.DomainEvent{payload}, drain(aliceLaptop.Events))
	req.Equal([]event.DomainEvent{payload}, drain(alicePhone.Events))
	req.Equal([]event.DomainEvent{payload}, drain(bobSession.Events))

	// An uninvolved user sees nothing.
	req.Empty(drain(claraSession.Events))

	// The delivery counters saw one publish reaching three sessions.
	stats := monitor.GetLatest()
	req.Equal(uint64(1), stats.EventsPublished)
	req.Equal(uint64(3), stats.SinksReached)
	req.Zero(stats.DeliveryErrors)
}

func TestPublisher_Offline_User_Is_Skipped(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	publisher := NewPublisher(slog.Default(), registry, observability.NewMonitor(slog.Default()))

	online := uuid.New()
	offline := uuid.New()
	session := NewSession(8)
	registry.Subscribe(online, session)

	payload := event.NewMessage{MessageID: uuid.NewString()}
	publisher.Publish(context.Background(), payload, online, offline)

	req.Len(drain(session.Events), 1)
}

func TestSession_Full_Buffer_Drops_Instead_Of_Blocking(t *testing.T) {
	req := require.New(t)
	session := NewSession(1)

	first := event.NewMessage{MessageID: uuid.NewString()}
	second := event.NewMessage{MessageID: uuid.NewString()}
	req.NoError(session.Consume(context.Background(), first))
	// The buffer is full, Consume must return without delivering.
	req.NoError(session.Consume(context.Background(), second))

	delivered := drain(session.Events)
	req.Equal([]event.DomainEvent{first}, delivered)
}

func TestSession_Cancelled_Context(t *testing.T) {
	req := require.New(t)
	session := NewSession(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context never panics the publish path; the event is either
	// dropped or refused with the context error.
	err := session.Consume(ctx, event.NewMessage{MessageID: uuid.NewString()})
	if err != nil {
		req.ErrorIs(err, context.Canceled)
	}
}
