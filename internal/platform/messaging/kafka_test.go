package messaging

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"docvote/contexts/community-experience/document-voting/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, slog.Default())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	require.NoError(t, bus.Subscribe(ctx, "user.deleted", "cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, "user.deleted", ports.EventEnvelope{EventID: "evt-1"}))

	select {
	case event := <-received:
		assert.Equal(t, "evt-1", event.EventID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.EventEnvelope, 1)
	require.NoError(t, bus.Subscribe(ctx, "a", "cg", func(_ context.Context, event ports.EventEnvelope) error {
		received <- event
		return nil
	}))
	require.NoError(t, bus.Publish(ctx, "b", ports.EventEnvelope{EventID: "evt-1"}))

	select {
	case <-received:
		t.Fatal("unexpected delivery")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFailedEventsAreRedeliveredThenDropped(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan string, 2*maxDeliveryAttempts)
	require.NoError(t, bus.Subscribe(ctx, "t", "cg", func(_ context.Context, event ports.EventEnvelope) error {
		calls <- event.EventID
		return errors.New("boom")
	}))
	require.NoError(t, bus.Publish(ctx, "t", ports.EventEnvelope{EventID: "1"}))
	require.NoError(t, bus.Publish(ctx, "t", ports.EventEnvelope{EventID: "2"}))

	for _, want := range []string{"1", "1", "1", "2", "2", "2"} {
		select {
		case got := <-calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("event %s was not delivered", want)
		}
	}
}

func TestRedeliveryStopsAfterSuccess(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := make(chan int, maxDeliveryAttempts)
	count := 0
	require.NoError(t, bus.Subscribe(ctx, "t", "cg", func(context.Context, ports.EventEnvelope) error {
		count++
		attempts <- count
		if count == 1 {
			return errors.New("connection reset")
		}
		return nil
	}))
	require.NoError(t, bus.Publish(ctx, "t", ports.EventEnvelope{EventID: "1"}))

	for _, want := range []int{1, 2} {
		select {
		case got := <-attempts:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("attempt %d did not run", want)
		}
	}
	select {
	case got := <-attempts:
		t.Fatalf("unexpected attempt %d after success", got)
	case <-time.After(3 * redeliveryBackoff):
	}
}

func TestCancelledSubscriptionIsRemoved(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, bus.Subscribe(ctx, "t", "cg", func(context.Context, ports.EventEnvelope) error { return nil }))
	assert.Equal(t, 1, bus.SubscriberCount("t"))

	cancel()
	assert.Eventually(t, func() bool { return bus.SubscriberCount("t") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestEveryGroupReceivesEachEvent(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := make(chan string, 1)
	second := make(chan string, 1)
	require.NoError(t, bus.Subscribe(ctx, "t", "cg-1", func(_ context.Context, event ports.EventEnvelope) error {
		first <- event.EventID
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx, "t", "cg-2", func(_ context.Context, event ports.EventEnvelope) error {
		second <- event.EventID
		return nil
	}))
	require.NoError(t, bus.Publish(ctx, "t", ports.EventEnvelope{EventID: "evt-1"}))

	for _, ch := range []chan string{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "evt-1", got)
		case <-time.After(2 * time.Second):
			t.Fatal("event was not delivered to every group")
		}
	}
}

func TestGroupMembersShareEvents(t *testing.T) {
	bus, err := NewKafka(nil, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	delivered := make(chan string, 4)
	for _, member := range []string{"a", "b"} {
		member := member
		require.NoError(t, bus.Subscribe(ctx, "t", "cg", func(context.Context, ports.EventEnvelope) error {
			delivered <- member
			return nil
		}))
	}
	assert.Equal(t, 2, bus.SubscriberCount("t"))

	require.NoError(t, bus.Publish(ctx, "t", ports.EventEnvelope{EventID: "1"}))
	require.NoError(t, bus.Publish(ctx, "t", ports.EventEnvelope{EventID: "2"}))

	seen := map[string]int{}
	for i := 0; i < 2; i++ {
		select {
		case member := <-delivered:
			seen[member]++
		case <-time.After(2 * time.Second):
			t.Fatal("event was not delivered")
		}
	}
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, seen)

	select {
	case member := <-delivered:
		t.Fatalf("unexpected extra delivery to %s", member)
	case <-time.After(50 * time.Millisecond):
	}
}
