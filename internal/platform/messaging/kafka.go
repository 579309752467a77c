package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docvote/contexts/community-experience/document-voting/ports"
)

const (
	subscriberBuffer    = 128
	maxDeliveryAttempts = 3
	redeliveryBackoff   = 50 * time.Millisecond
)

// Kafka is the event bus used by the outbox relay and the event consumers.
// Delivery is in-process and follows consumer group semantics: every group
// subscribed to a topic sees each event once, and members of one group take
// turns.
type Kafka struct {
	mu      sync.RWMutex
	brokers []string
	topics  map[string]map[string]*consumerGroup
	logger  *slog.Logger
}

type consumerGroup struct {
	members []chan ports.EventEnvelope
	next    int
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		brokers: append([]string(nil), brokers...),
		topics:  make(map[string]map[string]*consumerGroup),
		logger:  logger,
	}, nil
}

// Publish hands the event to one member of every group subscribed to topic.
// A member whose buffer is full misses the event.
func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	targets := k.pick(topic)
	for group, member := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case member <- event:
		default:
			k.logger.Warn("dropping event for slow consumer",
				"event", "kafka_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", group,
				"event_id", event.EventID,
			)
		}
	}

	k.logger.Info("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"groups", len(targets),
	)
	return nil
}

// Subscribe joins consumerGroup on topic and runs handler for each event the
// group assigns to this member until ctx is cancelled.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	ch := k.join(topic, consumerGroup)
	k.logger.Info("consumer joined",
		"event", "kafka_consumer_joined",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", consumerGroup,
		"brokers", k.brokers,
	)

	go func() {
		defer k.leave(topic, consumerGroup, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				k.deliver(ctx, topic, consumerGroup, event, handler)
			}
		}
	}()
	return nil
}

// deliver runs handler for event, redelivering after a failure up to
// maxDeliveryAttempts times.
func (k *Kafka) deliver(
	ctx context.Context,
	topic string,
	consumerGroup string,
	event ports.EventEnvelope,
	handler func(context.Context, ports.EventEnvelope) error,
) {
	for attempt := 1; attempt <= maxDeliveryAttempts; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return
		}
		k.logger.Error("consumer handler failed",
			"event", "kafka_consume_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"consumer_group", consumerGroup,
			"event_id", event.EventID,
			"event_type", event.EventType,
			"attempt", attempt,
			"error", err.Error(),
		)
		if attempt == maxDeliveryAttempts {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * redeliveryBackoff):
		}
	}
}

// SubscriberCount reports active members across all groups on topic.
func (k *Kafka) SubscriberCount(topic string) int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	count := 0
	for _, group := range k.topics[topic] {
		count += len(group.members)
	}
	return count
}

func (k *Kafka) pick(topic string) map[string]chan ports.EventEnvelope {
	k.mu.Lock()
	defer k.mu.Unlock()
	targets := make(map[string]chan ports.EventEnvelope, len(k.topics[topic]))
	for name, group := range k.topics[topic] {
		if len(group.members) == 0 {
			continue
		}
		group.next %= len(group.members)
		targets[name] = group.members[group.next]
		group.next++
	}
	return targets
}

func (k *Kafka) join(topic string, name string) chan ports.EventEnvelope {
	k.mu.Lock()
	defer k.mu.Unlock()
	groups, ok := k.topics[topic]
	if !ok {
		groups = make(map[string]*consumerGroup)
		k.topics[topic] = groups
	}
	group, ok := groups[name]
	if !ok {
		group = &consumerGroup{}
		groups[name] = group
	}
	ch := make(chan ports.EventEnvelope, subscriberBuffer)
	group.members = append(group.members, ch)
	return ch
}

func (k *Kafka) leave(topic string, name string, target chan ports.EventEnvelope) {
	k.mu.Lock()
	defer k.mu.Unlock()

	group, ok := k.topics[topic][name]
	if !ok {
		return
	}
	filtered := make([]chan ports.EventEnvelope, 0, len(group.members))
	for _, member := range group.members {
		if member != target {
			filtered = append(filtered, member)
		}
	}
	if len(filtered) == 0 {
		delete(k.topics[topic], name)
		return
	}
	group.members = filtered
}

var _ ports.EventPublisher = (*Kafka)(nil)
var _ ports.EventSubscriber = (*Kafka)(nil)
