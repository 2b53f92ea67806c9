package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	contractsv1 "ballotbox/contracts/gen/events/v1"
)

const subscriberBuffer = 128

var (
	ErrBusClosed       = errors.New("event bus closed")
	// ErrConsumerLagging is returned when a consumer group's queue is full. The
	// caller keeps the event and publishes it again later.
	ErrConsumerLagging = errors.New("consumer group queue is full")
)

type groupQueue struct {
	ch      chan contractsv1.Envelope
	members int
}

// Kafka is the event bus used by the outbox relay and consumers. It keeps
// Kafka's consumer-group semantics in process: every group sees each event
// once, and members of one group share its queue.
type Kafka struct {
	mu     sync.RWMutex
	topics map[string]map[string]*groupQueue
	closed bool
	logger *slog.Logger
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cleaned := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			cleaned = append(cleaned, broker)
		}
	}
	logger.Info("event bus ready",
		"event", "kafka_bus_ready",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"brokers", strings.Join(cleaned, ","),
	)
	return &Kafka{
		topics: make(map[string]map[string]*groupQueue),
		logger: logger,
	}, nil
}

func (k *Kafka) Publish(ctx context.Context, topic string, event contractsv1.Envelope) error {
	k.mu.RLock()
	if k.closed {
		k.mu.RUnlock()
		return ErrBusClosed
	}
	queues := make([]chan contractsv1.Envelope, 0, len(k.topics[topic]))
	for _, queue := range k.topics[topic] {
		queues = append(queues, queue.ch)
	}
	k.mu.RUnlock()

	for _, queue := range queues {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case queue <- event:
		default:
			k.logger.Warn("consumer group queue full",
				"event", "kafka_publish_backpressure",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"event_id", event.EventID,
			)
			return ErrConsumerLagging
		}
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}

// Subscribe joins consumerGroup on topic and runs handler for each delivered
// event until ctx is cancelled. Handler errors are logged; the event is not
// redelivered.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, contractsv1.Envelope) error,
) error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return ErrBusClosed
	}
	groups, ok := k.topics[topic]
	if !ok {
		groups = make(map[string]*groupQueue)
		k.topics[topic] = groups
	}
	queue, ok := groups[consumerGroup]
	if !ok {
		queue = &groupQueue{ch: make(chan contractsv1.Envelope, subscriberBuffer)}
		groups[consumerGroup] = queue
	}
	queue.members++
	k.mu.Unlock()

	go func() {
		defer k.leave(topic, consumerGroup)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-queue.ch:
				if err := handler(ctx, event); err != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

func (k *Kafka) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
}

func (k *Kafka) leave(topic string, consumerGroup string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	groups := k.topics[topic]
	queue, ok := groups[consumerGroup]
	if !ok {
		return
	}
	queue.members--
	if queue.members <= 0 {
		delete(groups, consumerGroup)
	}
}
