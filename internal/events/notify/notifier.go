// Package notify publishes booking lifecycle notifications. Delivery is
// best-effort: a lost notification never fails or retries a booking.
package notify

import (
	"context"

	"meetsync/pkg/kafka"
	"meetsync/pkg/logger"
)

// Lifecycle event types published to the notifications topic.
const (
	EventConfirmed   = "meeting.confirmed"
	EventRescheduled = "meeting.rescheduled"
	EventCancelled   = "meeting.cancelled"
)

type Notifier interface {
	Notify(ctx context.Context, eventType, key string, payload any)
}

type kafkaNotifier struct {
	producer *kafka.Producer
	log      *logger.Logger
}

func NewKafkaNotifier(producer *kafka.Producer, log *logger.Logger) Notifier {
	return &kafkaNotifier{
		producer: producer,
		log:      log,
	}
}

func (n *kafkaNotifier) Notify(ctx context.Context, eventType, key string, payload any) {
	msg := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSource("meetsync").
		Build()

	if err := n.producer.Publish(ctx, msg); err != nil {
		n.log.Warn("Failed to publish notification",
			"event_type", eventType,
			"key", key,
			"error", err,
		)
		return
	}
	n.log.Debug("Notification published", "event_type", eventType, "key", key)
}

type noopNotifier struct{}

// NewNoopNotifier is used when Kafka is not configured.
func NewNoopNotifier() Notifier {
	return noopNotifier{}
}

func (noopNotifier) Notify(context.Context, string, string, any) {}
