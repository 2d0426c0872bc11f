package queue

import "context"

const (
	// WorkQueueName is the durable queue carrying order events.
	WorkQueueName = "order_notifications_queue"
	// DeadLetterQueueName receives poison messages and retry-exhausted deliveries.
	DeadLetterQueueName = "dlq.order_notifications"

	dlxExchangeName = "orders.dlx"
	dlxRoutingKey   = "order_notifications"

	// deliveryLimit is the broker-side redelivery cap. A message nacked with
	// requeue more than this many times is dead-lettered instead of looping.
	deliveryLimit int32 = 5
)

// Publisher publishes order events to the durable work queue.
type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// EventHandler processes one decoded order event. A nil return acknowledges
// the delivery; a permanent error rejects it without requeue; any other error
// nacks it back onto the queue.
type EventHandler func(ctx context.Context, event OrderEvent) error

// Consumer runs a blocking receive loop over the work queue.
type Consumer interface {
	Consume(ctx context.Context, handler EventHandler) error
	Close() error
}

// permanentError is implemented by errors that must not be retried.
// Typed boundary errors (gateway rejections, decode failures) satisfy it so
// the consumer can decide requeue behavior without importing their packages.
type permanentError interface {
	Permanent() bool
}
