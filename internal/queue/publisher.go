package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

// Publish writes one order event to the work queue with a persistent delivery
// mode, so a broker restart after the publish ack cannot lose it. The channel
// is closed after every publish; this trades throughput for a small connection
// footprint, which suits the synchronous order-creation path.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event OrderEvent) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}

	payload, err := EncodeOrderEvent(event)
	if err != nil {
		return err
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     fmt.Sprintf("order-%d", event.OrderID),
		CorrelationId: uuid.NewString(),
		Body:          payload,
	}

	if err := ch.PublishWithContext(ctx, "", WorkQueueName, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish order event to queue %q: %w", WorkQueueName, err)
	}

	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
