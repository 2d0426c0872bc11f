package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConsumer is a blocking single-stream consumer over the work queue.
// Each consume session runs on its own channel; when the session dies the
// consumer reconnects with backoff and resubscribes. Unacked deliveries from a
// dead channel are requeued by the broker, so no delivery tag outlives its
// session.
type RabbitMQConsumer struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger

	// test seams
	session func(ctx context.Context, handler EventHandler) error
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &RabbitMQConsumer{
		client:   client,
		prefetch: prefetch,
		logger:   logger,
		sleep:    sleepWithContext,
	}
	c.session = c.consumeOnce
	return c
}

// Consume blocks until ctx is canceled, restarting the consume session with
// exponential backoff after connection or channel failures.
func (c *RabbitMQConsumer) Consume(ctx context.Context, handler EventHandler) error {
	if c == nil || c.session == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if handler == nil {
		return fmt.Errorf("event handler is required")
	}

	backoff := reconnectBackoff
	for {
		err := c.session(ctx, handler)
		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			backoff = reconnectBackoff
			continue
		}

		c.logger.Warn("consume session ended, reconnecting",
			zap.String("queue", WorkQueueName),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		if err := c.sleep(ctx, backoff); err != nil {
			return nil
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (c *RabbitMQConsumer) consumeOnce(ctx context.Context, handler EventHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck // best-effort channel close

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		WorkQueueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", WorkQueueName, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			if err := c.handleDelivery(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

// handleDelivery settles exactly one delivery. The ack happens only after the
// handler returns nil; a crash mid-handler leaves the message unacked for
// broker redelivery rather than losing it.
func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler EventHandler) error {
	event, err := DecodeOrderEvent(d.Body)
	if err != nil {
		// A structurally invalid message never becomes valid by redelivery;
		// reject without requeue so it dead-letters instead of looping.
		c.logger.Warn("rejecting malformed order event",
			zap.String("messageId", d.MessageId),
			zap.ByteString("body", d.Body),
			zap.Error(err),
		)
		if rejectErr := d.Reject(false); rejectErr != nil {
			return fmt.Errorf("failed to reject malformed message: %w", rejectErr)
		}
		return nil
	}

	if err := handler(ctx, event); err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			// Shutdown interrupted the handler. Leave the delivery unsettled;
			// closing the channel returns it to the queue for redelivery.
			return fmt.Errorf("handler interrupted by shutdown: %w", err)
		}

		if isPermanent(err) {
			c.logger.Warn("rejecting order event after permanent failure",
				zap.Int64("orderId", event.OrderID),
				zap.Error(err),
			)
			if rejectErr := d.Reject(false); rejectErr != nil {
				return fmt.Errorf("handler failed permanently and reject failed: %w", rejectErr)
			}
			return nil
		}

		c.logger.Warn("requeueing order event after transient failure",
			zap.Int64("orderId", event.OrderID),
			zap.Error(err),
		)
		if nackErr := d.Nack(false, true); nackErr != nil {
			return fmt.Errorf("handler failed and nack failed: %w", nackErr)
		}
		return nil
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack delivery: %w", err)
	}

	return nil
}

func (c *RabbitMQConsumer) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p) && p.Permanent()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
