package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/order-notifier/internal/domain"
	"github.com/kursadbilgin/order-notifier/internal/gateway"
	"github.com/kursadbilgin/order-notifier/internal/observability"
	"github.com/kursadbilgin/order-notifier/internal/queue"
	"github.com/kursadbilgin/order-notifier/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// WorkerService drives the notification side of the pipeline: it subscribes
// to the order event queue and, per delivery, renders the SMS text, waits on
// the send rate limiter, and calls the gateway. The returned error (or nil)
// is what the consumer translates into ack, requeue, or dead-letter.
type WorkerService struct {
	consumer    queue.Consumer
	gateway     gateway.Gateway
	rateLimiter ratelimit.RateLimiter
	senderID    string
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewWorkerService(
	consumer queue.Consumer,
	gw gateway.Gateway,
	rateLimiter ratelimit.RateLimiter,
	senderID string,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if senderID == "" {
		return nil, fmt.Errorf("sender id is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:    consumer,
		gateway:     gw,
		rateLimiter: rateLimiter,
		senderID:    senderID,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

// Start runs the consume loops until context cancellation. Each loop handles
// deliveries one at a time in broker order; ordering holds within a loop, not
// across loops.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.WorkQueueName),
			)

			err := s.consumer.Consume(groupCtx, s.processEvent)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processEvent(ctx context.Context, event queue.OrderEvent) error {
	if s.metrics != nil {
		s.metrics.IncWorkerInFlight()
		defer s.metrics.DecWorkerInFlight()
	}

	message := domain.RenderOrderNotification(event.Item, event.Amount)

	if err := s.rateLimiter.Wait(ctx, s.senderID); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	sendStart := s.now()
	resp, sendErr := s.gateway.Send(ctx, event.RecipientPhone, message)
	if s.metrics != nil {
		s.metrics.ObserveSMSSendDuration(s.now().Sub(sendStart))
	}

	if sendErr != nil {
		s.recordSendFailure(event, sendErr)
		return fmt.Errorf("send notification for order %d: %w", event.OrderID, sendErr)
	}

	if s.metrics != nil {
		s.metrics.IncNotificationSent()
	}
	s.logger.Info("notification sent",
		zap.Int64("orderId", event.OrderID),
		zap.String("recipient", event.RecipientPhone),
		zap.String("providerMessageId", resp.MessageID),
	)

	return nil
}

func (s *WorkerService) recordSendFailure(event queue.OrderEvent, sendErr error) {
	transient := gateway.IsTransient(sendErr)
	if s.metrics != nil {
		if transient {
			s.metrics.IncNotificationRequeued()
		} else {
			s.metrics.IncNotificationRejected(rejectionReason(sendErr))
		}
	}

	s.logger.Warn("notification send failed",
		zap.Int64("orderId", event.OrderID),
		zap.String("recipient", event.RecipientPhone),
		zap.Bool("transient", transient),
		zap.Error(sendErr),
	)
}

func rejectionReason(err error) string {
	var gatewayErr *gateway.GatewayError
	if errors.As(err, &gatewayErr) {
		return "gateway_rejection"
	}
	return "permanent_error"
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}
