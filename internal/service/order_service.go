package service

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/order-notifier/internal/domain"
	"github.com/kursadbilgin/order-notifier/internal/observability"
	"github.com/kursadbilgin/order-notifier/internal/queue"
	"github.com/kursadbilgin/order-notifier/internal/repository"
	"go.uber.org/zap"
)

// OrderService owns the order-creation flow: persist the order row, then
// publish the order event to the work queue exactly once. A publish failure
// surfaces to the caller; notification is best-effort but never silently
// dropped at publish time.
type OrderService struct {
	orders    repository.OrderRepository
	publisher queue.Publisher
	logger    *zap.Logger
	metrics   *observability.Metrics
}

func NewOrderService(
	orders repository.OrderRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*OrderService, error) {
	if orders == nil {
		return nil, fmt.Errorf("order repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OrderService{
		orders:    orders,
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (s *OrderService) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if order == nil {
		return nil, fmt.Errorf("%w: order is required", domain.ErrValidation)
	}
	if err := order.Validate(); err != nil {
		return nil, err
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncOrderCreated()
	}

	// The event is built from the committed row; the recipient phone comes
	// from the order, never from configuration or constants.
	event := queue.OrderEvent{
		OrderID:        order.ID,
		Item:           order.Item,
		Amount:         order.Amount,
		RecipientPhone: order.PhoneNumber,
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish order event",
			zap.Int64("orderId", order.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to publish order event: %w", err)
	}
	if s.metrics != nil {
		s.metrics.IncEventPublished()
	}

	s.logger.Info("order created and event published",
		zap.Int64("orderId", order.ID),
		zap.Int64("customerId", order.CustomerID),
	)

	return order, nil
}

func (s *OrderService) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) List(ctx context.Context, params repository.ListParams) ([]domain.Order, int64, error) {
	return s.orders.List(ctx, params)
}

func (s *OrderService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}
