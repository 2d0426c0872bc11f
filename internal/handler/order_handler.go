package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/kursadbilgin/order-notifier/internal/domain"
	"github.com/kursadbilgin/order-notifier/internal/observability"
	"github.com/kursadbilgin/order-notifier/internal/repository"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type OrderService interface {
	Create(ctx context.Context, order *domain.Order) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context, params repository.ListParams) ([]domain.Order, int64, error)
}

type OrderHandler struct {
	service OrderService
}

func NewOrderHandler(service OrderService) (*OrderHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("order service is required")
	}
	return &OrderHandler{service: service}, nil
}

func RegisterOrderRoutes(router fiber.Router, service OrderService) error {
	h, err := NewOrderHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/orders", h.CreateOrder)
	v1.Get("/orders/:id", h.GetOrder)
	v1.Get("/orders", h.ListOrders)

	return nil
}

type createOrderRequest struct {
	Item        string `json:"item"`
	Amount      int64  `json:"amount"`
	PhoneNumber string `json:"phoneNumber"`
	CustomerID  int64  `json:"customerId"`
}

type orderResponse struct {
	ID          int64     `json:"id"`
	Item        string    `json:"item"`
	Amount      int64     `json:"amount"`
	PhoneNumber string    `json:"phoneNumber"`
	CustomerID  int64     `json:"customerId"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

type createOrderResponse struct {
	orderResponse
	Notification string `json:"notification"`
}

type listOrdersResponse struct {
	Data []orderResponse `json:"data"`
	Meta listMeta        `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	order := domain.Order{
		Item:        strings.TrimSpace(req.Item),
		Amount:      req.Amount,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		CustomerID:  req.CustomerID,
	}

	ctx := observability.WithCorrelationID(c.Context(), requestCorrelationID(c))
	created, err := h.service.Create(ctx, &order)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(createOrderResponse{
		orderResponse: toOrderResponse(created),
		Notification:  "queued",
	})
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Params("id")), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order id")
	}

	order, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *fiber.Ctx) error {
	params, err := parseListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	orders, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]orderResponse, 0, len(orders))
	for i := range orders {
		data = append(data, toOrderResponse(&orders[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listOrdersResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseListParams(c *fiber.Ctx) (repository.ListParams, error) {
	params := repository.ListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if raw := strings.TrimSpace(c.Query("customerId")); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || customerID <= 0 {
			return repository.ListParams{}, fmt.Errorf("%w: invalid customerId", domain.ErrValidation)
		}
		params.CustomerID = &customerID
	}

	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.ListParams{}, fmt.Errorf("%w: from must be RFC3339", domain.ErrValidation)
		}
		params.From = &from
	}

	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return repository.ListParams{}, fmt.Errorf("%w: to must be RFC3339", domain.ErrValidation)
		}
		params.To = &to
	}

	if params.From != nil && params.To != nil && params.To.Before(*params.From) {
		return repository.ListParams{}, fmt.Errorf("%w: to must not precede from", domain.ErrValidation)
	}

	return params, nil
}

func toOrderResponse(o *domain.Order) orderResponse {
	if o == nil {
		return orderResponse{}
	}

	return orderResponse{
		ID:          o.ID,
		Item:        o.Item,
		Amount:      o.Amount,
		PhoneNumber: o.PhoneNumber,
		CustomerID:  o.CustomerID,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func requestCorrelationID(c *fiber.Ctx) string {
	if correlationID := strings.TrimSpace(c.Get("X-Correlation-ID")); correlationID != "" {
		return correlationID
	}
	return uuid.NewString()
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
