package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/order-notifier/internal/domain"
	"github.com/kursadbilgin/order-notifier/internal/repository"
	"github.com/kursadbilgin/order-notifier/internal/transport"
)

type stubOrderService struct {
	createFn  func(ctx context.Context, order *domain.Order) (*domain.Order, error)
	getByIDFn func(ctx context.Context, id int64) (*domain.Order, error)
	listFn    func(ctx context.Context, params repository.ListParams) ([]domain.Order, int64, error)
}

func (s *stubOrderService) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if s.createFn == nil {
		return nil, fmt.Errorf("unexpected Create call")
	}
	return s.createFn(ctx, order)
}

func (s *stubOrderService) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if s.getByIDFn == nil {
		return nil, fmt.Errorf("unexpected GetByID call")
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubOrderService) List(ctx context.Context, params repository.ListParams) ([]domain.Order, int64, error) {
	if s.listFn == nil {
		return nil, 0, fmt.Errorf("unexpected List call")
	}
	return s.listFn(ctx, params)
}

func newTestApp(t *testing.T, service OrderService) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{ErrorHandler: transport.ErrorHandler(nil)})
	if err := RegisterOrderRoutes(app, service); err != nil {
		t.Fatalf("RegisterOrderRoutes() error = %v", err)
	}

	return app
}

func TestCreateOrderAccepted(t *testing.T) {
	t.Parallel()

	var captured *domain.Order
	service := &stubOrderService{
		createFn: func(_ context.Context, order *domain.Order) (*domain.Order, error) {
			captured = order
			created := *order
			created.ID = 42
			created.CreatedAt = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
			return &created, nil
		},
	}
	app := newTestApp(t, service)

	body, _ := json.Marshal(map[string]any{
		"item":        "Laptop",
		"amount":      1000,
		"phoneNumber": "+254700000000",
		"customerId":  7,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	if captured == nil {
		t.Fatal("service.Create was not called")
	}
	if captured.Item != "Laptop" || captured.Amount != 1000 || captured.PhoneNumber != "+254700000000" {
		t.Fatalf("captured order = %+v", captured)
	}

	var got createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != 42 {
		t.Errorf("response id = %d, want 42", got.ID)
	}
	if got.Notification != "queued" {
		t.Errorf("response notification = %q, want %q", got.Notification, "queued")
	}
}

func TestCreateOrderErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"validation", fmt.Errorf("%w: item is required", domain.ErrValidation), http.StatusBadRequest},
		{"conflict", fmt.Errorf("%w: duplicate order", domain.ErrConflict), http.StatusConflict},
		{"internal", fmt.Errorf("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			service := &stubOrderService{
				createFn: func(context.Context, *domain.Order) (*domain.Order, error) {
					return nil, tt.serviceErr
				},
			}
			app := newTestApp(t, service)

			body, _ := json.Marshal(map[string]any{
				"item":        "Laptop",
				"amount":      1000,
				"phoneNumber": "+254700000000",
			})
			req := httptest.NewRequest(http.MethodPost, "/v1/orders", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestGetOrder(t *testing.T) {
	t.Parallel()

	service := &stubOrderService{
		getByIDFn: func(_ context.Context, id int64) (*domain.Order, error) {
			if id != 42 {
				return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
			}
			return &domain.Order{ID: 42, Item: "Laptop", Amount: 1000, PhoneNumber: "+254700000000"}, nil
		},
	}
	app := newTestApp(t, service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/orders/42", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var got orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != 42 || got.Item != "Laptop" {
		t.Fatalf("response = %+v", got)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	t.Parallel()

	service := &stubOrderService{
		getByIDFn: func(_ context.Context, id int64) (*domain.Order, error) {
			return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
		},
	}
	app := newTestApp(t, service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/orders/99", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestGetOrderInvalidID(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, &stubOrderService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/orders/not-a-number", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestListOrders(t *testing.T) {
	t.Parallel()

	var gotParams repository.ListParams
	service := &stubOrderService{
		listFn: func(_ context.Context, params repository.ListParams) ([]domain.Order, int64, error) {
			gotParams = params
			return []domain.Order{
				{ID: 1, Item: "Laptop", Amount: 1000, PhoneNumber: "+254700000000", CustomerID: 7},
				{ID: 2, Item: "Phone", Amount: 500, PhoneNumber: "+254700000001", CustomerID: 7},
			}, 2, nil
		},
	}
	app := newTestApp(t, service)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/orders?customerId=7&page=1&pageSize=10", nil))
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	if gotParams.CustomerID == nil || *gotParams.CustomerID != 7 {
		t.Fatalf("list params customerID = %v, want 7", gotParams.CustomerID)
	}
	if gotParams.Page != 1 || gotParams.PageSize != 10 {
		t.Fatalf("list params = %+v", gotParams)
	}

	var got listOrdersResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got.Data) != 2 || got.Meta.Total != 2 {
		t.Fatalf("response = %+v", got)
	}
}

func TestListOrdersInvalidParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
	}{
		{"page below one", "/v1/orders?page=0"},
		{"page size too large", "/v1/orders?pageSize=500"},
		{"bad customer id", "/v1/orders?customerId=abc"},
		{"bad from timestamp", "/v1/orders?from=yesterday"},
		{"to before from", "/v1/orders?from=2024-03-02T00:00:00Z&to=2024-03-01T00:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := newTestApp(t, &stubOrderService{})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}
