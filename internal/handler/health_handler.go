package handler

import (
	"context"
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 5 * time.Second

// Prober reports whether the message broker is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

type HealthHandler struct {
	db     *sql.DB
	redis  *redis.Client
	broker Prober
}

func RegisterHealthRoutes(router fiber.Router, db *sql.DB, redisClient *redis.Client, broker Prober) {
	h := &HealthHandler{db: db, redis: redisClient, broker: broker}

	router.Get("/livez", h.Livez)
	router.Get("/readyz", h.Readyz)
}

func (h *HealthHandler) Livez(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}

func (h *HealthHandler) Readyz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
	defer cancel()

	checks := fiber.Map{}
	healthy := true

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	if h.broker != nil {
		if err := h.broker.Probe(ctx); err != nil {
			checks["rabbitmq"] = err.Error()
			healthy = false
		} else {
			checks["rabbitmq"] = "ok"
		}
	}

	status := fiber.StatusOK
	if !healthy {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{"checks": checks})
}
