package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HealthChecker is satisfied by the cache stores.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	service string
	db      *gorm.DB
	cache   HealthChecker
}

// NewHealthHandler reports on db and, when not nil, the cache. Only the
// database decides the status code: the cache is optional.
func NewHealthHandler(service string, db *gorm.DB, cache HealthChecker) *HealthHandler {
	return &HealthHandler{service: service, db: db, cache: cache}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	checks := fiber.Map{"database": "up", "cache": "disabled"}
	status := fiber.StatusOK
	overall := "ok"

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = "down"
		status = fiber.StatusServiceUnavailable
		overall = "unavailable"
	}

	if h.cache != nil {
		checks["cache"] = "up"
		if err := h.cache.HealthCheck(ctx); err != nil {
			checks["cache"] = "down"
			if overall == "ok" {
				overall = "degraded"
			}
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"status":  overall,
		"service": h.service,
		"checks":  checks,
	})
}
