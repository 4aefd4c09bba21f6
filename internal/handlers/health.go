package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/trentd187/fifa-roster/internal/apperr"
)

// HealthCheck handles GET /health.
// It only proves the process is serving HTTP: no database queries, no authentication.
// Container liveness probes and load balancers call it.
func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// ReadyCheck handles GET /health/ready.
// It pings the database through the pool, so a 503 means requests would fail right now.
func ReadyCheck(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			logFailure(c, apperr.Storage, err)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
