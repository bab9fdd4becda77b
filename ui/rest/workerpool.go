package rest

import (
	"github.com/AzielCF/az-typing/pkg/msgworker"
	"github.com/gofiber/fiber/v2"
)

var transportPool *msgworker.Pool

// SetTransportPool exposes pool on the stats endpoint.
func SetTransportPool(pool *msgworker.Pool) {
	transportPool = pool
}

func InitRestTransportPool(app fiber.Router) {
	app.Get("/transport-pool/stats", GetTransportPoolStats)
}

// GetTransportPoolStats returns real-time statistics of the outbound send pool
func GetTransportPoolStats(c *fiber.Ctx) error {
	if transportPool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Transport worker pool not initialized",
		})
	}
	return c.JSON(transportPool.GetStats())
}
