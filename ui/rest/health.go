package rest

import (
	"github.com/AzielCF/az-salesiq/core/config"
	"github.com/AzielCF/az-salesiq/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct{}

func InitRestHealth(app fiber.Router) Health {
	handler := Health{}

	group := app.Group("/api/health")
	group.Get("/status", handler.GetStatus)

	return handler
}

// GetStatus reports liveness plus the loaded settings, with secrets reduced
// to presence flags.
func (h *Health) GetStatus(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Bridge is running",
		Results: config.GetAllSettings(),
	})
}
