package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/storage/sqlite"
	"github.com/triage-agent/backend/pkg/logger"
)

type ProviderHandler struct {
	db *sqlite.Client
}

func NewProviderHandler(db *sqlite.Client) *ProviderHandler {
	return &ProviderHandler{db: db}
}

func (h *ProviderHandler) ListProviders(c *fiber.Ctx) error {
	providers, err := h.db.ListProviders()
	if err != nil {
		logger.Error("Failed to list providers", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list providers",
		})
	}

	return c.JSON(fiber.Map{
		"providers": providers,
	})
}
