package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/ingestion"
	"github.com/triage-agent/backend/pkg/logger"
)

type GuidelineHandler struct {
	processor *ingestion.Processor
}

// NewGuidelineHandler accepts a nil processor when the embedding or index
// backend is not configured; ingestion then reports unavailable.
func NewGuidelineHandler(processor *ingestion.Processor) *GuidelineHandler {
	return &GuidelineHandler{processor: processor}
}

func (h *GuidelineHandler) UploadGuideline(c *fiber.Ctx) error {
	if h.processor == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Guideline ingestion is not available",
		})
	}

	var req struct {
		URL     string `json:"url"`
		Content string `json:"content"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse guideline request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.URL == "" || req.Content == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "URL and content are required",
		})
	}

	if err := h.processor.ProcessGuideline(c.Context(), req.URL, req.Content); err != nil {
		logger.Error("Failed to process guideline", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process guideline",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "processed",
		"url":    req.URL,
	})
}
