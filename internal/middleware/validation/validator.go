package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxComplaintLength  int
	MaxGuidelineSize    int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed journey and guideline payloads before they
// reach the handlers. Semantic checks (severity range, identifier rules)
// stay in the coordinator; this layer only guards the request shape.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxComplaintLength == 0 {
		cfg.MaxComplaintLength = 2000
	}
	if cfg.MaxGuidelineSize == 0 {
		cfg.MaxGuidelineSize = 10 * 1024 * 1024
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" {
				allowed := false
				for _, allowedType := range cfg.AllowedContentTypes {
					if strings.Contains(contentType, allowedType) {
						allowed = true
						break
					}
				}
				if !allowed {
					return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
						"error": "Unsupported content type",
					})
				}
			}
		}

		path := c.Path()

		if c.Method() == "POST" && strings.HasSuffix(path, "/api/v1/journeys") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			report, ok := req["report"].(map[string]interface{})
			if !ok {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Report is required",
				})
			}

			complaint, ok := report["primary_complaint"].(string)
			if !ok || strings.TrimSpace(complaint) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Primary complaint is required and must be a string",
				})
			}

			if len(complaint) > cfg.MaxComplaintLength {
				cfg.Logger.Warn("Oversized complaint rejected",
					zap.String("ip", c.IP()),
					zap.Int("length", len(complaint)),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Primary complaint exceeds maximum length",
				})
			}

			if patient, ok := req["patient"].(map[string]interface{}); ok {
				if age, ok := patient["age"].(float64); ok && (age < 0 || age > 120) {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Patient age must be between 0 and 120",
					})
				}
			}
		}

		if c.Method() == "POST" && strings.HasSuffix(path, "/api/v1/guidelines") {
			if len(c.Body()) > cfg.MaxGuidelineSize {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Guideline content exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}
