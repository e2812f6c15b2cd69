package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/cache/redis"
	"github.com/triage-agent/backend/internal/journey"
	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/internal/storage/sqlite"
	"github.com/triage-agent/backend/pkg/logger"
)

const journeyCacheTTL = 15 * time.Minute

// JourneyRequest is the write-path payload. Identifiers are optional and
// generated server-side when absent.
type JourneyRequest struct {
	Patient model.PatientProfile `json:"patient"`
	Report  model.SymptomReport  `json:"report"`
}

type JourneyHandler struct {
	coordinator *journey.Coordinator
	db          *sqlite.Client
	cache       *redis.Client
}

// NewJourneyHandler accepts a nil cache; the read path then falls through
// to SQLite directly.
func NewJourneyHandler(coordinator *journey.Coordinator, db *sqlite.Client, cache *redis.Client) *JourneyHandler {
	return &JourneyHandler{
		coordinator: coordinator,
		db:          db,
		cache:       cache,
	}
}

func (h *JourneyHandler) StartJourney(c *fiber.Ctx) error {
	var req JourneyRequest

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse journey request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	now := time.Now()
	if req.Patient.ID == "" {
		req.Patient.ID = uuid.New().String()
	}
	if req.Patient.CreatedAt.IsZero() {
		req.Patient.CreatedAt = now
	}
	if req.Report.ID == "" {
		req.Report.ID = uuid.New().String()
	}
	if req.Report.PatientID == "" {
		req.Report.PatientID = req.Patient.ID
	}
	if req.Report.CreatedAt.IsZero() {
		req.Report.CreatedAt = now
	}

	result, err := h.coordinator.Run(c.Context(), req.Patient, req.Report)
	if err != nil {
		if errors.Is(err, journey.ErrEmptyIdentifier) || errors.Is(err, journey.ErrInvalidReport) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		logger.Error("Journey failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to run journey",
		})
	}

	h.persist(c, &req, result)

	return c.Status(fiber.StatusCreated).JSON(result)
}

// persist is best-effort: a storage failure is logged, the journey result
// is still returned to the caller.
func (h *JourneyHandler) persist(c *fiber.Ctx, req *JourneyRequest, result *model.JourneyResult) {
	if err := h.db.InsertPatient(&req.Patient); err != nil {
		logger.Error("Failed to persist patient", zap.Error(err))
	}
	if err := h.db.InsertReport(&req.Report); err != nil {
		logger.Error("Failed to persist symptom report", zap.Error(err))
	}
	if err := h.db.InsertJourney(result); err != nil {
		logger.Error("Failed to persist journey", zap.Error(err))
	}

	if h.cache != nil {
		if err := h.cache.SetJourney(c.Context(), result, journeyCacheTTL); err != nil {
			logger.Warn("Failed to cache journey", zap.Error(err))
		}
	}
}

func (h *JourneyHandler) GetJourney(c *fiber.Ctx) error {
	journeyID := c.Params("id")
	if journeyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Journey ID is required",
		})
	}

	if h.cache != nil {
		result, ok, err := h.cache.GetJourney(c.Context(), journeyID)
		if err != nil {
			logger.Warn("Journey cache read failed", zap.Error(err))
		}
		if ok {
			return c.JSON(result)
		}
	}

	result, err := h.db.GetJourney(journeyID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Journey not found",
		})
	}

	return c.JSON(result)
}

func (h *JourneyHandler) ListJourneys(c *fiber.Ctx) error {
	patientID := c.Query("patient_id")
	if patientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "patient_id is required",
		})
	}

	limit := c.QueryInt("limit", 20)

	results, err := h.db.ListJourneys(patientID, limit)
	if err != nil {
		logger.Error("Failed to list journeys", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list journeys",
		})
	}

	return c.JSON(fiber.Map{
		"journeys": results,
	})
}
