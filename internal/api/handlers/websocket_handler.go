package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/triage-agent/backend/internal/journey"
	"github.com/triage-agent/backend/internal/model"
	"github.com/triage-agent/backend/pkg/logger"
)

// CoordinatorFactory builds a coordinator with per-connection event sinks
// so each client only sees its own journey's stage stream.
type CoordinatorFactory func(sinks ...journey.EventSink) *journey.Coordinator

type WebSocketHandler struct {
	newCoordinator CoordinatorFactory
}

func NewWebSocketHandler(newCoordinator CoordinatorFactory) *WebSocketHandler {
	return &WebSocketHandler{newCoordinator: newCoordinator}
}

// HandleConnection runs journeys over a WebSocket, streaming each stage
// event as it happens followed by the final result.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string               `json:"type"`
			Patient model.PatientProfile `json:"patient"`
			Report  model.SymptomReport  `json:"report"`
		}

		err := c.ReadJSON(&msg)
		if err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "journey" {
			continue
		}

		err = h.streamJourney(c, msg.Patient, msg.Report)
		if err != nil {
			logger.Error("Failed to stream journey", zap.Error(err))
			h.sendError(c, "Failed to run journey")
		}
	}
}

func (h *WebSocketHandler) streamJourney(c *websocket.Conn, patient model.PatientProfile, report model.SymptomReport) error {
	now := time.Now()
	if patient.ID == "" {
		patient.ID = uuid.New().String()
	}
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.PatientID == "" {
		report.PatientID = patient.ID
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}

	sink := journey.NewChannelSink(32)
	coordinator := h.newCoordinator(sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sink.Events() {
			if err := c.WriteJSON(map[string]interface{}{
				"type":  "stage",
				"event": event,
			}); err != nil {
				logger.Warn("Failed to write stage event", zap.Error(err))
				return
			}
		}
	}()

	result, err := coordinator.Run(context.Background(), patient, report)
	sink.Close()
	<-done

	if err != nil {
		if errors.Is(err, journey.ErrEmptyIdentifier) || errors.Is(err, journey.ErrInvalidReport) {
			h.sendError(c, err.Error())
			return nil
		}
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":   "complete",
		"result": result,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	msg := map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	}

	c.WriteJSON(msg)
}
