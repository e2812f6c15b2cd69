package journey

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/triage-agent/backend/pkg/logger"
)

// Stage names the coordinator's states.
type Stage string

const (
	StageContextBuilding     Stage = "context_building"
	StageRetrieval           Stage = "retrieval"
	StageTriage              Stage = "triage"
	StageEmergencyEscalation Stage = "emergency_escalation"
	StagePhysicianMatching   Stage = "physician_matching"
	StageScheduling          Stage = "scheduling"
	StageWorkflowGeneration  Stage = "workflow_generation"
	StageCompleted           Stage = "completed"
)

// Event is the structured progress record emitted as each stage finishes.
// It replaces in-band progress narration: observers consume the stream,
// the decision logic never depends on it.
type Event struct {
	JourneyID string    `json:"journey_id"`
	Stage     Stage     `json:"stage"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type EventSink interface {
	Publish(event Event)
}

// LogSink writes stage events to the structured log.
type LogSink struct{}

func (LogSink) Publish(event Event) {
	logger.Info("Journey stage event",
		zap.String("journey_id", event.JourneyID),
		zap.String("stage", string(event.Stage)),
		zap.String("outcome", event.Outcome),
		zap.String("detail", event.Detail),
	)
}

// ChannelSink buffers events for a streaming consumer. Publish never
// blocks the journey: events overflow the buffer silently.
type ChannelSink struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{ch: make(chan Event, buffer)}
}

func (s *ChannelSink) Publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- event:
	default:
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.ch
}

func (s *ChannelSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
