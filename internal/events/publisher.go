package events

import (
	"time"

	"github.com/rs/zerolog"
)

// Publisher emits submission lifecycle events. Implementations must never
// block the submission path.
type Publisher interface {
	// PublishSubmitted announces a sighting accepted by the platform.
	PublishSubmitted(p SubmissionPayload)
	// PublishFailed announces a sighting the platform rejected or that
	// could not be delivered.
	PublishFailed(p SubmissionPayload)
}

// HubPublisher broadcasts submission events over the WebSocket hub.
type HubPublisher struct {
	hub    *Hub
	logger zerolog.Logger
}

// NewHubPublisher creates a Publisher backed by the given hub.
func NewHubPublisher(hub *Hub, logger zerolog.Logger) *HubPublisher {
	return &HubPublisher{
		hub:    hub,
		logger: logger.With().Str("component", "events_publisher").Logger(),
	}
}

// PublishSubmitted broadcasts a sighting.submitted event.
func (p *HubPublisher) PublishSubmitted(payload SubmissionPayload) {
	p.publish(MessageTypeSightingSubmitted, payload)
}

// PublishFailed broadcasts a sighting.failed event.
func (p *HubPublisher) PublishFailed(payload SubmissionPayload) {
	p.publish(MessageTypeSightingFailed, payload)
}

func (p *HubPublisher) publish(msgType MessageType, payload SubmissionPayload) {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}

	msg, err := NewMessage(msgType, payload)
	if err != nil {
		p.logger.Error().Err(err).
			Str("type", string(msgType)).
			Msg("failed to build event message")
		return
	}

	if err := p.hub.BroadcastMessage(msg); err != nil {
		p.logger.Error().Err(err).
			Str("type", string(msgType)).
			Msg("failed to broadcast event message")
	}
}

// NoopPublisher discards all events. Used when streaming is disabled.
type NoopPublisher struct{}

// PublishSubmitted implements Publisher.
func (NoopPublisher) PublishSubmitted(SubmissionPayload) {}

// PublishFailed implements Publisher.
func (NoopPublisher) PublishFailed(SubmissionPayload) {}
