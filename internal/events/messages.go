// Package events provides real-time WebSocket streaming of sighting
// submission outcomes. Dashboards connect once and receive every delivered
// and failed submission as it happens.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageType defines the type of WebSocket message.
type MessageType string

const (
	// Client -> Server message types
	MessageTypePing MessageType = "ping"

	// Server -> Client message types
	MessageTypePong              MessageType = "pong"
	MessageTypeError             MessageType = "error"
	MessageTypeSightingSubmitted MessageType = "sighting.submitted"
	MessageTypeSightingFailed    MessageType = "sighting.failed"
)

// Message represents a WebSocket message.
type Message struct {
	// Type is the message type.
	Type MessageType `json:"type"`
	// Payload contains the message data.
	Payload json.RawMessage `json:"payload,omitempty"`
	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
	// ID is a unique message identifier.
	ID string `json:"id,omitempty"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UTC(),
		ID:        uuid.New().String(),
	}, nil
}

// Bytes serializes the message to JSON bytes.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage deserializes a message from JSON bytes.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	// Code is the error code.
	Code string `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
}

// SubmissionPayload is the payload for submission lifecycle messages.
type SubmissionPayload struct {
	SubmissionID   string    `json:"submission_id"`
	SightingValue  string    `json:"sighting_value"`
	SightingTitle  string    `json:"sighting_title"`
	SightingType   string    `json:"sighting_type"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
	EntityID       string    `json:"entity_id,omitempty"`
	EntityURL      string    `json:"entity_url,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
