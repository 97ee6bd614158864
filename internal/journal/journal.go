// Package journal persists the delivery history of sighting submissions.
// Two backends are available: a local SQLite file and PostgreSQL.
package journal

import (
	"context"
	"errors"
	"time"
)

// Driver names accepted by configuration.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Outcome values for journal entries.
const (
	OutcomeDelivered = "delivered"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// ErrNotFound is returned when a requested entry does not exist.
var ErrNotFound = errors.New("journal entry not found")

// Entry records one sighting submission and its delivery outcome.
type Entry struct {
	// ID is the submission identifier assigned by the gateway.
	ID string `json:"id"`
	// SightingValue is the observed value that was reported.
	SightingValue string `json:"sighting_value"`
	// SightingTitle is the title of the reported sighting.
	SightingTitle string `json:"sighting_title"`
	// SightingType is the observable type (ip, domain, url, ...).
	SightingType string `json:"sighting_type"`
	// Outcome is one of delivered, rejected, failed.
	Outcome string `json:"outcome"`
	// UpstreamStatus is the platform HTTP status, 0 when the request never
	// completed.
	UpstreamStatus int `json:"upstream_status,omitempty"`
	// EntityID is the platform-assigned entity identifier on success.
	EntityID string `json:"entity_id,omitempty"`
	// Error holds the failure detail for rejected and failed submissions.
	Error string `json:"error,omitempty"`
	// Duration is the end-to-end submission duration.
	Duration time.Duration `json:"duration"`
	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// Journal stores submission entries.
type Journal interface {
	// Record persists a new entry. The entry ID must be unique.
	Record(ctx context.Context, entry *Entry) error
	// Get returns the entry with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Entry, error)
	// List returns the most recent entries, newest first.
	List(ctx context.Context, limit int) ([]*Entry, error)
	// Close releases the underlying storage.
	Close() error
}
