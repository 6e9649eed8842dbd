// Package events delivers filing domain events to downstream consumers.
// The service publishes events after each successful save; sinks decide
// where they land (Kafka in production, memory in tests).
package events

import (
	"time"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
)

// Envelope is the wire shape of one domain event.
type Envelope struct {
	Name          string           `json:"name"`
	ApplicationID id.ApplicationID `json:"application_id"`
	Version       int64            `json:"version"`
	OccurredAt    time.Time        `json:"occurred_at"`
	Payload       map[string]any   `json:"payload,omitempty"`
}

// NewEnvelope converts a domain event into its wire form.
func NewEnvelope(e models.Event) Envelope {
	return Envelope{
		Name:          string(e.Name),
		ApplicationID: e.ApplicationID,
		Version:       e.Version,
		OccurredAt:    e.OccurredAt,
		Payload:       e.Payload,
	}
}
