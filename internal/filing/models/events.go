package models

import (
	"time"

	id "probata/pkg/domain"
)

// EventName identifies a domain event type.
type EventName string

const (
	EventApplicationCreated     EventName = "application.created"
	EventDocumentGenerated      EventName = "document.generated"
	EventDocumentSuperseded     EventName = "document.superseded"
	EventDocumentAmended        EventName = "document.amended"
	EventAllDocumentsGenerated  EventName = "application.all_documents_generated"
	EventConsentRequested       EventName = "consent.requested"
	EventConsentGranted         EventName = "consent.granted"
	EventConsentDeclined        EventName = "consent.declined"
	EventConsentWithdrawn       EventName = "consent.withdrawn"
	EventAllConsentsReceived    EventName = "application.all_consents_received"
	EventApplicationReadyToFile EventName = "application.ready_to_file"
	EventApplicationFiled       EventName = "application.filed"
	EventCourtReviewStarted     EventName = "application.court_review_started"
	EventApplicationRejected    EventName = "application.rejected"
	EventApplicationGranted     EventName = "application.granted"
	EventApplicationWithdrawn   EventName = "application.withdrawn"
)

// Event is one entry in the aggregate's append-only event stream. Events are
// collected while a command runs and drained by the caller after a successful
// save; they are never replayed to reconstruct state.
type Event struct {
	Name          EventName
	ApplicationID id.ApplicationID
	// Version is the aggregate version at emission time.
	Version    int64
	OccurredAt time.Time
	// Payload carries event-specific identifiers and reasons.
	Payload map[string]any
}
