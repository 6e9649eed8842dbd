// Package audit records who did what to which filing application. The trail
// is append-only and outlives the application itself, so registrars can
// reconstruct how a filing reached its current state.
package audit

import (
	"context"
	"time"

	id "probata/pkg/domain"
)

// Event is one entry in the audit trail. Action carries the operation name
// as the service reports it (e.g. "pay_filing_fee"). ActorID is empty for
// operations performed by unauthenticated stakeholders responding to a
// consent link.
type Event struct {
	Timestamp     time.Time
	ApplicationID id.ApplicationID
	Action        string
	ActorID       string
	RequestID     string
	IP            string
	UserAgent     string
}

// Store persists audit events. Implementations must tolerate concurrent
// appends.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByApplication(ctx context.Context, applicationID id.ApplicationID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
