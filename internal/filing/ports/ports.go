// Package ports declares the outbound dependencies of the filing service.
// Adapters live elsewhere; the service only sees these interfaces.
package ports

import (
	"context"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

// RenderRequest describes one document to render.
type RenderRequest struct {
	ApplicationID id.ApplicationID
	DocumentID    id.DocumentID
	Type          models.DocumentType
	Context       models.FilingContext
	// VersionNumber the rendered artifact will become. 1 for initial
	// generation, >1 for amendments.
	VersionNumber int
}

// Renderer produces a stored document artifact and returns where it landed.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (models.StorageRef, error)
}

// ConsentDelivery carries everything a channel adapter needs to reach a
// stakeholder. Token is the plaintext response credential; only its hash is
// retained by the domain.
type ConsentDelivery struct {
	ApplicationID   id.ApplicationID
	ConsentID       id.ConsentID
	StakeholderName string
	Email           string
	Phone           string
	Method          models.ConsentMethod
	Token           string
	DeceasedName    string
}

// Notifier delivers consent requests over the chosen channel.
type Notifier interface {
	SendConsentRequest(ctx context.Context, delivery ConsentDelivery) error
}
