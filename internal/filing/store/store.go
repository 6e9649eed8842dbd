// Package store persists filing application snapshots. Implementations
// exchange models.ApplicationState only; live aggregates never cross this
// boundary.
package store

import (
	"context"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Status       models.ApplicationStatus
	Jurisdiction string
	Limit        int
	Offset       int
}

// Store is the persistence port for filing applications.
//
// Update enforces optimistic concurrency: the row is written only when its
// stored version still equals previousVersion, otherwise
// sentinel.ErrVersionConflict is returned and nothing changes. Insert returns
// sentinel.ErrConflict when the id already exists; Get returns
// sentinel.ErrNotFound for unknown ids.
type Store interface {
	Insert(ctx context.Context, state models.ApplicationState) error
	Get(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error)
	Update(ctx context.Context, state models.ApplicationState, previousVersion int64) error
	List(ctx context.Context, filter Filter) ([]models.ApplicationState, error)
}
