package store

import (
	"context"
	"time"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
)

// SeedDemo inserts a draft demo application so a fresh deployment has
// something to look at. Intended for development environments only.
func SeedDemo(ctx context.Context, st Store, now time.Time) (models.ApplicationState, error) {
	fctx, err := models.NewFilingContext(models.RegimeIntestate, false,
		32_500_000, 3, true, "Joseph Mwangi", "Nairobi")
	if err != nil {
		return models.ApplicationState{}, err
	}
	app, err := models.NewApplication(id.NewApplicationID(), fctx, now)
	if err != nil {
		return models.ApplicationState{}, err
	}
	state := app.Snapshot()
	if err := st.Insert(ctx, state); err != nil {
		return models.ApplicationState{}, err
	}
	return state, nil
}
