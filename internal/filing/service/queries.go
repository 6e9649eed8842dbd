package service

import (
	"context"
	"errors"

	"probata/internal/filing/models"
	"probata/internal/filing/store"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
	"probata/pkg/platform/sentinel"
)

// GetApplication returns the full application snapshot.
func (s *Service) GetApplication(ctx context.Context, applicationID id.ApplicationID) (models.ApplicationState, error) {
	state, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return models.ApplicationState{}, translateStoreError(err)
	}
	return state, nil
}

// ListApplications returns snapshots matching the filter.
func (s *Service) ListApplications(ctx context.Context, filter store.Filter) ([]models.ApplicationState, error) {
	states, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, translateStoreError(err)
	}
	return states, nil
}

// GetSummary returns the dashboard summary, read through the cache.
func (s *Service) GetSummary(ctx context.Context, applicationID id.ApplicationID) (store.ApplicationSummary, error) {
	summary, err := s.cache.Get(ctx, applicationID)
	if err == nil {
		return summary, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.Warn("summary cache read failed", "error", err,
			"application_id", applicationID.String())
	}
	state, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return store.ApplicationSummary{}, translateStoreError(err)
	}
	summary = store.SummarizeState(state)
	if err := s.cache.Put(ctx, summary); err != nil {
		s.logger.Warn("summary cache write failed", "error", err,
			"application_id", applicationID.String())
	}
	return summary, nil
}

// GetReadiness recomputes the filing gate for the application.
func (s *Service) GetReadiness(ctx context.Context, applicationID id.ApplicationID) (models.ReadinessReport, error) {
	state, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return models.ReadinessReport{}, translateStoreError(err)
	}
	app, err := models.RestoreApplication(state)
	if err != nil {
		return models.ReadinessReport{}, dErrors.Wrap(err, dErrors.CodeInternal, "stored application is inconsistent")
	}
	return app.Readiness(), nil
}
