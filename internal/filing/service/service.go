// Package service orchestrates filing application commands: each mutation
// loads the aggregate, applies exactly one domain operation, validates,
// saves under optimistic concurrency, and publishes the drained events.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"probata/internal/filing/metrics"
	"probata/internal/filing/models"
	"probata/internal/filing/ports"
	"probata/internal/filing/store"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
	"probata/pkg/platform/audit"
	"probata/pkg/platform/sentinel"
	"probata/pkg/requestcontext"
)

// EventPublisher receives domain events after a successful save. Delivery is
// at-least-once from the caller's perspective; implementations decide
// buffering and transport.
type EventPublisher interface {
	Publish(ctx context.Context, events []models.Event) error
}

// AuditTrail records who performed each successful command.
type AuditTrail interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the filing application command and query surface.
type Service struct {
	store     store.Store
	txRunner  TxRunner
	renderer  ports.Renderer
	notifier  ports.Notifier
	publisher EventPublisher
	cache     *store.SummaryCache
	trail     AuditTrail
	logger    *slog.Logger
	metrics   *metrics.Metrics

	consentTTL time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventPublisher(publisher EventPublisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithSummaryCache(cache *store.SummaryCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

func WithAuditTrail(trail AuditTrail) Option {
	return func(s *Service) {
		s.trail = trail
	}
}

// WithConsentTTL overrides how long consent response links stay valid.
func WithConsentTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.consentTTL = ttl
		}
	}
}

const defaultConsentTTL = 14 * 24 * time.Hour

// New constructs a Service.
func New(st store.Store, txRunner TxRunner, renderer ports.Renderer, notifier ports.Notifier, opts ...Option) *Service {
	s := &Service{
		store:      st,
		txRunner:   txRunner,
		renderer:   renderer,
		notifier:   notifier,
		logger:     slog.Default(),
		consentTTL: defaultConsentTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mutate runs one domain operation inside the transactional boundary. On
// success the new snapshot is returned, events are handed to the publisher,
// and the summary cache is refreshed.
func (s *Service) mutate(ctx context.Context, op string, applicationID id.ApplicationID,
	fn func(app *models.Application, now time.Time) error) (models.ApplicationState, error) {

	start := time.Now()
	var (
		state  models.ApplicationState
		events []models.Event
	)
	err := s.txRunner.RunInTx(ctx, applicationID, func(ctx context.Context) error {
		stored, err := s.store.Get(ctx, applicationID)
		if err != nil {
			return translateStoreError(err)
		}
		app, err := models.RestoreApplication(stored)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "stored application is inconsistent")
		}
		if err := fn(app, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := app.Validate(); err != nil {
			return err
		}
		state = app.Snapshot()
		if err := s.store.Update(ctx, state, app.PersistedVersion()); err != nil {
			if errors.Is(err, sentinel.ErrVersionConflict) {
				s.metrics.IncrementVersionConflicts()
				return dErrors.New(dErrors.CodeConflict,
					"application was modified concurrently, retry the request")
			}
			return translateStoreError(err)
		}
		app.MarkPersisted()
		events = app.PullEvents()
		return nil
	})
	s.observe(op, start, err)
	if err != nil {
		return models.ApplicationState{}, err
	}
	s.publishEvents(ctx, events)
	s.refreshSummary(ctx, state)
	s.recordAudit(ctx, op, applicationID)
	return state, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, applicationID id.ApplicationID) {
	if s.trail == nil {
		return
	}
	event := audit.Event{
		Timestamp:     requestcontext.Now(ctx),
		ApplicationID: applicationID,
		Action:        action,
		ActorID:       requestcontext.ActorID(ctx),
		RequestID:     requestcontext.RequestID(ctx),
		IP:            requestcontext.ClientIP(ctx),
		UserAgent:     requestcontext.UserAgent(ctx),
	}
	if err := s.trail.Emit(ctx, event); err != nil {
		s.logger.Warn("failed to record audit event",
			"error", err, "action", action, "application_id", applicationID.String())
	}
}

func (s *Service) observe(op string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.metrics.ObserveOperation(op, outcome, time.Since(start))
}

func (s *Service) publishEvents(ctx context.Context, events []models.Event) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events); err != nil {
		s.logger.Warn("failed to publish filing events",
			"error", err, "event_count", len(events))
		return
	}
	s.metrics.AddEventsPublished(len(events))
}

func (s *Service) refreshSummary(ctx context.Context, state models.ApplicationState) {
	if err := s.cache.Put(ctx, store.SummarizeState(state)); err != nil {
		s.logger.Warn("failed to refresh application summary cache",
			"error", err, "application_id", state.ID.String())
	}
}

func translateStoreError(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "application already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "filing store failure")
	}
}
