package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
	"probata/pkg/platform/sentinel"
)

// InMemoryStore keeps application snapshots in a map. Used by unit tests and
// local development; snapshots are deep-copied on both sides of the boundary
// so callers never share state with the store.
type InMemoryStore struct {
	mu           sync.RWMutex
	applications map[id.ApplicationID]models.ApplicationState
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{applications: make(map[id.ApplicationID]models.ApplicationState)}
}

func (s *InMemoryStore) Insert(_ context.Context, state models.ApplicationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.applications[state.ID]; exists {
		return sentinel.ErrConflict
	}
	s.applications[state.ID] = cloneState(state)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, applicationID id.ApplicationID) (models.ApplicationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, exists := s.applications[applicationID]
	if !exists {
		return models.ApplicationState{}, sentinel.ErrNotFound
	}
	return cloneState(state), nil
}

func (s *InMemoryStore) Update(_ context.Context, state models.ApplicationState, previousVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, exists := s.applications[state.ID]
	if !exists {
		return sentinel.ErrNotFound
	}
	if current.Version != previousVersion {
		return sentinel.ErrVersionConflict
	}
	s.applications[state.ID] = cloneState(state)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]models.ApplicationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ApplicationState
	for _, state := range s.applications {
		if filter.Status != "" && state.Status != filter.Status {
			continue
		}
		if filter.Jurisdiction != "" && state.Jurisdiction != filter.Jurisdiction {
			continue
		}
		out = append(out, cloneState(state))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func cloneState(state models.ApplicationState) models.ApplicationState {
	out := state
	out.FeePaidAt = cloneTime(state.FeePaidAt)
	out.FiledAt = cloneTime(state.FiledAt)
	out.ReviewedAt = cloneTime(state.ReviewedAt)
	out.GrantedAt = cloneTime(state.GrantedAt)
	out.RejectedAt = cloneTime(state.RejectedAt)
	out.WithdrawnAt = cloneTime(state.WithdrawnAt)
	if state.Documents != nil {
		out.Documents = make([]models.DocumentState, len(state.Documents))
		for i, d := range state.Documents {
			dc := d
			dc.Versions = append([]models.DocumentVersion(nil), d.Versions...)
			dc.Signatures = append([]models.Signature(nil), d.Signatures...)
			dc.ApprovedAt = cloneTime(d.ApprovedAt)
			out.Documents[i] = dc
		}
	}
	if state.Consents != nil {
		out.Consents = make([]models.ConsentState, len(state.Consents))
		for i, c := range state.Consents {
			cc := c
			cc.SentAt = cloneTime(c.SentAt)
			cc.ExpiresAt = cloneTime(c.ExpiresAt)
			cc.RespondedAt = cloneTime(c.RespondedAt)
			out.Consents[i] = cc
		}
	}
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}
