package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
	"probata/pkg/platform/sentinel"
)

// ApplicationSummary is the cached read-model row for dashboard listings.
// It is rebuilt from the authoritative snapshot on every save, so staleness
// is bounded by the TTL only when invalidation is lost.
type ApplicationSummary struct {
	ID            id.ApplicationID         `json:"id"`
	Status        models.ApplicationStatus `json:"status"`
	DeceasedName  string                   `json:"deceased_name"`
	Jurisdiction  string                   `json:"jurisdiction"`
	Regime        models.SuccessionRegime  `json:"regime"`
	Version       int64                    `json:"version"`
	DocumentCount int                      `json:"document_count"`
	ConsentCount  int                      `json:"consent_count"`
	FeePaid       bool                     `json:"fee_paid"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// SummarizeState derives the cacheable summary from a snapshot.
func SummarizeState(state models.ApplicationState) ApplicationSummary {
	active := 0
	for _, d := range state.Documents {
		if d.Status != models.DocStatusSuperseded {
			active++
		}
	}
	return ApplicationSummary{
		ID:            state.ID,
		Status:        state.Status,
		DeceasedName:  state.DeceasedName,
		Jurisdiction:  state.Jurisdiction,
		Regime:        state.Regime,
		Version:       state.Version,
		DocumentCount: active,
		ConsentCount:  len(state.Consents),
		FeePaid:       state.FeePaid,
		UpdatedAt:     state.UpdatedAt,
	}
}

// SummaryCache caches application summaries in Redis. A nil *SummaryCache is
// a valid no-op cache, so callers need no nil checks when Redis is not
// configured.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

const defaultSummaryTTL = 10 * time.Minute

func NewSummaryCache(client *redis.Client, ttl time.Duration) *SummaryCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultSummaryTTL
	}
	return &SummaryCache{client: client, ttl: ttl}
}

func summaryKey(applicationID id.ApplicationID) string {
	return "probata:filing:summary:" + applicationID.String()
}

// Get returns the cached summary or sentinel.ErrNotFound on a miss.
func (c *SummaryCache) Get(ctx context.Context, applicationID id.ApplicationID) (ApplicationSummary, error) {
	if c == nil {
		return ApplicationSummary{}, sentinel.ErrNotFound
	}
	raw, err := c.client.Get(ctx, summaryKey(applicationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ApplicationSummary{}, sentinel.ErrNotFound
		}
		return ApplicationSummary{}, fmt.Errorf("get summary: %w", err)
	}
	var summary ApplicationSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		// A corrupt entry behaves like a miss; the writer will replace it.
		return ApplicationSummary{}, sentinel.ErrNotFound
	}
	return summary, nil
}

// Put stores the summary under the application's key.
func (c *SummaryCache) Put(ctx context.Context, summary ApplicationSummary) error {
	if c == nil {
		return nil
	}
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey(summary.ID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("put summary: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary.
func (c *SummaryCache) Invalidate(ctx context.Context, applicationID id.ApplicationID) error {
	if c == nil {
		return nil
	}
	if err := c.client.Del(ctx, summaryKey(applicationID)).Err(); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}
