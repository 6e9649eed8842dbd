//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"probata/internal/filing/models"
	"probata/internal/filing/store"
	id "probata/pkg/domain"
	"probata/pkg/platform/sentinel"
	"probata/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(store.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = store.NewPostgresStore(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "filing_applications")
	s.Require().NoError(err)
}

// pendingConsentsState walks an aggregate to PENDING_CONSENTS so the snapshot
// exercises documents, versions and consents together.
func (s *PostgresStoreSuite) pendingConsentsState() models.ApplicationState {
	now := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)
	fctx, err := models.NewFilingContext(
		models.RegimeTestate, false, 60_000_000, 3, true, "Amina Yusuf", "Nairobi")
	s.Require().NoError(err)
	app, err := models.NewApplication(id.NewApplicationID(), fctx, now)
	s.Require().NoError(err)

	doc, err := models.NewDocument(id.NewDocumentID(), models.DocTypePetition, 1, now)
	s.Require().NoError(err)
	s.Require().NoError(doc.AttachVersion(models.StorageRef{
		StorageURL: "s3://probata-documents/petition.pdf",
		Checksum:   "sha256:abc123",
		SizeBytes:  4096,
	}, now))
	s.Require().NoError(app.AddDocument(doc, now))
	s.Require().NoError(app.ApproveAllPendingDocuments("registrar-1", now))

	consent, err := models.NewConsent(id.NewConsentID(), id.NewStakeholderID(),
		"Halima Yusuf", "halima@example.com", "+254700000001", true, now)
	s.Require().NoError(err)
	s.Require().NoError(app.AddConsentRequest(consent, now))
	s.Require().NoError(app.SendConsentRequest(consent.ID(), models.ConsentMethodEmail,
		"token-hash-1", now.Add(72*time.Hour), now))
	return app.Snapshot()
}

func (s *PostgresStoreSuite) TestInsertGetRoundTrip() {
	ctx := context.Background()
	state := s.pendingConsentsState()

	s.Require().NoError(s.store.Insert(ctx, state))

	got, err := s.store.Get(ctx, state.ID)
	s.Require().NoError(err)
	s.equalState(state, got)

	// The loaded snapshot must restore into a valid aggregate.
	restored, err := models.RestoreApplication(got)
	s.Require().NoError(err)
	s.Equal(state.Version, restored.Version())
}

func (s *PostgresStoreSuite) TestInsertDuplicate() {
	ctx := context.Background()
	state := s.pendingConsentsState()
	s.Require().NoError(s.store.Insert(ctx, state))
	s.ErrorIs(s.store.Insert(ctx, state), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetUnknown() {
	_, err := s.store.Get(context.Background(), id.NewApplicationID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestUpdateVersionGuard() {
	ctx := context.Background()
	state := s.pendingConsentsState()
	s.Require().NoError(s.store.Insert(ctx, state))

	app, err := models.RestoreApplication(state)
	s.Require().NoError(err)
	now := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(app.MarkFilingFeePaid(app.Context().FilingFeeCents(), now))

	updated := app.Snapshot()
	s.Require().NoError(s.store.Update(ctx, updated, app.PersistedVersion()))

	// The same previous version cannot win twice.
	s.ErrorIs(s.store.Update(ctx, updated, app.PersistedVersion()), sentinel.ErrVersionConflict)

	got, err := s.store.Get(ctx, state.ID)
	s.Require().NoError(err)
	s.True(got.FeePaid)
	s.Equal(updated.Version, got.Version)
}

func (s *PostgresStoreSuite) TestUpdateReplacesChildren() {
	ctx := context.Background()
	state := s.pendingConsentsState()
	s.Require().NoError(s.store.Insert(ctx, state))

	app, err := models.RestoreApplication(state)
	s.Require().NoError(err)
	now := time.Date(2026, time.March, 11, 9, 0, 0, 0, time.UTC)
	s.Require().NoError(app.RecordConsentGranted(app.Consents()[0].ID,
		models.ResponseMeta{IP: "203.0.113.7", Method: models.ConsentMethodEmail}, now))

	s.Require().NoError(s.store.Update(ctx, app.Snapshot(), app.PersistedVersion()))

	got, err := s.store.Get(ctx, state.ID)
	s.Require().NoError(err)
	s.Require().Len(got.Consents, 1)
	s.Equal(models.ConsentGranted, got.Consents[0].Status)
	s.Equal("203.0.113.7", got.Consents[0].ResponseIP)
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	first := s.pendingConsentsState()
	second := s.pendingConsentsState()
	second.Jurisdiction = "Mombasa"
	s.Require().NoError(s.store.Insert(ctx, first))
	s.Require().NoError(s.store.Insert(ctx, second))

	all, err := s.store.List(ctx, store.Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)

	byJurisdiction, err := s.store.List(ctx, store.Filter{Jurisdiction: "Mombasa"})
	s.Require().NoError(err)
	s.Require().Len(byJurisdiction, 1)
	s.Equal(second.ID, byJurisdiction[0].ID)

	none, err := s.store.List(ctx, store.Filter{Status: models.StatusFiled})
	s.Require().NoError(err)
	s.Empty(none)
}

// equalState compares snapshots field by field, normalizing the timestamp
// precision PostgreSQL stores (microseconds) against Go's nanoseconds.
func (s *PostgresStoreSuite) equalState(want, got models.ApplicationState) {
	s.Equal(want.ID, got.ID)
	s.Equal(want.Version, got.Version)
	s.Equal(want.Status, got.Status)
	s.Equal(want.Regime, got.Regime)
	s.Equal(want.DeceasedName, got.DeceasedName)
	s.Equal(want.Jurisdiction, got.Jurisdiction)
	s.Equal(want.HeirCount, got.HeirCount)
	s.Equal(want.EstateValue, got.EstateValue)
	s.Require().Len(got.Documents, len(want.Documents))
	for i := range want.Documents {
		s.Equal(want.Documents[i].ID, got.Documents[i].ID)
		s.Equal(want.Documents[i].Type, got.Documents[i].Type)
		s.Equal(want.Documents[i].Status, got.Documents[i].Status)
		s.Len(got.Documents[i].Versions, len(want.Documents[i].Versions))
	}
	s.Require().Len(got.Consents, len(want.Consents))
	for i := range want.Consents {
		s.Equal(want.Consents[i].ID, got.Consents[i].ID)
		s.Equal(want.Consents[i].Status, got.Consents[i].Status)
		s.Equal(want.Consents[i].TokenHash, got.Consents[i].TokenHash)
	}
}
