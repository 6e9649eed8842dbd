package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"probata/internal/filing/models"
	"probata/internal/filing/ports"
	"probata/internal/filing/ports/mocks"
	"probata/internal/filing/service"
	"probata/internal/filing/store"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
	auditpublisher "probata/pkg/platform/audit/publisher"
	auditmemory "probata/pkg/platform/audit/store/memory"
	"probata/pkg/requestcontext"
)

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

// capturePublisher records every published event for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *capturePublisher) Publish(_ context.Context, events []models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) names() []models.EventName {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EventName, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Name)
	}
	return out
}

type fixture struct {
	svc       *service.Service
	store     *store.InMemoryStore
	renderer  *mocks.MockRenderer
	notifier  *mocks.MockNotifier
	publisher *capturePublisher
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		store:     store.NewInMemoryStore(),
		renderer:  mocks.NewMockRenderer(ctrl),
		notifier:  mocks.NewMockNotifier(ctrl),
		publisher: &capturePublisher{},
		ctx:       requestcontext.WithTime(context.Background(), testNow),
	}
	f.svc = service.New(f.store, service.NewShardedTxRunner(), f.renderer, f.notifier,
		service.WithEventPublisher(f.publisher),
		service.WithConsentTTL(72*time.Hour),
	)
	return f
}

func intestateInput(heirs int) service.CreateApplicationInput {
	return service.CreateApplicationInput{
		Regime:           models.RegimeIntestate,
		EstateValueCents: 20_000_000,
		HeirCount:        heirs,
		DeceasedName:     "Amina Yusuf",
		Jurisdiction:     "Nairobi",
	}
}

func (f *fixture) expectRenderAll() {
	f.renderer.EXPECT().
		Render(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.RenderRequest) (models.StorageRef, error) {
			return models.StorageRef{
				StorageURL: "s3://probata-documents/" + req.DocumentID.String() + ".pdf",
				Checksum:   "sha256:" + req.DocumentID.String(),
				SizeBytes:  4096,
			}, nil
		}).
		AnyTimes()
}

func TestCreateApplication(t *testing.T) {
	f := newFixture(t)

	state, err := f.svc.CreateApplication(f.ctx, intestateInput(2))
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, state.Status)
	assert.Equal(t, int64(1), state.Version)
	assert.Equal(t, []models.EventName{models.EventApplicationCreated}, f.publisher.names())

	stored, err := f.store.Get(f.ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ID, stored.ID)
}

func TestCreateApplicationValidation(t *testing.T) {
	f := newFixture(t)
	input := intestateInput(2)
	input.DeceasedName = ""

	_, err := f.svc.CreateApplication(f.ctx, input)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestGenerateDocuments(t *testing.T) {
	f := newFixture(t)
	f.expectRenderAll()
	created, err := f.svc.CreateApplication(f.ctx, intestateInput(2))
	require.NoError(t, err)

	state, err := f.svc.GenerateDocuments(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, state.Status)
	require.Len(t, state.Documents, 3)
	for _, d := range state.Documents {
		assert.Equal(t, models.DocStatusGenerated, d.Status)
		require.Len(t, d.Versions, 1)
		if d.Type == models.DocTypeHeirAffidavit {
			assert.Equal(t, 2, d.RequiredSignatories, "all heirs swear the affidavit")
		} else {
			assert.Zero(t, d.RequiredSignatories)
		}
	}
	assert.Contains(t, f.publisher.names(), models.EventAllDocumentsGenerated)

	_, err = f.svc.GenerateDocuments(f.ctx, created.ID)
	require.Error(t, err, "nothing left to generate")
}

func TestGenerateDocumentsRenderFailure(t *testing.T) {
	f := newFixture(t)
	f.renderer.EXPECT().
		Render(gomock.Any(), gomock.Any()).
		Return(models.StorageRef{}, errors.New("template engine down")).
		AnyTimes()
	created, err := f.svc.CreateApplication(f.ctx, intestateInput(2))
	require.NoError(t, err)

	_, err = f.svc.GenerateDocuments(f.ctx, created.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	stored, err := f.store.Get(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, stored.Status)
	assert.Empty(t, stored.Documents)
}

func TestGenerateDocumentsUnknownApplication(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateDocuments(f.ctx, id.NewApplicationID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// reviewedApplication creates, generates and approves a two-heir filing.
func reviewedApplication(t *testing.T, f *fixture) models.ApplicationState {
	t.Helper()
	f.expectRenderAll()
	created, err := f.svc.CreateApplication(f.ctx, intestateInput(2))
	require.NoError(t, err)
	_, err = f.svc.GenerateDocuments(f.ctx, created.ID)
	require.NoError(t, err)
	state, err := f.svc.ApproveDocuments(f.ctx, created.ID, "registrar-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingConsents, state.Status)
	return state
}

func documentOfType(t *testing.T, state models.ApplicationState, docType models.DocumentType) models.DocumentState {
	t.Helper()
	for _, d := range state.Documents {
		if d.Type == docType && d.Status != models.DocStatusSuperseded {
			return d
		}
	}
	t.Fatalf("no active %s document", docType)
	return models.DocumentState{}
}

func TestFilingCommandFlow(t *testing.T) {
	f := newFixture(t)
	state := reviewedApplication(t, f)
	appID := state.ID

	// Consent: add, send (capturing the plaintext token), respond.
	state, err := f.svc.AddConsent(f.ctx, appID, service.AddConsentInput{
		StakeholderName: "Halima Yusuf",
		Email:           "halima@example.com",
		Required:        true,
	})
	require.NoError(t, err)
	require.Len(t, state.Consents, 1)
	consentID := state.Consents[0].ID

	var delivered ports.ConsentDelivery
	f.notifier.EXPECT().
		SendConsentRequest(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, d ports.ConsentDelivery) error {
			delivered = d
			return nil
		})
	state, err = f.svc.SendConsent(f.ctx, appID, consentID, models.ConsentMethodEmail)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentPending, state.Consents[0].Status)
	require.NotEmpty(t, delivered.Token)
	assert.NotEqual(t, delivered.Token, state.Consents[0].TokenHash, "domain keeps only the hash")

	// A wrong token is refused before any state change.
	_, err = f.svc.RespondToConsent(f.ctx, appID, consentID, service.ConsentResponseInput{
		Token: "not-the-token", Granted: true, Method: models.ConsentMethodEmail,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	ctx := requestcontext.WithClientMetadata(f.ctx, "203.0.113.7",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	state, err = f.svc.RespondToConsent(ctx, appID, consentID, service.ConsentResponseInput{
		Token: delivered.Token, Granted: true, Method: models.ConsentMethodEmail,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConsentGranted, state.Consents[0].Status)
	assert.Equal(t, "203.0.113.7", state.Consents[0].ResponseIP)
	assert.Contains(t, state.Consents[0].ResponseDevice, "Chrome")

	// Fee: wrong amount refused, correct amount flips the gate.
	_, err = f.svc.PayFilingFee(f.ctx, appID, 1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	state, err = f.svc.PayFilingFee(f.ctx, appID, 5000)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyToFile, state.Status)

	// Filing is refused while the heir affidavit lacks its signatures.
	_, err = f.svc.FileWithCourt(f.ctx, appID, "HC/SUCC/2026/114", "RCPT-0091")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	affidavit := documentOfType(t, state, models.DocTypeHeirAffidavit)
	_, err = f.svc.RequestDocumentSignatures(f.ctx, appID, affidavit.ID)
	require.NoError(t, err)
	for _, name := range []string{"Amina Yusuf", "Halima Yusuf"} {
		state, err = f.svc.SignDocument(f.ctx, appID, affidavit.ID, id.NewStakeholderID(), name)
		require.NoError(t, err)
	}
	assert.Equal(t, models.DocStatusSigned, documentOfType(t, state, models.DocTypeHeirAffidavit).Status)

	state, err = f.svc.FileWithCourt(f.ctx, appID, "HC/SUCC/2026/114", "RCPT-0091")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFiled, state.Status)
	assert.Equal(t, "HC/SUCC/2026/114", state.CourtCaseNumber)

	state, err = f.svc.RecordCourtReviewStarted(f.ctx, appID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCourtReview, state.Status)

	state, err = f.svc.RecordGrantApproved(f.ctx, appID, "GR-2026-055")
	require.NoError(t, err)
	assert.Equal(t, models.StatusGranted, state.Status)

	names := f.publisher.names()
	assert.Contains(t, names, models.EventApplicationReadyToFile)
	assert.Contains(t, names, models.EventApplicationFiled)
	assert.Contains(t, names, models.EventApplicationGranted)
}

func TestSendConsentSurvivesDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	state := reviewedApplication(t, f)

	state, err := f.svc.AddConsent(f.ctx, state.ID, service.AddConsentInput{
		StakeholderName: "Omar Yusuf", Email: "omar@example.com", Required: true,
	})
	require.NoError(t, err)
	consentID := state.Consents[0].ID

	f.notifier.EXPECT().
		SendConsentRequest(gomock.Any(), gomock.Any()).
		Return(errors.New("smtp unavailable"))

	state, err = f.svc.SendConsent(f.ctx, state.ID, consentID, models.ConsentMethodEmail)
	require.NoError(t, err, "delivery failure is not a command failure")
	assert.NotNil(t, state.Consents[0].SentAt)
}

func TestAmendDocumentAfterCourtRejection(t *testing.T) {
	f := newFixture(t)
	state := reviewedApplication(t, f)
	appID := state.ID

	_, err := f.svc.PayFilingFee(f.ctx, appID, 5000)
	require.NoError(t, err)
	state, err = f.svc.FileWithCourt(f.ctx, appID, "HC/SUCC/2026/114", "RCPT-0091")
	require.NoError(t, err)

	petition := documentOfType(t, state, models.DocTypePetition)
	_, err = f.svc.RecordDocumentCourtOutcome(f.ctx, appID, petition.ID, false, "wrong schedule")
	require.NoError(t, err)

	state, err = f.svc.AmendDocument(f.ctx, appID, petition.ID)
	require.NoError(t, err)
	amended := documentOfType(t, state, models.DocTypePetition)
	assert.Len(t, amended.Versions, 2)
	assert.Contains(t, f.publisher.names(), models.EventDocumentAmended)
}

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateApplication(f.ctx, intestateInput(2))
	require.NoError(t, err)

	state, err := f.svc.Withdraw(f.ctx, created.ID, "family settlement")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWithdrawn, state.Status)

	_, err = f.svc.GenerateDocuments(f.ctx, created.ID)
	require.Error(t, err)
}

func TestGetSummaryWithoutCache(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.CreateApplication(f.ctx, intestateInput(2))
	require.NoError(t, err)

	summary, err := f.svc.GetSummary(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, summary.ID)
	assert.Equal(t, models.StatusDraft, summary.Status)
}

func TestGetReadiness(t *testing.T) {
	f := newFixture(t)
	state := reviewedApplication(t, f)

	report, err := f.svc.GetReadiness(f.ctx, state.ID)
	require.NoError(t, err)
	assert.True(t, report.DocumentsApproved)
	assert.False(t, report.FeePaid)
	assert.False(t, report.Ready())
}

func TestAuditTrailRecordsCommands(t *testing.T) {
	ctrl := gomock.NewController(t)
	auditStore := auditmemory.NewInMemoryStore()
	trail := auditpublisher.NewPublisher(auditStore)
	defer trail.Close()

	renderer := mocks.NewMockRenderer(ctrl)
	renderer.EXPECT().
		Render(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.RenderRequest) (models.StorageRef, error) {
			return models.StorageRef{
				StorageURL: "s3://probata-documents/" + req.DocumentID.String() + ".pdf",
				Checksum:   "sha256:" + req.DocumentID.String(),
				SizeBytes:  4096,
			}, nil
		}).
		AnyTimes()

	svc := service.New(store.NewInMemoryStore(), service.NewShardedTxRunner(),
		renderer, mocks.NewMockNotifier(ctrl),
		service.WithAuditTrail(trail),
	)

	ctx := requestcontext.WithTime(context.Background(), testNow)
	ctx = requestcontext.WithActorID(ctx, "registrar-1")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.7", "probata-test")

	created, err := svc.CreateApplication(ctx, intestateInput(2))
	require.NoError(t, err)
	_, err = svc.GenerateDocuments(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.ApproveDocuments(ctx, created.ID, "registrar-1")
	require.NoError(t, err)

	events, err := auditStore.ListByApplication(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, events, 3)

	actions := make([]string, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"create_application", "attach_documents", "approve_documents"}, actions)

	for _, e := range events {
		assert.Equal(t, created.ID, e.ApplicationID)
		assert.Equal(t, "registrar-1", e.ActorID)
		assert.Equal(t, "203.0.113.7", e.IP)
		assert.Equal(t, testNow, e.Timestamp)
	}
}
