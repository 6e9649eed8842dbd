package adapters_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probata/internal/filing/adapters"
	"probata/internal/filing/models"
	"probata/internal/filing/ports"
	"probata/internal/storage"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
)

func testContext(t *testing.T) models.FilingContext {
	t.Helper()
	fctx, err := models.NewFilingContext(models.RegimeIntestate, false, 20_000_000, 2, false,
		"Amina Yusuf", "Nairobi")
	require.NoError(t, err)
	return fctx
}

func TestTemplateRendererStoresDocument(t *testing.T) {
	blobs := storage.NewInMemoryBlobStore()
	renderer, err := adapters.NewTemplateRenderer(blobs)
	require.NoError(t, err)

	req := ports.RenderRequest{
		ApplicationID: id.NewApplicationID(),
		DocumentID:    id.NewDocumentID(),
		Type:          models.DocTypePetition,
		Context:       testContext(t),
		VersionNumber: 1,
	}
	ref, err := renderer.Render(context.Background(), req)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(ref.StorageURL, "blob://"), ref.StorageURL)
	obj, err := blobs.Get(context.Background(), strings.TrimPrefix(ref.StorageURL, "blob://"))
	require.NoError(t, err)
	assert.Contains(t, string(obj.Data), "Amina Yusuf")
	assert.Contains(t, string(obj.Data), "PETITION")
	assert.Equal(t, int64(len(obj.Data)), ref.SizeBytes)

	sum := sha256.Sum256(obj.Data)
	assert.Equal(t, "sha256:"+hex.EncodeToString(sum[:]), ref.Checksum)
}

func TestTemplateRendererCoversAllTypes(t *testing.T) {
	renderer, err := adapters.NewTemplateRenderer(storage.NewInMemoryBlobStore())
	require.NoError(t, err)

	types := []models.DocumentType{
		models.DocTypePetition,
		models.DocTypeHeirAffidavit,
		models.DocTypeEstateInventory,
		models.DocTypeWillAnnexure,
		models.DocTypeGuardianshipAnnex,
		models.DocTypeFeeStatement,
	}
	for _, docType := range types {
		ref, err := renderer.Render(context.Background(), ports.RenderRequest{
			ApplicationID: id.NewApplicationID(),
			DocumentID:    id.NewDocumentID(),
			Type:          docType,
			Context:       testContext(t),
			VersionNumber: 1,
		})
		require.NoError(t, err, docType)
		assert.NotEmpty(t, ref.Checksum, docType)
	}
}

// recordingSender captures outbound messages for assertions.
type recordingSender struct {
	method    models.ConsentMethod
	recipient string
	body      string
}

func (s *recordingSender) Send(_ context.Context, method models.ConsentMethod, recipient, _, body string) error {
	s.method = method
	s.recipient = recipient
	s.body = body
	return nil
}

func consentDelivery(method models.ConsentMethod) ports.ConsentDelivery {
	return ports.ConsentDelivery{
		ApplicationID:   id.NewApplicationID(),
		ConsentID:       id.NewConsentID(),
		StakeholderName: "Halima Yusuf",
		Email:           "halima@example.com",
		Phone:           "+254700000001",
		Method:          method,
		Token:           "one-time-token",
		DeceasedName:    "Amina Yusuf",
	}
}

func TestChannelNotifierEmbedsResponseLink(t *testing.T) {
	sender := &recordingSender{}
	notifier := adapters.NewChannelNotifier(sender, "https://filing.example.com", slog.New(slog.DiscardHandler))

	delivery := consentDelivery(models.ConsentMethodEmail)
	require.NoError(t, notifier.SendConsentRequest(context.Background(), delivery))

	assert.Equal(t, "halima@example.com", sender.recipient)
	assert.Contains(t, sender.body, delivery.ApplicationID.String())
	assert.Contains(t, sender.body, delivery.ConsentID.String())
	assert.Contains(t, sender.body, "token=one-time-token")
}

func TestChannelNotifierPicksChannelAddress(t *testing.T) {
	sender := &recordingSender{}
	notifier := adapters.NewChannelNotifier(sender, "https://filing.example.com", slog.New(slog.DiscardHandler))

	require.NoError(t, notifier.SendConsentRequest(context.Background(),
		consentDelivery(models.ConsentMethodSMS)))
	assert.Equal(t, "+254700000001", sender.recipient)
}

func TestChannelNotifierRequiresAddress(t *testing.T) {
	notifier := adapters.NewChannelNotifier(&recordingSender{}, "https://filing.example.com",
		slog.New(slog.DiscardHandler))

	delivery := consentDelivery(models.ConsentMethodEmail)
	delivery.Email = ""
	err := notifier.SendConsentRequest(context.Background(), delivery)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
