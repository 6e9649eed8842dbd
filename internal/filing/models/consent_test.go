package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
)

func pendingConsent(t *testing.T) *models.Consent {
	t.Helper()
	c, err := models.NewConsent(id.NewConsentID(), id.NewStakeholderID(),
		"Halima Yusuf", "halima@example.com", "+254700000001", true, testNow)
	require.NoError(t, err)
	return c
}

func sentConsent(t *testing.T, expiresAt time.Time) *models.Consent {
	t.Helper()
	c := pendingConsent(t)
	require.NoError(t, c.Send(models.ConsentMethodEmail, "hash-1", expiresAt, testNow))
	return c
}

func TestConsentNotRequiredDoesNotCountTowardGate(t *testing.T) {
	c, err := models.NewConsent(id.NewConsentID(), id.NewStakeholderID(),
		"Amina Yusuf", "amina@example.com", "", false, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.ConsentNotRequired, c.Status())
	assert.False(t, c.Status().CountsTowardGate())

	err = c.Send(models.ConsentMethodEmail, "hash-1", testNow.Add(time.Hour), testNow)
	require.Error(t, err, "a not-required consent is never dispatched")
}

func TestConsentSendValidation(t *testing.T) {
	c := pendingConsent(t)

	err := c.Send(models.ConsentMethodEmail, "", testNow.Add(time.Hour), testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	err = c.Send(models.ConsentMethodEmail, "hash-1", testNow.Add(-time.Hour), testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	err = c.Send("CARRIER_PIGEON", "hash-1", testNow.Add(time.Hour), testNow)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	require.NoError(t, c.Send(models.ConsentMethodEmail, "hash-1", testNow.Add(time.Hour), testNow))
	require.NotNil(t, c.SentAt())

	err = c.Send(models.ConsentMethodEmail, "hash-2", testNow.Add(time.Hour), testNow)
	require.Error(t, err, "already sent")
}

func TestConsentCannotRespondBeforeSend(t *testing.T) {
	c := pendingConsent(t)
	err := c.RecordGranted(models.ResponseMeta{Method: models.ConsentMethodEmail}, testNow)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestConsentExpiredTokenRejected(t *testing.T) {
	c := sentConsent(t, testNow.Add(time.Hour))
	afterExpiry := testNow.Add(2 * time.Hour)
	assert.True(t, c.IsExpired(afterExpiry))

	err := c.RecordGranted(models.ResponseMeta{Method: models.ConsentMethodEmail}, afterExpiry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestConsentResendOnlyWhenExpired(t *testing.T) {
	c := sentConsent(t, testNow.Add(time.Hour))

	err := c.Resend(models.ConsentMethodSMS, "hash-2", testNow.Add(2*time.Hour), testNow)
	require.Error(t, err, "unexpired request cannot be re-sent")

	afterExpiry := testNow.Add(2 * time.Hour)
	require.NoError(t, c.Resend(models.ConsentMethodSMS, "hash-2", afterExpiry.Add(time.Hour), afterExpiry))
	assert.Equal(t, "hash-2", c.TokenHash())
	assert.Equal(t, models.ConsentMethodSMS, c.RequestMethod())

	require.NoError(t, c.RecordGranted(models.ResponseMeta{Method: models.ConsentMethodSMS}, afterExpiry))
	assert.Equal(t, models.ConsentGranted, c.Status())
}

func TestConsentGrantRecordsResponseMetadata(t *testing.T) {
	c := sentConsent(t, testNow.Add(72*time.Hour))
	meta := models.ResponseMeta{IP: "203.0.113.7", Device: "Chrome on Android", Method: models.ConsentMethodEmail}
	require.NoError(t, c.RecordGranted(meta, testNow.Add(time.Hour)))

	assert.Equal(t, models.ConsentGranted, c.Status())
	assert.Equal(t, meta, c.Response())
	require.NotNil(t, c.RespondedAt())
}

func TestConsentDeclineRequiresReason(t *testing.T) {
	c := sentConsent(t, testNow.Add(72*time.Hour))

	err := c.RecordDeclined("", models.DeclineOther, models.ResponseMeta{}, testNow)
	require.Error(t, err)

	require.NoError(t, c.RecordDeclined("contests the will", models.DeclineWillDispute,
		models.ResponseMeta{Method: models.ConsentMethodEmail}, testNow))
	assert.Equal(t, models.ConsentDeclined, c.Status())
	assert.Equal(t, "contests the will", c.DeclineReason())
	assert.Equal(t, models.DeclineWillDispute, c.DeclineCategory())

	err = c.RecordWithdrawn("too late", testNow)
	require.Error(t, err, "declined is terminal")
}

func TestConsentWithdrawAndReRequest(t *testing.T) {
	c := sentConsent(t, testNow.Add(72*time.Hour))
	require.NoError(t, c.RecordGranted(models.ResponseMeta{Method: models.ConsentMethodEmail}, testNow))

	require.NoError(t, c.RecordWithdrawn("changed my mind", testNow))
	assert.Equal(t, models.ConsentWithdrawn, c.Status())
	assert.Equal(t, "changed my mind", c.WithdrawReason())

	require.NoError(t, c.Resend(models.ConsentMethodEmail, "hash-2", testNow.Add(96*time.Hour), testNow))
	assert.Equal(t, models.ConsentPending, c.Status())
	assert.Empty(t, c.WithdrawReason())
	assert.Nil(t, c.RespondedAt())

	require.NoError(t, c.RecordGranted(models.ResponseMeta{Method: models.ConsentMethodEmail}, testNow))
	assert.Equal(t, models.ConsentGranted, c.Status())
}

func TestConsentSnapshotRoundTrip(t *testing.T) {
	c := sentConsent(t, testNow.Add(72*time.Hour))
	require.NoError(t, c.RecordDeclined("disputed share", models.DeclineShareClaim,
		models.ResponseMeta{IP: "203.0.113.7", Method: models.ConsentMethodEmail}, testNow))

	restored, err := models.RestoreConsent(c.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, c.Snapshot(), restored.Snapshot())
}
