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

func TestDocumentGenerationFlow(t *testing.T) {
	d, err := models.NewDocument(id.NewDocumentID(), models.DocTypePetition, 0, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusPendingGeneration, d.Status())
	assert.Equal(t, 0, d.CurrentVersion())
	_, ok := d.CurrentStorage()
	assert.False(t, ok)

	require.NoError(t, d.AttachVersion(storageRef(1), testNow))
	assert.Equal(t, models.DocStatusGenerated, d.Status())
	assert.Equal(t, 1, d.CurrentVersion())
	current, ok := d.CurrentStorage()
	require.True(t, ok)
	assert.Equal(t, storageRef(1).StorageURL, current.StorageURL)

	err = d.AttachVersion(storageRef(2), testNow)
	require.Error(t, err, "only pending documents accept an initial version")
}

func TestDocumentInvalidStorageRef(t *testing.T) {
	d, err := models.NewDocument(id.NewDocumentID(), models.DocTypePetition, 0, testNow)
	require.NoError(t, err)

	for name, ref := range map[string]models.StorageRef{
		"missing url":      {Checksum: "sha256:abc", SizeBytes: 10},
		"missing checksum": {StorageURL: "s3://b/k", SizeBytes: 10},
		"zero size":        {StorageURL: "s3://b/k", Checksum: "sha256:abc"},
	} {
		err := d.AttachVersion(ref, testNow)
		assert.Truef(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation), "%s should be refused", name)
	}
}

func TestDocumentSignatureCollection(t *testing.T) {
	d := generatedDoc(t, models.DocTypeHeirAffidavit, 2)
	require.NoError(t, d.Approve("registrar-1", testNow))
	require.NoError(t, d.RequestSignatures(testNow))
	assert.Equal(t, models.DocStatusSignaturePending, d.Status())

	first, second := id.NewStakeholderID(), id.NewStakeholderID()
	require.NoError(t, d.AddSignature(first, "Amina Yusuf", testNow))
	assert.Equal(t, models.DocStatusSignaturePending, d.Status())
	assert.False(t, d.IsFullySigned())

	err := d.AddSignature(first, "Amina Yusuf", testNow)
	require.Error(t, err, "one signature per signatory")

	require.NoError(t, d.AddSignature(second, "Halima Yusuf", testNow))
	assert.Equal(t, models.DocStatusSigned, d.Status())
	assert.True(t, d.IsFullySigned())
	assert.NoError(t, d.CanFile())
}

func TestDocumentCanFileRequiresSignatures(t *testing.T) {
	d := generatedDoc(t, models.DocTypePetition, 1)
	require.NoError(t, d.Approve("registrar-1", testNow))
	require.NoError(t, d.RequestSignatures(testNow))

	err := d.CanFile()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestDocumentRequestSignaturesWithoutSignatories(t *testing.T) {
	d := generatedDoc(t, models.DocTypePetition, 0)
	require.NoError(t, d.Approve("registrar-1", testNow))
	err := d.RequestSignatures(testNow)
	require.Error(t, err)
}

func TestDocumentAmendAfterCourtRejection(t *testing.T) {
	d := generatedDoc(t, models.DocTypePetition, 1)
	require.NoError(t, d.Approve("registrar-1", testNow))
	require.NoError(t, d.RequestSignatures(testNow))
	require.NoError(t, d.AddSignature(id.NewStakeholderID(), "Amina Yusuf", testNow))
	require.NoError(t, d.MarkFiled(testNow))
	require.NoError(t, d.RecordCourtOutcome(false, "illegible scan", testNow))
	require.Equal(t, models.DocStatusCourtRejected, d.Status())
	assert.Equal(t, "illegible scan", d.RejectionReason())

	later := testNow.Add(time.Hour)
	require.NoError(t, d.Amend(storageRef(2), later))
	assert.Equal(t, models.DocStatusSignaturePending, d.Status())
	assert.Equal(t, 2, d.CurrentVersion())
	assert.Empty(t, d.Signatures(), "amending voids collected signatures")
}

func TestDocumentCourtOutcomeRequiresReason(t *testing.T) {
	d := generatedDoc(t, models.DocTypePetition, 0)
	require.NoError(t, d.Approve("registrar-1", testNow))
	require.NoError(t, d.MarkFiled(testNow))

	err := d.RecordCourtOutcome(false, "", testNow)
	require.Error(t, err)

	require.NoError(t, d.RecordCourtOutcome(true, "", testNow))
	assert.Equal(t, models.DocStatusCourtAccepted, d.Status())
}

func TestDocumentSnapshotRoundTrip(t *testing.T) {
	d := generatedDoc(t, models.DocTypeEstateInventory, 1)
	require.NoError(t, d.Approve("registrar-1", testNow))
	require.NoError(t, d.RequestSignatures(testNow))
	require.NoError(t, d.AddSignature(id.NewStakeholderID(), "Amina Yusuf", testNow))

	restored, err := models.RestoreDocument(d.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, d.Snapshot(), restored.Snapshot())

	bad := d.Snapshot()
	bad.Status = "NOT_A_STATUS"
	_, err = models.RestoreDocument(bad)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
