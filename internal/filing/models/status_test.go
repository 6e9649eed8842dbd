package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probata/internal/filing/models"
)

func TestApplicationStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to models.ApplicationStatus
		allowed  bool
	}{
		{models.StatusDraft, models.StatusPendingReview, true},
		{models.StatusDraft, models.StatusWithdrawn, true},
		{models.StatusDraft, models.StatusFiled, false},
		{models.StatusPendingReview, models.StatusPendingConsents, true},
		{models.StatusPendingConsents, models.StatusReadyToFile, true},
		{models.StatusReadyToFile, models.StatusFiled, true},
		{models.StatusReadyToFile, models.StatusPendingConsents, true},
		{models.StatusFiled, models.StatusCourtReview, true},
		{models.StatusFiled, models.StatusGranted, true},
		{models.StatusFiled, models.StatusDraft, false},
		{models.StatusCourtReview, models.StatusRejected, true},
		{models.StatusGranted, models.StatusWithdrawn, false},
		{models.StatusRejected, models.StatusDraft, false},
		{models.StatusWithdrawn, models.StatusDraft, false},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestApplicationStatusTerminality(t *testing.T) {
	terminal := []models.ApplicationStatus{models.StatusGranted, models.StatusRejected, models.StatusWithdrawn}
	for _, s := range terminal {
		assert.Truef(t, s.IsTerminal(), "%s is terminal", s)
	}
	active := []models.ApplicationStatus{
		models.StatusDraft, models.StatusPendingReview, models.StatusPendingConsents,
		models.StatusReadyToFile, models.StatusFiled, models.StatusCourtReview,
	}
	for _, s := range active {
		assert.Falsef(t, s.IsTerminal(), "%s is active", s)
	}
}

func TestDocumentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to models.DocumentStatus
		allowed  bool
	}{
		{models.DocStatusPendingGeneration, models.DocStatusGenerated, true},
		{models.DocStatusGenerated, models.DocStatusUnderReview, true},
		{models.DocStatusGenerated, models.DocStatusApproved, true},
		{models.DocStatusApproved, models.DocStatusSignaturePending, true},
		{models.DocStatusApproved, models.DocStatusFiled, true},
		{models.DocStatusSignaturePending, models.DocStatusSigned, true},
		{models.DocStatusSigned, models.DocStatusFiled, true},
		{models.DocStatusFiled, models.DocStatusCourtAccepted, true},
		{models.DocStatusFiled, models.DocStatusCourtRejected, true},
		{models.DocStatusCourtRejected, models.DocStatusSignaturePending, true},
		{models.DocStatusCourtRejected, models.DocStatusGenerated, true},
		{models.DocStatusCourtAccepted, models.DocStatusGenerated, false},
		{models.DocStatusSuperseded, models.DocStatusGenerated, false},
		{models.DocStatusFiled, models.DocStatusGenerated, false},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStatusParsers(t *testing.T) {
	s, err := models.ParseApplicationStatus("READY_TO_FILE")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReadyToFile, s)
	_, err = models.ParseApplicationStatus("ready_to_file")
	assert.Error(t, err)

	d, err := models.ParseDocumentStatus("COURT_REJECTED")
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusCourtRejected, d)
	_, err = models.ParseDocumentStatus("LOST")
	assert.Error(t, err)

	c, err := models.ParseConsentStatus("PENDING")
	require.NoError(t, err)
	assert.Equal(t, models.ConsentPending, c)
	_, err = models.ParseConsentStatus("MAYBE")
	assert.Error(t, err)

	m, err := models.ParseConsentMethod("SMS")
	require.NoError(t, err)
	assert.Equal(t, models.ConsentMethodSMS, m)
	_, err = models.ParseConsentMethod("FAX")
	assert.Error(t, err)
}
