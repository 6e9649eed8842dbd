package models

import (
	"time"

	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
)

// ApplicationState is the persistence snapshot of the whole aggregate. It is
// the only way state crosses the package boundary in either direction;
// repositories never touch live entities.
type ApplicationState struct {
	ID      id.ApplicationID
	Version int64

	Regime         SuccessionRegime
	ReligiousCourt bool
	EstateValue    int64
	HeirCount      int
	HasMinorHeirs  bool
	DeceasedName   string
	Jurisdiction   string

	Status ApplicationStatus

	Documents []DocumentState
	Consents  []ConsentState

	FeePaid        bool
	FeeAmountCents int64
	FeePaidAt      *time.Time

	CourtCaseNumber string
	FilingReceipt   string
	FiledAt         *time.Time

	ReviewedBy string
	ReviewedAt *time.Time

	GrantNumber string
	GrantedAt   *time.Time

	RejectionReason string
	RejectedAt      *time.Time

	WithdrawalReason string
	WithdrawnAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot exports the aggregate for persistence. Buffered events are not
// part of the snapshot; the caller drains them separately with PullEvents.
func (a *Application) Snapshot() ApplicationState {
	return ApplicationState{
		ID:               a.id,
		Version:          a.version,
		Regime:           a.context.regime,
		ReligiousCourt:   a.context.religiousCourt,
		EstateValue:      a.context.estateValue,
		HeirCount:        a.context.heirCount,
		HasMinorHeirs:    a.context.hasMinorHeirs,
		DeceasedName:     a.context.deceasedName,
		Jurisdiction:     a.context.jurisdiction,
		Status:           a.status,
		Documents:        a.Documents(),
		Consents:         a.Consents(),
		FeePaid:          a.feePaid,
		FeeAmountCents:   a.feeAmount,
		FeePaidAt:        cloneTime(a.feePaidAt),
		CourtCaseNumber:  a.caseNumber,
		FilingReceipt:    a.receipt,
		FiledAt:          cloneTime(a.filedAt),
		ReviewedBy:       a.reviewedBy,
		ReviewedAt:       cloneTime(a.reviewedAt),
		GrantNumber:      a.grantNumber,
		GrantedAt:        cloneTime(a.grantedAt),
		RejectionReason:  a.rejectReason,
		RejectedAt:       cloneTime(a.rejectedAt),
		WithdrawalReason: a.withdrawWhy,
		WithdrawnAt:      cloneTime(a.withdrawnAt),
		CreatedAt:        a.createdAt,
		UpdatedAt:        a.updatedAt,
	}
}

// RestoreApplication rebuilds the aggregate from a persistence snapshot and
// runs the full Validate pass, so corrupted rows are refused at load time.
// The restored aggregate's persisted version equals its version.
func RestoreApplication(s ApplicationState) (*Application, error) {
	if s.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "application id is required")
	}
	if s.Version < 1 {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid application version %d", s.Version)
	}
	fctx, err := NewFilingContext(s.Regime, s.ReligiousCourt, s.EstateValue, s.HeirCount, s.HasMinorHeirs, s.DeceasedName, s.Jurisdiction)
	if err != nil {
		return nil, err
	}
	a := &Application{
		id:               s.ID,
		version:          s.Version,
		persistedVersion: s.Version,
		context:          fctx,
		status:           s.Status,
		feePaid:          s.FeePaid,
		feeAmount:        s.FeeAmountCents,
		feePaidAt:        cloneTime(s.FeePaidAt),
		caseNumber:       s.CourtCaseNumber,
		receipt:          s.FilingReceipt,
		filedAt:          cloneTime(s.FiledAt),
		reviewedBy:       s.ReviewedBy,
		reviewedAt:       cloneTime(s.ReviewedAt),
		grantNumber:      s.GrantNumber,
		grantedAt:        cloneTime(s.GrantedAt),
		rejectReason:     s.RejectionReason,
		rejectedAt:       cloneTime(s.RejectedAt),
		withdrawWhy:      s.WithdrawalReason,
		withdrawnAt:      cloneTime(s.WithdrawnAt),
		createdAt:        s.CreatedAt,
		updatedAt:        s.UpdatedAt,
	}
	for _, ds := range s.Documents {
		d, err := RestoreDocument(ds)
		if err != nil {
			return nil, err
		}
		a.documents = append(a.documents, d)
	}
	for _, cs := range s.Consents {
		c, err := RestoreConsent(cs)
		if err != nil {
			return nil, err
		}
		a.consents = append(a.consents, c)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}
