package handler

import (
	"time"

	"probata/internal/filing/models"
	id "probata/pkg/domain"
)

// ApplicationResponse is the wire shape of a full application snapshot.
type ApplicationResponse struct {
	ID             id.ApplicationID        `json:"id"`
	Version        int64                   `json:"version"`
	Status         string                  `json:"status"`
	Regime         models.SuccessionRegime `json:"regime"`
	ReligiousCourt bool                    `json:"religious_court"`
	EstateValue    int64                   `json:"estate_value_cents"`
	HeirCount      int                     `json:"heir_count"`
	HasMinorHeirs  bool                    `json:"has_minor_heirs"`
	DeceasedName   string                  `json:"deceased_name"`
	Jurisdiction   string                  `json:"jurisdiction"`

	Documents []DocumentResponse `json:"documents"`
	Consents  []ConsentResponse  `json:"consents"`

	FeePaid        bool       `json:"fee_paid"`
	FeeAmountCents int64      `json:"fee_amount_cents,omitempty"`
	FeePaidAt      *time.Time `json:"fee_paid_at,omitempty"`

	CourtCaseNumber string     `json:"court_case_number,omitempty"`
	FilingReceipt   string     `json:"filing_receipt,omitempty"`
	FiledAt         *time.Time `json:"filed_at,omitempty"`

	ReviewedBy string     `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`

	GrantNumber string     `json:"grant_number,omitempty"`
	GrantedAt   *time.Time `json:"granted_at,omitempty"`

	RejectionReason string     `json:"rejection_reason,omitempty"`
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`

	WithdrawalReason string     `json:"withdrawal_reason,omitempty"`
	WithdrawnAt      *time.Time `json:"withdrawn_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DocumentResponse struct {
	ID                  id.DocumentID             `json:"id"`
	Type                models.DocumentType       `json:"type"`
	Status              string                    `json:"status"`
	CurrentVersion      int                       `json:"current_version"`
	Versions            []DocumentVersionResponse `json:"versions"`
	Signatures          []SignatureResponse       `json:"signatures,omitempty"`
	RequiredSignatories int                       `json:"required_signatories"`
	ApprovedBy          string                    `json:"approved_by,omitempty"`
	ApprovedAt          *time.Time                `json:"approved_at,omitempty"`
	RejectionReason     string                    `json:"rejection_reason,omitempty"`
	CreatedAt           time.Time                 `json:"created_at"`
	UpdatedAt           time.Time                 `json:"updated_at"`
}

type DocumentVersionResponse struct {
	Number     int       `json:"number"`
	StorageURL string    `json:"storage_url"`
	Checksum   string    `json:"checksum"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
}

type SignatureResponse struct {
	SignatoryID id.StakeholderID `json:"signatory_id"`
	Name        string           `json:"name"`
	SignedAt    time.Time        `json:"signed_at"`
}

// ConsentResponse deliberately omits the token hash; it never leaves the
// service boundary.
type ConsentResponse struct {
	ID              id.ConsentID     `json:"id"`
	StakeholderID   id.StakeholderID `json:"stakeholder_id"`
	StakeholderName string           `json:"stakeholder_name"`
	Email           string           `json:"email,omitempty"`
	Phone           string           `json:"phone,omitempty"`
	Status          string           `json:"status"`
	RequestMethod   string           `json:"request_method,omitempty"`
	SentAt          *time.Time       `json:"sent_at,omitempty"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	RespondedAt     *time.Time       `json:"responded_at,omitempty"`
	DeclineReason   string           `json:"decline_reason,omitempty"`
	DeclineCategory string           `json:"decline_category,omitempty"`
	WithdrawReason  string           `json:"withdraw_reason,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

type ReadinessResponse struct {
	Ready              bool     `json:"ready"`
	DocumentsApproved  bool     `json:"documents_approved"`
	ConsentsGranted    bool     `json:"consents_granted"`
	NoDeclinedConsents bool     `json:"no_declined_consents"`
	FeePaid            bool     `json:"fee_paid"`
	Unmet              []string `json:"unmet"`
}

// FromState converts a persistence snapshot into the API response.
func FromState(state models.ApplicationState) ApplicationResponse {
	resp := ApplicationResponse{
		ID:               state.ID,
		Version:          state.Version,
		Status:           state.Status.String(),
		Regime:           state.Regime,
		ReligiousCourt:   state.ReligiousCourt,
		EstateValue:      state.EstateValue,
		HeirCount:        state.HeirCount,
		HasMinorHeirs:    state.HasMinorHeirs,
		DeceasedName:     state.DeceasedName,
		Jurisdiction:     state.Jurisdiction,
		Documents:        make([]DocumentResponse, 0, len(state.Documents)),
		Consents:         make([]ConsentResponse, 0, len(state.Consents)),
		FeePaid:          state.FeePaid,
		FeeAmountCents:   state.FeeAmountCents,
		FeePaidAt:        state.FeePaidAt,
		CourtCaseNumber:  state.CourtCaseNumber,
		FilingReceipt:    state.FilingReceipt,
		FiledAt:          state.FiledAt,
		ReviewedBy:       state.ReviewedBy,
		ReviewedAt:       state.ReviewedAt,
		GrantNumber:      state.GrantNumber,
		GrantedAt:        state.GrantedAt,
		RejectionReason:  state.RejectionReason,
		RejectedAt:       state.RejectedAt,
		WithdrawalReason: state.WithdrawalReason,
		WithdrawnAt:      state.WithdrawnAt,
		CreatedAt:        state.CreatedAt,
		UpdatedAt:        state.UpdatedAt,
	}
	for _, d := range state.Documents {
		resp.Documents = append(resp.Documents, fromDocumentState(d))
	}
	for _, c := range state.Consents {
		resp.Consents = append(resp.Consents, fromConsentState(c))
	}
	return resp
}

func fromDocumentState(d models.DocumentState) DocumentResponse {
	doc := DocumentResponse{
		ID:                  d.ID,
		Type:                d.Type,
		Status:              d.Status.String(),
		CurrentVersion:      len(d.Versions),
		Versions:            make([]DocumentVersionResponse, 0, len(d.Versions)),
		RequiredSignatories: d.RequiredSignatories,
		ApprovedBy:          d.ApprovedBy,
		ApprovedAt:          d.ApprovedAt,
		RejectionReason:     d.RejectionReason,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
	}
	for _, v := range d.Versions {
		doc.Versions = append(doc.Versions, DocumentVersionResponse(v))
	}
	for _, s := range d.Signatures {
		doc.Signatures = append(doc.Signatures, SignatureResponse(s))
	}
	return doc
}

func fromConsentState(c models.ConsentState) ConsentResponse {
	return ConsentResponse{
		ID:              c.ID,
		StakeholderID:   c.StakeholderID,
		StakeholderName: c.StakeholderName,
		Email:           c.Email,
		Phone:           c.Phone,
		Status:          c.Status.String(),
		RequestMethod:   c.RequestMethod.String(),
		SentAt:          c.SentAt,
		ExpiresAt:       c.ExpiresAt,
		RespondedAt:     c.RespondedAt,
		DeclineReason:   c.DeclineReason,
		DeclineCategory: c.DeclineCategory.String(),
		WithdrawReason:  c.WithdrawReason,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// FromReadiness converts a readiness report into the API response.
func FromReadiness(r models.ReadinessReport) ReadinessResponse {
	unmet := r.UnmetConditions()
	if unmet == nil {
		unmet = []string{}
	}
	return ReadinessResponse{
		Ready:              r.Ready(),
		DocumentsApproved:  r.DocumentsApproved,
		ConsentsGranted:    r.ConsentsGranted,
		NoDeclinedConsents: r.NoDeclinedConsents,
		FeePaid:            r.FeePaid,
		Unmet:              unmet,
	}
}
