package handler

import (
	"probata/internal/filing/models"
	"probata/internal/filing/service"
	dErrors "probata/pkg/domain-errors"
)

// CreateApplicationRequest opens a new filing.
type CreateApplicationRequest struct {
	Regime           string `json:"regime"`
	ReligiousCourt   bool   `json:"religious_court"`
	EstateValueCents int64  `json:"estate_value_cents"`
	HeirCount        int    `json:"heir_count"`
	HasMinorHeirs    bool   `json:"has_minor_heirs"`
	DeceasedName     string `json:"deceased_name"`
	Jurisdiction     string `json:"jurisdiction"`
}

func (r *CreateApplicationRequest) Validate() error {
	if _, err := models.ParseSuccessionRegime(r.Regime); err != nil {
		return err
	}
	return nil
}

// ToInput converts the request to the service input. Field-level rules
// beyond enum parsing stay in the domain constructor.
func (r *CreateApplicationRequest) ToInput() service.CreateApplicationInput {
	regime, _ := models.ParseSuccessionRegime(r.Regime)
	return service.CreateApplicationInput{
		Regime:           regime,
		ReligiousCourt:   r.ReligiousCourt,
		EstateValueCents: r.EstateValueCents,
		HeirCount:        r.HeirCount,
		HasMinorHeirs:    r.HasMinorHeirs,
		DeceasedName:     r.DeceasedName,
		Jurisdiction:     r.Jurisdiction,
	}
}

// SignDocumentRequest records one signatory on a document.
type SignDocumentRequest struct {
	SignatoryID string `json:"signatory_id"`
	Name        string `json:"name"`
}

func (r *SignDocumentRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "signatory name is required")
	}
	return nil
}

// CourtOutcomeRequest records a per-document court decision.
type CourtOutcomeRequest struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// PayFeeRequest records the filing fee payment.
type PayFeeRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

// FileRequest submits the application to the court.
type FileRequest struct {
	CourtCaseNumber string `json:"court_case_number"`
	FilingReceipt   string `json:"filing_receipt"`
}

func (r *FileRequest) Validate() error {
	if r.CourtCaseNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "court case number is required")
	}
	if r.FilingReceipt == "" {
		return dErrors.New(dErrors.CodeValidation, "filing receipt is required")
	}
	return nil
}

// AddConsentRequest registers a stakeholder who must consent.
type AddConsentRequest struct {
	StakeholderName string `json:"stakeholder_name"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Required        bool   `json:"required"`
}

func (r *AddConsentRequest) Validate() error {
	if r.StakeholderName == "" {
		return dErrors.New(dErrors.CodeValidation, "stakeholder name is required")
	}
	return nil
}

func (r *AddConsentRequest) ToInput() service.AddConsentInput {
	return service.AddConsentInput{
		StakeholderName: r.StakeholderName,
		Email:           r.Email,
		Phone:           r.Phone,
		Required:        r.Required,
	}
}

// SendConsentRequest dispatches (or re-dispatches) a consent request.
type SendConsentRequest struct {
	Method string `json:"method"`
}

func (r *SendConsentRequest) Validate() error {
	if _, err := models.ParseConsentMethod(r.Method); err != nil {
		return err
	}
	return nil
}

// ConsentResponseRequest is the stakeholder's answer, authenticated by the
// token from their consent link.
type ConsentResponseRequest struct {
	Token           string `json:"token"`
	Granted         bool   `json:"granted"`
	Reason          string `json:"reason,omitempty"`
	DeclineCategory string `json:"decline_category,omitempty"`
	Method          string `json:"method"`
}

func (r *ConsentResponseRequest) Validate() error {
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	if _, err := models.ParseConsentMethod(r.Method); err != nil {
		return err
	}
	if !r.Granted && r.DeclineCategory != "" {
		if _, err := models.ParseDeclineCategory(r.DeclineCategory); err != nil {
			return err
		}
	}
	return nil
}

func (r *ConsentResponseRequest) ToInput() service.ConsentResponseInput {
	method, _ := models.ParseConsentMethod(r.Method)
	input := service.ConsentResponseInput{
		Token:   r.Token,
		Granted: r.Granted,
		Reason:  r.Reason,
		Method:  method,
	}
	if !r.Granted && r.DeclineCategory != "" {
		category, _ := models.ParseDeclineCategory(r.DeclineCategory)
		input.DeclineCategory = category
	}
	return input
}

// ReasonRequest carries the single free-text reason used by withdrawal and
// rejection endpoints.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

func (r *ReasonRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// GrantRequest records the final grant issued by the court.
type GrantRequest struct {
	GrantNumber string `json:"grant_number"`
}

func (r *GrantRequest) Validate() error {
	if r.GrantNumber == "" {
		return dErrors.New(dErrors.CodeValidation, "grant number is required")
	}
	return nil
}
