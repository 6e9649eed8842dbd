package models

import (
	dErrors "probata/pkg/domain-errors"
)

// ApplicationStatus is the lifecycle state of a probate application.
//
// Transitions are defined in applicationTransitions; every mutator checks the
// table instead of scattering status conditionals, so adding a status forces
// the table (and the exhaustive mutability switch in application.go) to be
// revisited.
type ApplicationStatus string

const (
	StatusDraft           ApplicationStatus = "DRAFT"
	StatusPendingReview   ApplicationStatus = "PENDING_REVIEW"
	StatusPendingConsents ApplicationStatus = "PENDING_CONSENTS"
	StatusReadyToFile     ApplicationStatus = "READY_TO_FILE"
	StatusFiled           ApplicationStatus = "FILED"
	StatusCourtReview     ApplicationStatus = "COURT_REVIEW"
	StatusGranted         ApplicationStatus = "GRANTED"
	StatusRejected        ApplicationStatus = "REJECTED"
	StatusWithdrawn       ApplicationStatus = "WITHDRAWN"
)

var applicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusDraft:           {StatusPendingReview, StatusWithdrawn},
	StatusPendingReview:   {StatusPendingConsents, StatusWithdrawn},
	StatusPendingConsents: {StatusReadyToFile, StatusWithdrawn},
	// A withdrawn consent reopens the gate, so READY_TO_FILE can fall back.
	StatusReadyToFile: {StatusFiled, StatusPendingConsents, StatusWithdrawn},
	StatusFiled:       {StatusCourtReview, StatusGranted, StatusRejected, StatusWithdrawn},
	StatusCourtReview: {StatusGranted, StatusRejected, StatusWithdrawn},
	StatusGranted:     {},
	StatusRejected:    {},
	StatusWithdrawn:   {},
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s ApplicationStatus) CanTransitionTo(target ApplicationStatus) bool {
	for _, allowed := range applicationTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from s.
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

// IsValid reports whether s is a known application status.
func (s ApplicationStatus) IsValid() bool {
	_, ok := applicationTransitions[s]
	return ok
}

func (s ApplicationStatus) String() string { return string(s) }

// ParseApplicationStatus validates external input (persistence rows, query
// params) into an ApplicationStatus.
func ParseApplicationStatus(s string) (ApplicationStatus, error) {
	status := ApplicationStatus(s)
	if !status.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown application status %q", s)
	}
	return status, nil
}

// DocumentStatus is the lifecycle state of one generated document.
type DocumentStatus string

const (
	DocStatusPendingGeneration DocumentStatus = "PENDING_GENERATION"
	DocStatusGenerated         DocumentStatus = "GENERATED"
	DocStatusUnderReview       DocumentStatus = "UNDER_REVIEW"
	DocStatusApproved          DocumentStatus = "APPROVED"
	DocStatusSignaturePending  DocumentStatus = "SIGNATURE_PENDING"
	DocStatusSigned            DocumentStatus = "SIGNED"
	DocStatusFiled             DocumentStatus = "FILED"
	DocStatusCourtAccepted     DocumentStatus = "COURT_ACCEPTED"
	DocStatusCourtRejected     DocumentStatus = "COURT_REJECTED"
	DocStatusSuperseded        DocumentStatus = "SUPERSEDED"
)

// Forward-only, except COURT_REJECTED which re-enters the signing flow via
// amendment. SUPERSEDED is reachable from any pre-filing state.
var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocStatusPendingGeneration: {DocStatusGenerated, DocStatusSuperseded},
	DocStatusGenerated:         {DocStatusUnderReview, DocStatusApproved, DocStatusSuperseded},
	DocStatusUnderReview:       {DocStatusApproved, DocStatusSuperseded},
	DocStatusApproved:          {DocStatusSignaturePending, DocStatusFiled, DocStatusSuperseded},
	DocStatusSignaturePending:  {DocStatusSigned, DocStatusSuperseded},
	DocStatusSigned:            {DocStatusFiled, DocStatusSuperseded},
	DocStatusFiled:             {DocStatusCourtAccepted, DocStatusCourtRejected},
	DocStatusCourtAccepted:     {},
	DocStatusCourtRejected:     {DocStatusSignaturePending, DocStatusGenerated},
	DocStatusSuperseded:        {},
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s DocumentStatus) CanTransitionTo(target DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known document status.
func (s DocumentStatus) IsValid() bool {
	_, ok := documentTransitions[s]
	return ok
}

// IsApprovedOrLater reports whether the document has cleared review. This is
// the per-document half of the readiness gate's first condition.
func (s DocumentStatus) IsApprovedOrLater() bool {
	switch s {
	case DocStatusApproved, DocStatusSignaturePending, DocStatusSigned, DocStatusFiled, DocStatusCourtAccepted:
		return true
	default:
		return false
	}
}

func (s DocumentStatus) String() string { return string(s) }

// ParseDocumentStatus validates external input into a DocumentStatus.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	status := DocumentStatus(s)
	if !status.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown document status %q", s)
	}
	return status, nil
}

// DocumentType identifies which generated artifact a document is.
type DocumentType string

const (
	DocTypePetition          DocumentType = "PETITION"
	DocTypeHeirAffidavit     DocumentType = "HEIR_AFFIDAVIT"
	DocTypeEstateInventory   DocumentType = "ESTATE_INVENTORY"
	DocTypeWillAnnexure      DocumentType = "WILL_ANNEXURE"
	DocTypeGuardianshipAnnex DocumentType = "GUARDIANSHIP_ANNEX"
	DocTypeFeeStatement      DocumentType = "FEE_STATEMENT"
)

var validDocumentTypes = map[DocumentType]bool{
	DocTypePetition:          true,
	DocTypeHeirAffidavit:     true,
	DocTypeEstateInventory:   true,
	DocTypeWillAnnexure:      true,
	DocTypeGuardianshipAnnex: true,
	DocTypeFeeStatement:      true,
}

// IsValid reports whether t is a known document type.
func (t DocumentType) IsValid() bool { return validDocumentTypes[t] }

// IsPrimary reports whether t is the primary petition document. An
// application cannot leave DRAFT without one.
func (t DocumentType) IsPrimary() bool { return t == DocTypePetition }

func (t DocumentType) String() string { return string(t) }

// ParseDocumentType validates external input into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !t.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown document type %q", s)
	}
	return t, nil
}

// ConsentStatus is the lifecycle state of one stakeholder consent record.
type ConsentStatus string

const (
	ConsentNotRequired ConsentStatus = "NOT_REQUIRED"
	ConsentPending     ConsentStatus = "PENDING"
	ConsentGranted     ConsentStatus = "GRANTED"
	ConsentDeclined    ConsentStatus = "DECLINED"
	ConsentWithdrawn   ConsentStatus = "WITHDRAWN"
)

var consentTransitions = map[ConsentStatus][]ConsentStatus{
	ConsentNotRequired: {},
	ConsentPending:     {ConsentGranted, ConsentDeclined},
	ConsentGranted:     {ConsentWithdrawn},
	ConsentDeclined:    {},
	ConsentWithdrawn:   {ConsentPending},
}

// CanTransitionTo reports whether the transition table allows s -> target.
func (s ConsentStatus) CanTransitionTo(target ConsentStatus) bool {
	for _, allowed := range consentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known consent status.
func (s ConsentStatus) IsValid() bool {
	_, ok := consentTransitions[s]
	return ok
}

// CountsTowardGate reports whether this consent participates in the "all
// required consents received" readiness condition.
func (s ConsentStatus) CountsTowardGate() bool { return s != ConsentNotRequired }

func (s ConsentStatus) String() string { return string(s) }

// ParseConsentStatus validates external input into a ConsentStatus.
func ParseConsentStatus(s string) (ConsentStatus, error) {
	status := ConsentStatus(s)
	if !status.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown consent status %q", s)
	}
	return status, nil
}

// ConsentMethod is how a consent request was delivered or a response captured.
type ConsentMethod string

const (
	ConsentMethodEmail    ConsentMethod = "EMAIL"
	ConsentMethodSMS      ConsentMethod = "SMS"
	ConsentMethodInPerson ConsentMethod = "IN_PERSON"
	ConsentMethodPostal   ConsentMethod = "POSTAL"
)

var validConsentMethods = map[ConsentMethod]bool{
	ConsentMethodEmail:    true,
	ConsentMethodSMS:      true,
	ConsentMethodInPerson: true,
	ConsentMethodPostal:   true,
}

// IsValid reports whether m is a known consent method.
func (m ConsentMethod) IsValid() bool { return validConsentMethods[m] }

func (m ConsentMethod) String() string { return string(m) }

// ParseConsentMethod validates external input into a ConsentMethod.
func ParseConsentMethod(s string) (ConsentMethod, error) {
	m := ConsentMethod(s)
	if !m.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown consent method %q", s)
	}
	return m, nil
}

// DeclineCategory classifies why a stakeholder declined.
type DeclineCategory string

const (
	DeclineWillDispute DeclineCategory = "WILL_DISPUTE"
	DeclineShareClaim  DeclineCategory = "SHARE_CLAIM"
	DeclineProcedural  DeclineCategory = "PROCEDURAL"
	DeclineOther       DeclineCategory = "OTHER"
)

var validDeclineCategories = map[DeclineCategory]bool{
	DeclineWillDispute: true,
	DeclineShareClaim:  true,
	DeclineProcedural:  true,
	DeclineOther:       true,
}

// IsValid reports whether c is a known decline category.
func (c DeclineCategory) IsValid() bool { return validDeclineCategories[c] }

func (c DeclineCategory) String() string { return string(c) }

// ParseDeclineCategory validates external input into a DeclineCategory.
func ParseDeclineCategory(s string) (DeclineCategory, error) {
	c := DeclineCategory(s)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown decline category %q", s)
	}
	return c, nil
}
