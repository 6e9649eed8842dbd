package models

import (
	"time"

	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
)

// ReadinessReport is the recomputed filing gate. It is derived from child
// state on every call; no stored flag is trusted independently of
// recomputation, so the gate cannot drift from the collections.
type ReadinessReport struct {
	// DocumentsApproved: at least one non-superseded document exists and
	// every one of them has cleared review.
	DocumentsApproved bool
	// ConsentsGranted: every consent participating in the gate is GRANTED.
	ConsentsGranted bool
	// NoDeclinedConsents: no stakeholder has declined.
	NoDeclinedConsents bool
	// FeePaid: the filing fee has been recorded as paid.
	FeePaid bool
}

// Ready reports whether all four conditions hold simultaneously.
func (r ReadinessReport) Ready() bool {
	return r.DocumentsApproved && r.ConsentsGranted && r.NoDeclinedConsents && r.FeePaid
}

// UnmetConditions names the failed conditions, in gate order.
func (r ReadinessReport) UnmetConditions() []string {
	var unmet []string
	if !r.DocumentsApproved {
		unmet = append(unmet, "documents_approved")
	}
	if !r.ConsentsGranted {
		unmet = append(unmet, "consents_granted")
	}
	if !r.NoDeclinedConsents {
		unmet = append(unmet, "no_declined_consents")
	}
	if !r.FeePaid {
		unmet = append(unmet, "fee_paid")
	}
	return unmet
}

// Details renders the report as a structured error payload.
func (r ReadinessReport) Details() map[string]any {
	return map[string]any{
		"documents_approved":   r.DocumentsApproved,
		"consents_granted":     r.ConsentsGranted,
		"no_declined_consents": r.NoDeclinedConsents,
		"fee_paid":             r.FeePaid,
		"unmet":                r.UnmetConditions(),
	}
}

// Application is the aggregate root for one probate filing.
//
// Invariants:
//   - documents are unique by (type, non-superseded); superseding replaces
//     logically, never deletes
//   - consents are unique by stakeholder
//   - status FILED <=> filedAt is set; the same coupling holds for the
//     stamped facts of every terminal status
//   - READY_TO_FILE holds only while all four readiness conditions hold
//   - once FILED, only court-response operations mutate the aggregate;
//     GRANTED, REJECTED and WITHDRAWN are immutable
//
// The aggregate performs no I/O. Every mutator takes the command time
// explicitly, validates before mutating (a failed operation leaves no
// observable change), bumps the version once, and appends events for the
// caller to drain after a successful save.
type Application struct {
	id               id.ApplicationID
	version          int64
	persistedVersion int64
	context          FilingContext
	status           ApplicationStatus
	documents        []*Document
	consents         []*Consent

	feePaid      bool
	feeAmount    int64
	feePaidAt    *time.Time
	caseNumber   string
	receipt      string
	filedAt      *time.Time
	reviewedBy   string
	reviewedAt   *time.Time
	grantNumber  string
	grantedAt    *time.Time
	rejectReason string
	rejectedAt   *time.Time
	withdrawWhy  string
	withdrawnAt  *time.Time

	createdAt time.Time
	updatedAt time.Time
	events    []Event
}

// NewApplication creates a DRAFT application for the given classification.
func NewApplication(applicationID id.ApplicationID, fctx FilingContext, now time.Time) (*Application, error) {
	if applicationID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "application id is required")
	}
	a := &Application{
		id:        applicationID,
		context:   fctx,
		status:    StatusDraft,
		createdAt: now,
		updatedAt: now,
	}
	a.touch(now)
	a.record(EventApplicationCreated, now, map[string]any{
		"regime":      fctx.Regime().String(),
		"court_track": string(fctx.CourtTrack()),
	})
	return a, nil
}

func (a *Application) ID() id.ApplicationID      { return a.id }
func (a *Application) Version() int64            { return a.version }
func (a *Application) PersistedVersion() int64   { return a.persistedVersion }
func (a *Application) Context() FilingContext    { return a.context }
func (a *Application) Status() ApplicationStatus { return a.status }
func (a *Application) CreatedAt() time.Time      { return a.createdAt }
func (a *Application) UpdatedAt() time.Time      { return a.updatedAt }

func (a *Application) FeePaid() bool            { return a.feePaid }
func (a *Application) FeeAmountCents() int64    { return a.feeAmount }
func (a *Application) FeePaidAt() *time.Time    { return cloneTime(a.feePaidAt) }
func (a *Application) CourtCaseNumber() string  { return a.caseNumber }
func (a *Application) FilingReceipt() string    { return a.receipt }
func (a *Application) FiledAt() *time.Time      { return cloneTime(a.filedAt) }
func (a *Application) ReviewedBy() string       { return a.reviewedBy }
func (a *Application) ReviewedAt() *time.Time   { return cloneTime(a.reviewedAt) }
func (a *Application) GrantNumber() string      { return a.grantNumber }
func (a *Application) GrantedAt() *time.Time    { return cloneTime(a.grantedAt) }
func (a *Application) RejectionReason() string  { return a.rejectReason }
func (a *Application) RejectedAt() *time.Time   { return cloneTime(a.rejectedAt) }
func (a *Application) WithdrawalReason() string { return a.withdrawWhy }
func (a *Application) WithdrawnAt() *time.Time  { return cloneTime(a.withdrawnAt) }

// MarkPersisted records that the current version has been saved. Called by
// repository implementations after a successful save.
func (a *Application) MarkPersisted() { a.persistedVersion = a.version }

// Documents returns snapshots of all documents, superseded ones included.
func (a *Application) Documents() []DocumentState {
	out := make([]DocumentState, 0, len(a.documents))
	for _, d := range a.documents {
		out = append(out, d.Snapshot())
	}
	return out
}

// Consents returns snapshots of all consent records.
func (a *Application) Consents() []ConsentState {
	out := make([]ConsentState, 0, len(a.consents))
	for _, c := range a.consents {
		out = append(out, c.Snapshot())
	}
	return out
}

// DocumentByID returns a snapshot of one document.
func (a *Application) DocumentByID(documentID id.DocumentID) (DocumentState, error) {
	d, err := a.document(documentID)
	if err != nil {
		return DocumentState{}, err
	}
	return d.Snapshot(), nil
}

// ConsentByID returns a snapshot of one consent record.
func (a *Application) ConsentByID(consentID id.ConsentID) (ConsentState, error) {
	c, err := a.consent(consentID)
	if err != nil {
		return ConsentState{}, err
	}
	return c.Snapshot(), nil
}

// PullEvents drains the events recorded since the last drain. The command
// handler publishes them after a successful save.
func (a *Application) PullEvents() []Event {
	events := a.events
	a.events = nil
	return events
}

// -----------------------------------------------------------------------------
// Document operations
// -----------------------------------------------------------------------------

// AddDocument appends a generated document to the collection. A second
// non-superseded document of the same type is refused. Completing the
// required set (primary petition present, everything generated) moves a
// DRAFT application to PENDING_REVIEW.
func (a *Application) AddDocument(doc *Document, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	if a.status == StatusReadyToFile {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"cannot add documents to an application that is ready to file")
	}
	if doc == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "document is required")
	}
	if a.hasActiveDocumentOfType(doc.Type()) {
		return dErrors.Newf(dErrors.CodeConflict,
			"duplicate document: an active %s already exists", doc.Type())
	}
	a.documents = append(a.documents, doc)
	a.touch(now)
	a.record(EventDocumentGenerated, now, map[string]any{
		"document_id":   doc.ID().String(),
		"document_type": doc.Type().String(),
		"version":       doc.CurrentVersion(),
	})
	a.maybeCompleteGeneration(now)
	return nil
}

// SupersedeDocument retires an existing document and appends its replacement.
// The old record stays in the collection as inert history.
func (a *Application) SupersedeDocument(oldID id.DocumentID, replacement *Document, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	if a.status == StatusReadyToFile {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"cannot supersede documents on an application that is ready to file")
	}
	if replacement == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "replacement document is required")
	}
	old, err := a.document(oldID)
	if err != nil {
		return err
	}
	if old.IsSuperseded() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"document %s is already superseded", oldID)
	}
	// The replacement must not collide with any active document other than
	// the one being retired.
	for _, d := range a.documents {
		if d.ID() != oldID && !d.IsSuperseded() && d.Type() == replacement.Type() {
			return dErrors.Newf(dErrors.CodeConflict,
				"duplicate document: an active %s already exists", replacement.Type())
		}
	}
	if err := old.MarkSuperseded(now); err != nil {
		return err
	}
	a.documents = append(a.documents, replacement)
	a.touch(now)
	a.record(EventDocumentSuperseded, now, map[string]any{
		"superseded_id": oldID.String(),
		"document_id":   replacement.ID().String(),
		"document_type": replacement.Type().String(),
	})
	return nil
}

// ApproveAllPendingDocuments approves every document awaiting decision. When
// the resulting active set has fully cleared review, the application moves
// to PENDING_CONSENTS and the reviewer is recorded.
func (a *Application) ApproveAllPendingDocuments(approverID string, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	if approverID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "approver id is required")
	}
	var eligible []*Document
	for _, d := range a.documents {
		if !d.IsSuperseded() && d.IsAwaitingApproval() {
			eligible = append(eligible, d)
		}
	}
	if len(eligible) == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "nothing to approve: no documents are awaiting decision")
	}
	for _, d := range eligible {
		if err := d.Approve(approverID, now); err != nil {
			return err
		}
	}
	a.touch(now)
	if a.status == StatusPendingReview && a.allActiveDocumentsApproved() {
		a.status = StatusPendingConsents
		a.reviewedBy = approverID
		t := now
		a.reviewedAt = &t
	}
	a.checkAndTransitionToReadyToFile(now)
	return nil
}

// RecordDocumentCourtOutcome records the court's per-document decision after
// filing.
func (a *Application) RecordDocumentCourtOutcome(documentID id.DocumentID, accepted bool, reason string, now time.Time) error {
	if err := a.ensureCourtPhase(); err != nil {
		return err
	}
	d, err := a.document(documentID)
	if err != nil {
		return err
	}
	if err := d.RecordCourtOutcome(accepted, reason, now); err != nil {
		return err
	}
	a.touch(now)
	return nil
}

// AmendDocument responds to a per-document court rejection with a corrected
// artifact. The document gains a version, loses its signatures, and re-enters
// the signing flow.
func (a *Application) AmendDocument(documentID id.DocumentID, ref StorageRef, now time.Time) error {
	if err := a.ensureCourtPhase(); err != nil {
		return err
	}
	d, err := a.document(documentID)
	if err != nil {
		return err
	}
	if err := d.Amend(ref, now); err != nil {
		return err
	}
	a.touch(now)
	a.record(EventDocumentAmended, now, map[string]any{
		"document_id":   documentID.String(),
		"document_type": d.Type().String(),
		"version":       d.CurrentVersion(),
	})
	return nil
}

// SignDocument records a stakeholder's signature on a document collecting
// signatures.
func (a *Application) SignDocument(documentID id.DocumentID, signatoryID id.StakeholderID, name string, now time.Time) error {
	if a.status.IsTerminal() {
		return a.immutableError()
	}
	d, err := a.document(documentID)
	if err != nil {
		return err
	}
	if err := d.AddSignature(signatoryID, name, now); err != nil {
		return err
	}
	a.touch(now)
	return nil
}

// RequestDocumentSignatures moves an approved document into the signing flow.
func (a *Application) RequestDocumentSignatures(documentID id.DocumentID, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	d, err := a.document(documentID)
	if err != nil {
		return err
	}
	if err := d.RequestSignatures(now); err != nil {
		return err
	}
	a.touch(now)
	return nil
}

// -----------------------------------------------------------------------------
// Consent operations
// -----------------------------------------------------------------------------

// AddConsentRequest registers a stakeholder's consent record. One record per
// stakeholder, enforced here rather than by the database.
func (a *Application) AddConsentRequest(consent *Consent, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	if a.status == StatusReadyToFile {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"cannot add consent requests to an application that is ready to file")
	}
	if consent == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "consent is required")
	}
	for _, c := range a.consents {
		if c.StakeholderID() == consent.StakeholderID() {
			return dErrors.Newf(dErrors.CodeConflict,
				"a consent record already exists for stakeholder %s", consent.StakeholderID())
		}
	}
	a.consents = append(a.consents, consent)
	a.touch(now)
	return nil
}

// SendConsentRequest dispatches a pending, unsent consent request. The token
// hash authenticates the stakeholder's later response; delivery itself is the
// caller's concern.
func (a *Application) SendConsentRequest(consentID id.ConsentID, method ConsentMethod, tokenHash string, expiresAt time.Time, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	c, err := a.consent(consentID)
	if err != nil {
		return err
	}
	if err := c.Send(method, tokenHash, expiresAt, now); err != nil {
		return err
	}
	a.touch(now)
	a.record(EventConsentRequested, now, map[string]any{
		"consent_id":       consentID.String(),
		"stakeholder_id":   c.StakeholderID().String(),
		"stakeholder_name": c.StakeholderName(),
		"method":           method.String(),
	})
	return nil
}

// ResendConsentRequest re-dispatches an expired pending request with fresh
// credentials.
func (a *Application) ResendConsentRequest(consentID id.ConsentID, method ConsentMethod, tokenHash string, expiresAt time.Time, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	c, err := a.consent(consentID)
	if err != nil {
		return err
	}
	if err := c.Resend(method, tokenHash, expiresAt, now); err != nil {
		return err
	}
	a.touch(now)
	a.record(EventConsentRequested, now, map[string]any{
		"consent_id":       consentID.String(),
		"stakeholder_id":   c.StakeholderID().String(),
		"stakeholder_name": c.StakeholderName(),
		"method":           method.String(),
		"resend":           true,
	})
	return nil
}

// RecordConsentGranted records a stakeholder's agreement. Granting the last
// outstanding required consent emits AllConsentsReceived and re-runs the
// readiness gate.
func (a *Application) RecordConsentGranted(consentID id.ConsentID, meta ResponseMeta, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	c, err := a.consent(consentID)
	if err != nil {
		return err
	}
	if err := c.RecordGranted(meta, now); err != nil {
		return err
	}
	a.touch(now)
	a.record(EventConsentGranted, now, map[string]any{
		"consent_id":       consentID.String(),
		"stakeholder_id":   c.StakeholderID().String(),
		"stakeholder_name": c.StakeholderName(),
	})
	if a.allGateConsentsGranted() {
		a.record(EventAllConsentsReceived, now, map[string]any{
			"consent_count": a.gateConsentCount(),
		})
	}
	a.checkAndTransitionToReadyToFile(now)
	return nil
}

// RecordConsentDeclined records a stakeholder's refusal. A declined consent
// permanently blocks the readiness gate.
func (a *Application) RecordConsentDeclined(consentID id.ConsentID, reason string, category DeclineCategory, meta ResponseMeta, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	c, err := a.consent(consentID)
	if err != nil {
		return err
	}
	if err := c.RecordDeclined(reason, category, meta, now); err != nil {
		return err
	}
	a.touch(now)
	a.record(EventConsentDeclined, now, map[string]any{
		"consent_id":       consentID.String(),
		"stakeholder_id":   c.StakeholderID().String(),
		"stakeholder_name": c.StakeholderName(),
		"reason":           reason,
		"category":         category.String(),
	})
	return nil
}

// RecordConsentWithdrawn retracts a granted consent. An application already
// READY_TO_FILE falls back to PENDING_CONSENTS because the gate no longer
// holds.
func (a *Application) RecordConsentWithdrawn(consentID id.ConsentID, reason string, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	c, err := a.consent(consentID)
	if err != nil {
		return err
	}
	if err := c.RecordWithdrawn(reason, now); err != nil {
		return err
	}
	a.touch(now)
	if a.status == StatusReadyToFile {
		a.status = StatusPendingConsents
	}
	a.record(EventConsentWithdrawn, now, map[string]any{
		"consent_id":       consentID.String(),
		"stakeholder_id":   c.StakeholderID().String(),
		"stakeholder_name": c.StakeholderName(),
		"reason":           reason,
	})
	return nil
}

// -----------------------------------------------------------------------------
// Fee, filing and terminal transitions
// -----------------------------------------------------------------------------

// MarkFilingFeePaid records the court fee payment and re-runs the readiness
// gate.
func (a *Application) MarkFilingFeePaid(amountCents int64, now time.Time) error {
	if err := a.ensurePreFiling(); err != nil {
		return err
	}
	if a.feePaid {
		return dErrors.New(dErrors.CodeInvariantViolation, "filing fee is already paid")
	}
	if amountCents <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "fee amount must be positive")
	}
	a.feePaid = true
	a.feeAmount = amountCents
	t := now
	a.feePaidAt = &t
	a.touch(now)
	a.checkAndTransitionToReadyToFile(now)
	return nil
}

// Readiness recomputes the filing gate from current child state.
func (a *Application) Readiness() ReadinessReport {
	return ReadinessReport{
		DocumentsApproved:  a.allActiveDocumentsApproved(),
		ConsentsGranted:    a.allGateConsentsGranted(),
		NoDeclinedConsents: !a.anyConsentDeclined(),
		FeePaid:            a.feePaid,
	}
}

// FileWithCourt submits the application. Refused with the readiness
// breakdown unless the application is READY_TO_FILE; on success every
// approved document is marked filed and the filing facts are stamped.
func (a *Application) FileWithCourt(caseNumber, receipt string, now time.Time) error {
	if a.status != StatusReadyToFile {
		return dErrors.New(dErrors.CodeInvariantViolation, "application is not ready to file").
			WithDetails(a.Readiness().Details())
	}
	// Defense in depth: the gate must still hold at submission time.
	if report := a.Readiness(); !report.Ready() {
		return dErrors.New(dErrors.CodeInvariantViolation, "application is not ready to file").
			WithDetails(report.Details())
	}
	// Pre-check every document before mutating any, so a refusal leaves the
	// aggregate untouched.
	for _, d := range a.activeDocuments() {
		if err := d.CanFile(); err != nil {
			return err
		}
	}
	for _, d := range a.activeDocuments() {
		if err := d.MarkFiled(now); err != nil {
			return err
		}
	}
	a.status = StatusFiled
	a.caseNumber = caseNumber
	a.receipt = receipt
	t := now
	a.filedAt = &t
	a.touch(now)
	a.record(EventApplicationFiled, now, map[string]any{
		"court_case_number": caseNumber,
		"court_track":       string(a.context.CourtTrack()),
	})
	return nil
}

// RecordCourtReviewStarted notes that the court has taken the filing under
// review.
func (a *Application) RecordCourtReviewStarted(now time.Time) error {
	if a.status != StatusFiled {
		return a.invalidTransition(StatusCourtReview)
	}
	a.status = StatusCourtReview
	a.touch(now)
	a.record(EventCourtReviewStarted, now, map[string]any{
		"court_case_number": a.caseNumber,
	})
	return nil
}

// RecordCourtRejection records the court's refusal of the whole filing.
func (a *Application) RecordCourtRejection(reason string, now time.Time) error {
	if err := a.ensureCourtPhase(); err != nil {
		return err
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "rejection reason is required")
	}
	a.status = StatusRejected
	a.rejectReason = reason
	t := now
	a.rejectedAt = &t
	a.touch(now)
	a.record(EventApplicationRejected, now, map[string]any{
		"reason": reason,
	})
	return nil
}

// RecordGrantApproved records the issued grant. The aggregate becomes
// read-only afterwards.
func (a *Application) RecordGrantApproved(grantNumber string, now time.Time) error {
	if err := a.ensureCourtPhase(); err != nil {
		return err
	}
	if grantNumber == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "grant number is required")
	}
	a.status = StatusGranted
	a.grantNumber = grantNumber
	t := now
	a.grantedAt = &t
	a.touch(now)
	a.record(EventApplicationGranted, now, map[string]any{
		"grant_number": grantNumber,
	})
	return nil
}

// Withdraw abandons the application. Forbidden once granted; the other
// terminal statuses are immutable anyway.
func (a *Application) Withdraw(reason string, now time.Time) error {
	switch a.status {
	case StatusGranted:
		return dErrors.New(dErrors.CodeInvariantViolation, "a granted application cannot be withdrawn")
	case StatusRejected, StatusWithdrawn:
		return a.immutableError()
	case StatusDraft, StatusPendingReview, StatusPendingConsents, StatusReadyToFile, StatusFiled, StatusCourtReview:
		// withdrawable
	default:
		return dErrors.Newf(dErrors.CodeInternal, "unknown application status %q", a.status)
	}
	if reason == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "withdrawal reason is required")
	}
	a.status = StatusWithdrawn
	a.withdrawWhy = reason
	t := now
	a.withdrawnAt = &t
	a.touch(now)
	a.record(EventApplicationWithdrawn, now, map[string]any{
		"reason": reason,
	})
	return nil
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

// Validate enforces global consistency independent of how the state was
// reached. Run before persistence as defense in depth against paths that
// bypassed the guarded mutators (e.g. reconstruction from corrupted rows).
func (a *Application) Validate() error {
	if !a.status.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown application status %q", a.status)
	}
	if a.status != StatusDraft && a.status != StatusWithdrawn && len(a.activeDocuments()) == 0 {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"a %s application must have at least one active document", a.status)
	}
	if a.status == StatusReadyToFile {
		if report := a.Readiness(); !report.Ready() {
			return dErrors.New(dErrors.CodeInvariantViolation,
				"application is READY_TO_FILE but the readiness gate does not hold").
				WithDetails(report.Details())
		}
	}
	filed := a.filedAt != nil
	switch a.status {
	case StatusFiled, StatusCourtReview, StatusGranted, StatusRejected:
		if !filed {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"%s application has no filing timestamp", a.status)
		}
	case StatusDraft, StatusPendingReview, StatusPendingConsents, StatusReadyToFile:
		if filed {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"%s application has a filing timestamp", a.status)
		}
	}
	if a.status == StatusGranted && a.grantedAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "GRANTED application has no grant date")
	}
	if a.status == StatusRejected && a.rejectedAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "REJECTED application has no rejection date")
	}
	if a.status == StatusWithdrawn && a.withdrawnAt == nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "WITHDRAWN application has no withdrawal date")
	}
	seenTypes := make(map[DocumentType]bool)
	for _, d := range a.documents {
		if d.IsSuperseded() {
			continue
		}
		if seenTypes[d.Type()] {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"multiple active documents of type %s", d.Type())
		}
		seenTypes[d.Type()] = true
	}
	seenStakeholders := make(map[id.StakeholderID]bool)
	for _, c := range a.consents {
		if seenStakeholders[c.StakeholderID()] {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"multiple consent records for stakeholder %s", c.StakeholderID())
		}
		seenStakeholders[c.StakeholderID()] = true
	}
	return nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// checkAndTransitionToReadyToFile runs the gate after every mutation that can
// affect readiness. The transition fires exactly once per pass through
// PENDING_CONSENTS, so no duplicate ApplicationReadyToFile events are emitted
// on later unrelated mutations.
func (a *Application) checkAndTransitionToReadyToFile(now time.Time) {
	if a.status != StatusPendingConsents {
		return
	}
	if !a.Readiness().Ready() {
		return
	}
	a.status = StatusReadyToFile
	a.record(EventApplicationReadyToFile, now, map[string]any{
		"fee_amount_cents": a.feeAmount,
	})
}

// maybeCompleteGeneration moves DRAFT to PENDING_REVIEW once the primary
// petition exists and every active document has a generated version.
func (a *Application) maybeCompleteGeneration(now time.Time) {
	if a.status != StatusDraft {
		return
	}
	hasPrimary := false
	for _, d := range a.activeDocuments() {
		if d.CurrentVersion() == 0 {
			return
		}
		if d.Type().IsPrimary() {
			hasPrimary = true
		}
	}
	if !hasPrimary {
		return
	}
	a.status = StatusPendingReview
	a.record(EventAllDocumentsGenerated, now, map[string]any{
		"document_count": len(a.activeDocuments()),
	})
}

// ensurePreFiling is the single exhaustive mutability switch for operations
// that are only legal before the application is filed.
func (a *Application) ensurePreFiling() error {
	switch a.status {
	case StatusDraft, StatusPendingReview, StatusPendingConsents, StatusReadyToFile:
		return nil
	case StatusFiled, StatusCourtReview:
		return dErrors.New(dErrors.CodeInvariantViolation,
			"application is filed; only court-response operations are allowed")
	case StatusGranted, StatusRejected, StatusWithdrawn:
		return a.immutableError()
	default:
		return dErrors.Newf(dErrors.CodeInternal, "unknown application status %q", a.status)
	}
}

// ensureCourtPhase admits only the court-response operations defined for
// filed applications.
func (a *Application) ensureCourtPhase() error {
	switch a.status {
	case StatusFiled, StatusCourtReview:
		return nil
	case StatusDraft, StatusPendingReview, StatusPendingConsents, StatusReadyToFile:
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"application is %s; court responses require a filed application", a.status)
	case StatusGranted, StatusRejected, StatusWithdrawn:
		return a.immutableError()
	default:
		return dErrors.Newf(dErrors.CodeInternal, "unknown application status %q", a.status)
	}
}

func (a *Application) immutableError() error {
	return dErrors.Newf(dErrors.CodeInvariantViolation,
		"application is %s and can no longer be modified", a.status)
}

func (a *Application) invalidTransition(target ApplicationStatus) error {
	return dErrors.Newf(dErrors.CodeInvariantViolation,
		"application cannot move from %s to %s", a.status, target)
}

func (a *Application) document(documentID id.DocumentID) (*Document, error) {
	for _, d := range a.documents {
		if d.ID() == documentID {
			return d, nil
		}
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "document %s not found in application", documentID)
}

func (a *Application) consent(consentID id.ConsentID) (*Consent, error) {
	for _, c := range a.consents {
		if c.ID() == consentID {
			return c, nil
		}
	}
	return nil, dErrors.Newf(dErrors.CodeNotFound, "consent %s not found in application", consentID)
}

func (a *Application) activeDocuments() []*Document {
	var out []*Document
	for _, d := range a.documents {
		if !d.IsSuperseded() {
			out = append(out, d)
		}
	}
	return out
}

func (a *Application) hasActiveDocumentOfType(t DocumentType) bool {
	for _, d := range a.documents {
		if !d.IsSuperseded() && d.Type() == t {
			return true
		}
	}
	return false
}

func (a *Application) allActiveDocumentsApproved() bool {
	active := a.activeDocuments()
	if len(active) == 0 {
		return false
	}
	for _, d := range active {
		if !d.Status().IsApprovedOrLater() {
			return false
		}
	}
	return true
}

func (a *Application) allGateConsentsGranted() bool {
	for _, c := range a.consents {
		if !c.Status().CountsTowardGate() {
			continue
		}
		if c.Status() != ConsentGranted {
			return false
		}
	}
	return true
}

func (a *Application) gateConsentCount() int {
	n := 0
	for _, c := range a.consents {
		if c.Status().CountsTowardGate() {
			n++
		}
	}
	return n
}

func (a *Application) anyConsentDeclined() bool {
	for _, c := range a.consents {
		if c.Status() == ConsentDeclined {
			return true
		}
	}
	return false
}

func (a *Application) touch(now time.Time) {
	a.version++
	a.updatedAt = now
}

func (a *Application) record(name EventName, now time.Time, payload map[string]any) {
	a.events = append(a.events, Event{
		Name:          name,
		ApplicationID: a.id,
		Version:       a.version,
		OccurredAt:    now,
		Payload:       payload,
	})
}
