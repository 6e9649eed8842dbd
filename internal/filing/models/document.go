package models

import (
	"time"

	id "probata/pkg/domain"
	dErrors "probata/pkg/domain-errors"
)

// StorageRef points at a rendered artifact in external storage. Produced by
// the rendering adapter; the domain only carries it.
type StorageRef struct {
	StorageURL string
	Checksum   string
	SizeBytes  int64
}

func (r StorageRef) validate() error {
	if r.StorageURL == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "storage URL is required")
	}
	if r.Checksum == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "checksum is required")
	}
	if r.SizeBytes <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "size must be positive")
	}
	return nil
}

// DocumentVersion is one immutable entry in a document's version history.
type DocumentVersion struct {
	Number     int
	StorageURL string
	Checksum   string
	SizeBytes  int64
	CreatedAt  time.Time
}

// Signature records one signatory having signed the current version.
type Signature struct {
	SignatoryID id.StakeholderID
	Name        string
	SignedAt    time.Time
}

// Document is a generated legal artifact owned by exactly one Application.
//
// Invariants:
//   - versions is append-only; the current version is the last entry
//   - status transitions follow documentTransitions (forward-only except
//     the COURT_REJECTED amendment path)
//   - FILED requires a fully signed document whenever signatories are required
//   - amendment appends a version and clears signatures (re-signing required)
//
// Mutation happens only through methods; stores reconstruct via
// RestoreDocument. All methods take the command time explicitly.
type Document struct {
	id                  id.DocumentID
	docType             DocumentType
	status              DocumentStatus
	versions            []DocumentVersion
	signatures          []Signature
	requiredSignatories int
	approvedBy          string
	approvedAt          *time.Time
	rejectionReason     string
	createdAt           time.Time
	updatedAt           time.Time
}

// NewDocument creates a document awaiting generation.
func NewDocument(documentID id.DocumentID, docType DocumentType, requiredSignatories int, now time.Time) (*Document, error) {
	if documentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document id is required")
	}
	if !docType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "document type is required")
	}
	if requiredSignatories < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "required signatories cannot be negative")
	}
	return &Document{
		id:                  documentID,
		docType:             docType,
		status:              DocStatusPendingGeneration,
		requiredSignatories: requiredSignatories,
		createdAt:           now,
		updatedAt:           now,
	}, nil
}

func (d *Document) ID() id.DocumentID      { return d.id }
func (d *Document) Type() DocumentType     { return d.docType }
func (d *Document) Status() DocumentStatus { return d.status }
func (d *Document) CreatedAt() time.Time   { return d.createdAt }
func (d *Document) UpdatedAt() time.Time   { return d.updatedAt }
func (d *Document) ApprovedBy() string     { return d.approvedBy }

// ApprovedAt returns when the document was approved, nil if it never was.
func (d *Document) ApprovedAt() *time.Time {
	if d.approvedAt == nil {
		return nil
	}
	t := *d.approvedAt
	return &t
}

// RejectionReason returns the court's reason after COURT_REJECTED.
func (d *Document) RejectionReason() string { return d.rejectionReason }

// Versions returns a copy of the append-only version history.
func (d *Document) Versions() []DocumentVersion {
	out := make([]DocumentVersion, len(d.versions))
	copy(out, d.versions)
	return out
}

// CurrentVersion returns the current version number, 0 before generation.
func (d *Document) CurrentVersion() int { return len(d.versions) }

// CurrentStorage returns the storage entry of the current version.
func (d *Document) CurrentStorage() (DocumentVersion, bool) {
	if len(d.versions) == 0 {
		return DocumentVersion{}, false
	}
	return d.versions[len(d.versions)-1], true
}

// Signatures returns a copy of the collected signatures.
func (d *Document) Signatures() []Signature {
	out := make([]Signature, len(d.signatures))
	copy(out, d.signatures)
	return out
}

// RequiredSignatories returns how many signatures filing this document needs.
func (d *Document) RequiredSignatories() int { return d.requiredSignatories }

// IsFullySigned reports whether enough signatures were collected.
func (d *Document) IsFullySigned() bool {
	return len(d.signatures) >= d.requiredSignatories
}

// IsSuperseded reports whether this document was logically replaced.
func (d *Document) IsSuperseded() bool { return d.status == DocStatusSuperseded }

// IsAwaitingApproval reports whether the document is eligible for the bulk
// approval pass (generated, optionally already routed to review).
func (d *Document) IsAwaitingApproval() bool {
	return d.status == DocStatusGenerated || d.status == DocStatusUnderReview
}

// AttachVersion records the rendered artifact for a document awaiting
// generation, moving it to GENERATED.
func (d *Document) AttachVersion(ref StorageRef, now time.Time) error {
	if err := d.ensureTransition(DocStatusGenerated); err != nil {
		return err
	}
	if d.status != DocStatusPendingGeneration {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"document %s already has a generated version", d.docType)
	}
	if err := ref.validate(); err != nil {
		return err
	}
	d.appendVersion(ref, now)
	d.status = DocStatusGenerated
	d.updatedAt = now
	return nil
}

// SubmitForReview routes a generated document into review.
func (d *Document) SubmitForReview(now time.Time) error {
	if err := d.ensureTransition(DocStatusUnderReview); err != nil {
		return err
	}
	d.status = DocStatusUnderReview
	d.updatedAt = now
	return nil
}

// Approve marks a document past review. Valid from GENERATED or UNDER_REVIEW.
func (d *Document) Approve(approverID string, now time.Time) error {
	if approverID == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "approver id is required")
	}
	if err := d.ensureTransition(DocStatusApproved); err != nil {
		return err
	}
	d.status = DocStatusApproved
	d.approvedBy = approverID
	t := now
	d.approvedAt = &t
	d.updatedAt = now
	return nil
}

// RequestSignatures moves an approved document into the signing flow.
func (d *Document) RequestSignatures(now time.Time) error {
	if d.requiredSignatories == 0 {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"document %s requires no signatories", d.docType)
	}
	if err := d.ensureTransition(DocStatusSignaturePending); err != nil {
		return err
	}
	if d.status == DocStatusCourtRejected {
		// Court-rejected documents re-enter signing via Amend, not here.
		return d.invalidTransition(DocStatusSignaturePending)
	}
	d.status = DocStatusSignaturePending
	d.updatedAt = now
	return nil
}

// AddSignature records one signatory's signature on the current version.
// The document becomes SIGNED once all required signatures are collected.
func (d *Document) AddSignature(signatoryID id.StakeholderID, name string, now time.Time) error {
	if d.status != DocStatusSignaturePending {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"document %s is not collecting signatures (status %s)", d.docType, d.status)
	}
	if signatoryID.IsNil() {
		return dErrors.New(dErrors.CodeInvariantViolation, "signatory id is required")
	}
	for _, sig := range d.signatures {
		if sig.SignatoryID == signatoryID {
			return dErrors.Newf(dErrors.CodeInvariantViolation,
				"signatory %s already signed document %s", signatoryID, d.docType)
		}
	}
	d.signatures = append(d.signatures, Signature{SignatoryID: signatoryID, Name: name, SignedAt: now})
	if d.IsFullySigned() {
		d.status = DocStatusSigned
	}
	d.updatedAt = now
	return nil
}

// CanFile reports whether MarkFiled would succeed, without mutating.
func (d *Document) CanFile() error {
	if !d.status.CanTransitionTo(DocStatusFiled) {
		return d.invalidTransition(DocStatusFiled)
	}
	if d.requiredSignatories > 0 && !d.IsFullySigned() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"document %s cannot be filed: %d of %d required signatures collected",
			d.docType, len(d.signatures), d.requiredSignatories)
	}
	return nil
}

// MarkFiled stamps the document as filed with the court.
func (d *Document) MarkFiled(now time.Time) error {
	if err := d.CanFile(); err != nil {
		return err
	}
	d.status = DocStatusFiled
	d.updatedAt = now
	return nil
}

// RecordCourtOutcome records the court's per-document decision.
func (d *Document) RecordCourtOutcome(accepted bool, reason string, now time.Time) error {
	target := DocStatusCourtAccepted
	if !accepted {
		target = DocStatusCourtRejected
	}
	if err := d.ensureTransition(target); err != nil {
		return err
	}
	if !accepted && reason == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "rejection reason is required")
	}
	d.status = target
	if !accepted {
		d.rejectionReason = reason
	}
	d.updatedAt = now
	return nil
}

// Amend responds to a court rejection with a corrected artifact: appends a
// new version, clears all signatures, and re-enters the signing flow (or
// GENERATED when no signatories are required).
func (d *Document) Amend(ref StorageRef, now time.Time) error {
	if d.status != DocStatusCourtRejected {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"document %s cannot be amended (status %s)", d.docType, d.status)
	}
	if err := ref.validate(); err != nil {
		return err
	}
	d.appendVersion(ref, now)
	d.signatures = nil
	if d.requiredSignatories > 0 {
		d.status = DocStatusSignaturePending
	} else {
		d.status = DocStatusGenerated
	}
	d.updatedAt = now
	return nil
}

// MarkSuperseded retires the document as a logical replacement target. The
// record stays in the collection as inert history.
func (d *Document) MarkSuperseded(now time.Time) error {
	if err := d.ensureTransition(DocStatusSuperseded); err != nil {
		return err
	}
	d.status = DocStatusSuperseded
	d.updatedAt = now
	return nil
}

func (d *Document) appendVersion(ref StorageRef, now time.Time) {
	d.versions = append(d.versions, DocumentVersion{
		Number:     len(d.versions) + 1,
		StorageURL: ref.StorageURL,
		Checksum:   ref.Checksum,
		SizeBytes:  ref.SizeBytes,
		CreatedAt:  now,
	})
}

func (d *Document) ensureTransition(target DocumentStatus) error {
	if !d.status.CanTransitionTo(target) {
		return d.invalidTransition(target)
	}
	return nil
}

func (d *Document) invalidTransition(target DocumentStatus) error {
	return dErrors.Newf(dErrors.CodeInvariantViolation,
		"document %s cannot move from %s to %s", d.docType, d.status, target)
}

// DocumentState is the persistence snapshot of a Document.
type DocumentState struct {
	ID                  id.DocumentID
	Type                DocumentType
	Status              DocumentStatus
	Versions            []DocumentVersion
	Signatures          []Signature
	RequiredSignatories int
	ApprovedBy          string
	ApprovedAt          *time.Time
	RejectionReason     string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Snapshot exports the document for persistence.
func (d *Document) Snapshot() DocumentState {
	return DocumentState{
		ID:                  d.id,
		Type:                d.docType,
		Status:              d.status,
		Versions:            d.Versions(),
		Signatures:          d.Signatures(),
		RequiredSignatories: d.requiredSignatories,
		ApprovedBy:          d.approvedBy,
		ApprovedAt:          d.ApprovedAt(),
		RejectionReason:     d.rejectionReason,
		CreatedAt:           d.createdAt,
		UpdatedAt:           d.updatedAt,
	}
}

// RestoreDocument rebuilds a document from a persistence snapshot. Statuses
// and types are re-validated; deeper consistency is the aggregate Validate
// pass's concern.
func RestoreDocument(s DocumentState) (*Document, error) {
	if !s.Status.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown document status %q", s.Status)
	}
	if !s.Type.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown document type %q", s.Type)
	}
	d := &Document{
		id:                  s.ID,
		docType:             s.Type,
		status:              s.Status,
		requiredSignatories: s.RequiredSignatories,
		approvedBy:          s.ApprovedBy,
		rejectionReason:     s.RejectionReason,
		createdAt:           s.CreatedAt,
		updatedAt:           s.UpdatedAt,
	}
	d.versions = make([]DocumentVersion, len(s.Versions))
	copy(d.versions, s.Versions)
	d.signatures = make([]Signature, len(s.Signatures))
	copy(d.signatures, s.Signatures)
	if s.ApprovedAt != nil {
		t := *s.ApprovedAt
		d.approvedAt = &t
	}
	return d, nil
}
