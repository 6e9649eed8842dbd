// Package domain provides typed identifiers shared across modules.
//
// Each identifier wraps a UUID so the compiler distinguishes an
// ApplicationID from a DocumentID even though both are UUIDs on the
// wire. Construct values via the Parse* functions at trust boundaries;
// direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "probata/pkg/domain-errors"
)

type (
	// ApplicationID identifies one probate application aggregate.
	ApplicationID uuid.UUID
	// DocumentID identifies a generated document within an application.
	DocumentID uuid.UUID
	// ConsentID identifies a stakeholder consent record within an application.
	ConsentID uuid.UUID
	// StakeholderID identifies a stakeholder (heir, spouse, creditor) whose
	// consent may be required. Stakeholders have no accounts in this system.
	StakeholderID uuid.UUID
)

// NewApplicationID returns a fresh random ApplicationID.
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

// NewDocumentID returns a fresh random DocumentID.
func NewDocumentID() DocumentID { return DocumentID(uuid.New()) }

// NewConsentID returns a fresh random ConsentID.
func NewConsentID() ConsentID { return ConsentID(uuid.New()) }

// NewStakeholderID returns a fresh random StakeholderID.
func NewStakeholderID() StakeholderID { return StakeholderID(uuid.New()) }

func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id DocumentID) String() string    { return uuid.UUID(id).String() }
func (id ConsentID) String() string     { return uuid.UUID(id).String() }
func (id StakeholderID) String() string { return uuid.UUID(id).String() }

func (id ApplicationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id DocumentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ConsentID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id StakeholderID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// ParseApplicationID validates external input into an ApplicationID.
// Returns CodeInvalidInput for empty, malformed, or nil UUIDs.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID(s)
	return ApplicationID(u), err
}

// ParseDocumentID validates external input into a DocumentID.
func ParseDocumentID(s string) (DocumentID, error) {
	u, err := parseUUID(s)
	return DocumentID(u), err
}

// ParseConsentID validates external input into a ConsentID.
func ParseConsentID(s string) (ConsentID, error) {
	u, err := parseUUID(s)
	return ConsentID(u), err
}

// ParseStakeholderID validates external input into a StakeholderID.
func ParseStakeholderID(s string) (StakeholderID, error) {
	u, err := parseUUID(s)
	return StakeholderID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// Text marshalling renders ids as canonical UUID strings in JSON and other
// text encodings.

func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id DocumentID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ConsentID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id StakeholderID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *DocumentID) UnmarshalText(b []byte) error {
	parsed, err := ParseDocumentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ConsentID) UnmarshalText(b []byte) error {
	parsed, err := ParseConsentID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *StakeholderID) UnmarshalText(b []byte) error {
	parsed, err := ParseStakeholderID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
