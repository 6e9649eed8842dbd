package models

import (
	dErrors "probata/pkg/domain-errors"
)

// SuccessionRegime is the legal basis of the succession.
type SuccessionRegime string

const (
	RegimeTestate   SuccessionRegime = "TESTATE"
	RegimeIntestate SuccessionRegime = "INTESTATE"
)

// IsValid reports whether r is a known succession regime.
func (r SuccessionRegime) IsValid() bool {
	return r == RegimeTestate || r == RegimeIntestate
}

func (r SuccessionRegime) String() string { return string(r) }

// ParseSuccessionRegime validates external input into a SuccessionRegime.
func ParseSuccessionRegime(s string) (SuccessionRegime, error) {
	r := SuccessionRegime(s)
	if !r.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown succession regime %q", s)
	}
	return r, nil
}

// CourtTrack routes the application to a civil or religious court.
type CourtTrack string

const (
	TrackCivil     CourtTrack = "CIVIL"
	TrackReligious CourtTrack = "RELIGIOUS"
)

// Fee schedule constants, in cents.
const (
	filingFeeFlatCents      = 5000
	filingFeeValueThreshold = 50_000_000 // 500k in cents
	filingFeeSurchargeCents = 7500
)

// FilingContext is the immutable classification of an application, captured
// at creation. It determines which documents must be generated, whether the
// filing routes to a religious court, and the filing fee. It never changes
// after construction; correcting a misclassification means withdrawing and
// re-creating the application.
type FilingContext struct {
	regime         SuccessionRegime
	religiousCourt bool
	estateValue    int64 // cents
	heirCount      int
	hasMinorHeirs  bool
	deceasedName   string
	jurisdiction   string
}

// NewFilingContext validates and constructs a FilingContext.
func NewFilingContext(
	regime SuccessionRegime,
	religiousCourt bool,
	estateValueCents int64,
	heirCount int,
	hasMinorHeirs bool,
	deceasedName string,
	jurisdiction string,
) (FilingContext, error) {
	if !regime.IsValid() {
		return FilingContext{}, dErrors.New(dErrors.CodeInvariantViolation, "succession regime is required")
	}
	if estateValueCents < 0 {
		return FilingContext{}, dErrors.New(dErrors.CodeInvariantViolation, "estate value cannot be negative")
	}
	if heirCount < 1 {
		return FilingContext{}, dErrors.New(dErrors.CodeInvariantViolation, "at least one heir is required")
	}
	if deceasedName == "" {
		return FilingContext{}, dErrors.New(dErrors.CodeInvariantViolation, "deceased name is required")
	}
	if jurisdiction == "" {
		return FilingContext{}, dErrors.New(dErrors.CodeInvariantViolation, "jurisdiction is required")
	}
	return FilingContext{
		regime:         regime,
		religiousCourt: religiousCourt,
		estateValue:    estateValueCents,
		heirCount:      heirCount,
		hasMinorHeirs:  hasMinorHeirs,
		deceasedName:   deceasedName,
		jurisdiction:   jurisdiction,
	}, nil
}

func (c FilingContext) Regime() SuccessionRegime { return c.regime }
func (c FilingContext) ReligiousCourt() bool     { return c.religiousCourt }
func (c FilingContext) EstateValueCents() int64  { return c.estateValue }
func (c FilingContext) HeirCount() int           { return c.heirCount }
func (c FilingContext) HasMinorHeirs() bool      { return c.hasMinorHeirs }
func (c FilingContext) DeceasedName() string     { return c.deceasedName }
func (c FilingContext) Jurisdiction() string     { return c.jurisdiction }

// CourtTrack returns the court the filing routes to.
func (c FilingContext) CourtTrack() CourtTrack {
	if c.religiousCourt {
		return TrackReligious
	}
	return TrackCivil
}

// RequiredDocumentTypes returns the document set this classification
// mandates. The petition is always first.
func (c FilingContext) RequiredDocumentTypes() []DocumentType {
	types := []DocumentType{DocTypePetition, DocTypeHeirAffidavit, DocTypeEstateInventory}
	if c.regime == RegimeTestate {
		types = append(types, DocTypeWillAnnexure)
	}
	if c.hasMinorHeirs {
		types = append(types, DocTypeGuardianshipAnnex)
	}
	return types
}

// RequiresConsents reports whether stakeholder consents are mandatory for
// this classification. Sole-heir intestate successions need none.
func (c FilingContext) RequiresConsents() bool {
	return c.heirCount > 1
}

// FilingFeeCents returns the court fee for this classification: a flat fee,
// plus a surcharge for high-value estates.
func (c FilingContext) FilingFeeCents() int64 {
	fee := int64(filingFeeFlatCents)
	if c.estateValue > filingFeeValueThreshold {
		fee += filingFeeSurchargeCents
	}
	return fee
}
