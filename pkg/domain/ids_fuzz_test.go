package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FuzzParseApplicationID verifies parsing invariants hold for arbitrary input:
// accepted input always round-trips to its canonical form, and nothing that
// parses is empty or the nil UUID.
func FuzzParseApplicationID(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add(uuid.Nil.String())
	f.Add("")
	f.Add("not-a-uuid")
	f.Add("550E8400-E29B-41D4-A716-446655440000")
	f.Add(strings.Repeat("a", 100))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseApplicationID(input)
		if err != nil {
			return
		}

		if id.IsNil() {
			t.Errorf("ParseApplicationID(%q) accepted the nil UUID", input)
		}

		rendered := id.String()
		if !utf8.ValidString(rendered) {
			t.Errorf("ParseApplicationID(%q).String() is not valid UTF-8", input)
		}

		reparsed, err := ParseApplicationID(rendered)
		if err != nil {
			t.Errorf("round-trip of %q failed: %v", input, err)
		}
		if reparsed != id {
			t.Errorf("round-trip of %q changed value: %v != %v", input, reparsed, id)
		}
	})
}

// FuzzParseAllIDs verifies every ID type accepts and rejects exactly the same
// inputs. Divergent validation between ID types would be a defect.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add(uuid.Nil.String())
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errApplication := ParseApplicationID(input)
		_, errDocument := ParseDocumentID(input)
		_, errConsent := ParseConsentID(input)
		_, errStakeholder := ParseStakeholderID(input)

		okApplication := errApplication == nil
		if okApplication != (errDocument == nil) ||
			okApplication != (errConsent == nil) ||
			okApplication != (errStakeholder == nil) {
			t.Errorf("inconsistent acceptance of %q: application=%v document=%v consent=%v stakeholder=%v",
				input, errApplication, errDocument, errConsent, errStakeholder)
		}
	})
}
