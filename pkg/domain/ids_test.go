package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "probata/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseApplicationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseApplicationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseApplicationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, ApplicationID(validUUID), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety.
// This is a compile-time check - if this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	applicationID := ApplicationID(uuid.New())
	documentID := DocumentID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ ApplicationID = documentID   // compile error
	// var _ DocumentID = applicationID   // compile error

	// Verify they're distinct at runtime too
	assert.NotEqual(t, uuid.UUID(applicationID), uuid.UUID(documentID))
}

// TestParseID_SecurityInvariants validates security-critical parsing rules.
// Parsing sits at the API trust boundary and must reject attack vectors.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		// Attack vectors
		{"SQL injection attempt", "'; DROP TABLE filing_applications;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		// Edge cases
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		// Valid
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseApplicationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types have identical
// parsing behavior. Inconsistent validation across ID types could create
// security holes.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errApplication := ParseApplicationID(validUUID)
		_, errDocument := ParseDocumentID(validUUID)
		_, errConsent := ParseConsentID(validUUID)
		_, errStakeholder := ParseStakeholderID(validUUID)

		require.NoError(t, errApplication)
		require.NoError(t, errDocument)
		require.NoError(t, errConsent)
		require.NoError(t, errStakeholder)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errApplication := ParseApplicationID(input)
			_, errDocument := ParseDocumentID(input)
			_, errConsent := ParseConsentID(input)
			_, errStakeholder := ParseStakeholderID(input)

			require.Error(t, errApplication)
			require.Error(t, errDocument)
			require.Error(t, errConsent)
			require.Error(t, errStakeholder)
		})
	}
}

// TestIDTextRoundTrip covers the encoding.TextMarshaler pair used for JSON.
func TestIDTextRoundTrip(t *testing.T) {
	original := NewApplicationID()
	raw, err := original.MarshalText()
	require.NoError(t, err)

	var decoded ApplicationID
	require.NoError(t, decoded.UnmarshalText(raw))
	assert.Equal(t, original, decoded)
}
