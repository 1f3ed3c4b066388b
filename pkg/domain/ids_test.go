package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "retreat/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseRegistrationID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseRegistrationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseRegistrationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseRegistrationID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, RegistrationID(validUUID), id)
	})
}

// TestParseID_SecurityInvariants validates rejection of hostile path parameters.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE registrations;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Unicode zero-width space", "550e8400​-e29b-41d4-a716-446655440000", true},

		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},

		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistrationID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()
	invalidInputs := []string{"", "invalid", uuid.Nil.String()}

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errReg := ParseRegistrationID(validUUID)
		_, errGuardian := ParseGuardianID(validUUID)
		_, errParticipant := ParseParticipantID(validUUID)
		_, errWaiver := ParseWaiverID(validUUID)

		require.NoError(t, errReg)
		require.NoError(t, errGuardian)
		require.NoError(t, errParticipant)
		require.NoError(t, errWaiver)
	})

	for _, input := range invalidInputs {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errReg := ParseRegistrationID(input)
			_, errGuardian := ParseGuardianID(input)
			_, errParticipant := ParseParticipantID(input)
			_, errWaiver := ParseWaiverID(input)

			require.Error(t, errReg)
			require.Error(t, errGuardian)
			require.Error(t, errParticipant)
			require.Error(t, errWaiver)
		})
	}
}

func TestIDsMarshalAsStrings(t *testing.T) {
	id := NewRegistrationID()
	b, err := json.Marshal(map[string]RegistrationID{"id": id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(b))

	var decoded struct {
		ID RegistrationID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, id, decoded.ID)
	assert.False(t, decoded.ID.IsNil())
}
