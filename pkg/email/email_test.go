package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "jane.doe@example.org", Normalize("  Jane.Doe@Example.ORG "))
	assert.Equal(t, "", Normalize("   "))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{"jane@example.org", true},
		{"jane.doe+retreat@mail.example.org", true},
		{"", false},
		{"jane", false},
		{"jane@localhost", false},
		{"Jane <jane@example.org>", false},
		{"jane@@example.org", false},
	}
	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValid(tt.address))
		})
	}
}

func TestDeriveNameFromEmail(t *testing.T) {
	first, last := DeriveNameFromEmail("jane.doe@example.org")
	assert.Equal(t, "Jane", first)
	assert.Equal(t, "Doe", last)

	first, last = DeriveNameFromEmail("coordinator@example.org")
	assert.Equal(t, "Coordinator", first)
	assert.Equal(t, "Member", last)

	first, last = DeriveNameFromEmail("@example.org")
	assert.Equal(t, "Staff", first)
	assert.Equal(t, "Member", last)
}
