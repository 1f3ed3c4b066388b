// Package email normalizes and inspects email addresses used as identity keys.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

// Normalize lower-cases and trims an address. Guardians are matched on the
// normalized form.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValid reports whether address is a bare addr-spec with a dotted domain.
// Display-name forms ("Jane <jane@example.org>") are rejected.
func IsValid(address string) bool {
	if address == "" || len(address) > 254 {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address {
		return false
	}
	at := strings.LastIndexByte(address, '@')
	return at > 0 && strings.Contains(address[at+1:], ".")
}

// DeriveNameFromEmail guesses a first and last name from the local part.
// Used when a staff account is created with only an email.
func DeriveNameFromEmail(email string) (string, string) {
	localPart := email
	if at := strings.IndexByte(email, '@'); at >= 0 {
		localPart = email[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "Staff", "Member"
	}

	first := capitalize(parts[0])
	last := "Member"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
