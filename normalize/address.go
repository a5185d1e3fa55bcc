package normalize

import (
	"strings"
	"unicode"
)

// ValidAddress reports whether an address points at a single trackable unit.
// Addresses without any digit are projects or complexes. Addresses starting with
// a digit are usually ordinal street names ("1e Kerkstraat") without a house number.
func ValidAddress(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" || !anyDigit.MatchString(address) {
		return false
	}
	first := []rune(address)[0]
	return !unicode.IsDigit(first)
}

// Address joins address parts with single spaces, skipping empty ones
func Address(parts ...string) string {
	var kept []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
