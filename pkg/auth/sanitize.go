package auth

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeIdentifier trims a submitted phone/email identifier and strips
// control characters. Case is preserved; lookups compare exactly.
func NormalizeIdentifier(identifier string) string {
	return strings.TrimSpace(removeControlChars(identifier))
}

// ValidateStringLength validates that a string is within the specified length constraints.
func ValidateStringLength(field, value string, min, max int) error {
	length := len(value)

	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters long", field, min)
	}

	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters long", field, max)
	}

	return nil
}

// removeControlChars removes control characters except newline and tab.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
