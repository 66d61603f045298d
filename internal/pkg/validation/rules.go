package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Validation rule patterns
var (
	// EmailPattern accepts lower-case addresses; callers normalize first
	EmailPattern = `^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`

	// RegistrationPattern matches registration numbers such as 2024-0117
	RegistrationPattern = `^[A-Za-z0-9][A-Za-z0-9\-/]*$`
)

// CompiledPatterns caches compiled regex patterns
var CompiledPatterns = struct {
	Email        *regexp.Regexp
	Registration *regexp.Regexp
}{
	Email:        regexp.MustCompile(EmailPattern),
	Registration: regexp.MustCompile(RegistrationPattern),
}

// IsEmail reports whether s is a plausible email address.
func IsEmail(s string) bool {
	return CompiledPatterns.Email.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// IsRegistrationNumber reports whether s is a well-formed registration number.
func IsRegistrationNumber(s string) bool {
	return CompiledPatterns.Registration.MatchString(s)
}

// Length reports whether s has between min and max runes. max <= 0 means no limit.
func Length(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	if n < min {
		return false
	}
	return max <= 0 || n <= max
}
