package people

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail lowercases and trims an email address. Uniqueness checks and
// lookups always operate on the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone reduces a phone number to a leading + (if present) and
// digits, dropping separators and formatting characters.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range phone {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeName trims a name and applies Unicode NFC so visually identical
// names compare equal regardless of input composition.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
