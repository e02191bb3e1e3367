package customers

import (
	"strings"

	"github.com/ttacon/libphonenumber"
)

// defaultRegion seeds parsing for numbers entered without a country prefix.
const defaultRegion = "GH"

// NormalizePhone returns a display form and a digits-only matching form for
// a raw phone entry. When the number parses, the display form is E.164 and
// the matching form is the national significant number, so "0551234567" and
// "+233 55 123 4567" resolve to the same customer. Unparseable input falls
// back to stripping non-digits.
func NormalizePhone(raw string) (display string, digits string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	parsed, err := libphonenumber.Parse(trimmed, defaultRegion)
	if err == nil && libphonenumber.IsValidNumber(parsed) {
		display = libphonenumber.Format(parsed, libphonenumber.E164)
		digits = libphonenumber.GetNationalSignificantNumber(parsed)
		return display, digits
	}

	return trimmed, stripNonDigits(trimmed)
}

func stripNonDigits(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
