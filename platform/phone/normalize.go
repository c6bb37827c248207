// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when the caller does not supply one.
const DefaultRegion = "NL"

// NormalizeE164 formats a phone number to E.164 using DefaultRegion.
// If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	return NormalizeE164In(input, DefaultRegion)
}

// NormalizeE164In formats a phone number to E.164, resolving national
// numbers against region. If parsing fails, it returns the trimmed input.
func NormalizeE164In(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, regionOrDefault(region))
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// IsValid reports whether input parses to a valid number in region.
func IsValid(input, region string) bool {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), regionOrDefault(region))
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(number)
}

func regionOrDefault(region string) string {
	if region == "" {
		return DefaultRegion
	}
	return strings.ToUpper(region)
}
