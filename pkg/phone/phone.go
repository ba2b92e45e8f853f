// Package phone normalises customer phone numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "RU"

// NormalizeE164 formats input as E.164 using region for numbers without a country code.
// Input that does not parse as a valid number is returned trimmed.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil {
		return trimmed
	}
	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
