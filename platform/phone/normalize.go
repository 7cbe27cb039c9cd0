// Package phone normalizes contact phone numbers.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used for numbers written without a country prefix.
const DefaultRegion = "NL"

// Normalize parses input for region and formats it as E.164. ok is false
// when the number cannot be parsed or is not a valid number.
func Normalize(input, region string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed, false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}
