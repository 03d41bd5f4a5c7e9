// Package phone normalises phone numbers entered in forms.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Normalize returns raw in E.164 form when it parses as a valid number for
// region (or carries its own country code). Anything else is returned
// trimmed so that free-form input is never lost.
func Normalize(raw, region string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// Valid reports whether raw is a valid number for region.
func Valid(raw, region string) bool {
	num, err := phonenumbers.Parse(strings.TrimSpace(raw), strings.ToUpper(region))
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// Display formats an E.164 number in national form for region, falling
// back to the stored value.
func Display(stored, region string) string {
	num, err := phonenumbers.Parse(stored, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return stored
	}
	if phonenumbers.GetRegionCodeForNumber(num) == strings.ToUpper(region) {
		return phonenumbers.Format(num, phonenumbers.NATIONAL)
	}
	return phonenumbers.Format(num, phonenumbers.INTERNATIONAL)
}
