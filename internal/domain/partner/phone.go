package partner

import (
	"fmt"
	"strings"
)

// DefaultCountryCallingCode is prefixed onto local ten-digit numbers when
// generating phone candidates.
const DefaultCountryCallingCode = "57"

// DigitsOnly strips every character that is not an ASCII digit
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneCandidates expands a raw phone number into the textual variants it may
// have been stored as. Stored phones are free text, so lookups compare the
// column against every variant instead of normalizing on write.
//
// Only numbers with exactly ten digits are expanded; anything else yields
// just the raw input. The raw input is always the first candidate.
func PhoneCandidates(raw, countryCode string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if countryCode == "" {
		countryCode = DefaultCountryCallingCode
	}
	countryCode = DigitsOnly(countryCode)

	digits := DigitsOnly(raw)
	if len(digits) != 10 {
		return []string{raw}
	}

	area, mid, tail := digits[:3], digits[3:6], digits[6:]
	variants := []string{
		raw,
		digits,
		fmt.Sprintf("%s-%s-%s", area, mid, tail),
		fmt.Sprintf("%s %s %s", area, mid, tail),
		fmt.Sprintf("(%s) %s %s", area, mid, tail),
		fmt.Sprintf("+%s %s", countryCode, digits),
		fmt.Sprintf("+%s%s", countryCode, digits),
		fmt.Sprintf("+%s %s %s %s", countryCode, area, mid, tail),
	}

	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
