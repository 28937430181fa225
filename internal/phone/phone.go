// Package phone parses, validates, and canonically formats North-American
// phone numbers extracted from arbitrary text.
package phone

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// numberPattern matches 10-digit North-American numbers with an optional
	// country code and parentheses, dots, hyphens, or spaces as separators.
	numberPattern = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)

	// telPattern matches tel: URIs embedded in text or markup attributes.
	telPattern = regexp.MustCompile(`tel:\+?[0-9().\-\s]{7,20}`)

	nonDigit = regexp.MustCompile(`\D`)
)

// ExtractCandidates returns every phone-number-looking substring of text,
// de-duplicated and in first-seen order. Values of tel: URIs are treated as
// direct candidates with the scheme stripped.
func ExtractCandidates(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, m := range telPattern.FindAllString(text, -1) {
		add(strings.TrimPrefix(m, "tel:"))
	}
	for _, m := range numberPattern.FindAllString(text, -1) {
		add(m)
	}
	return out
}

// Digits returns raw with every non-digit character removed.
func Digits(raw string) string {
	return nonDigit.ReplaceAllString(raw, "")
}

// IsValid reports whether raw contains exactly 10 digits after stripping
// all non-digit characters.
func IsValid(raw string) bool {
	return len(Digits(raw)) == 10
}

// Normalize formats raw as "(AAA) BBB-CCCC" when it strips to exactly 10
// digits. Anything else is returned unchanged — the caller must treat a
// non-valid input as unusable, not as a formatted number.
func Normalize(raw string) string {
	d := Digits(raw)
	if len(d) != 10 {
		return raw
	}
	return fmt.Sprintf("(%s) %s-%s", d[:3], d[3:6], d[6:])
}

// AreaCode returns the three-digit area code of a valid number, or "" when
// raw does not strip to exactly 10 digits.
func AreaCode(raw string) string {
	d := Digits(raw)
	if len(d) != 10 {
		return ""
	}
	return d[:3]
}
