// Package disambig selects one phone number from a set of extracted
// candidates using a fixed, deterministic tie-break policy.
package disambig

import (
	"log/slog"

	"github.com/kalambet/deptline/internal/phone"
)

// Candidate is one extracted phone number tagged with its provenance.
type Candidate struct {
	Raw       string
	SourceURL string
	Rank      int // original search rank of the source URL, 0 = highest
}

// Choice is the selected number. LowConfidence marks a selection that fell
// through every discriminating step and picked the first remaining
// candidate, which is not guaranteed to be correct.
type Choice struct {
	Phone         string
	LowConfidence bool
}

// Choose applies the tie-break policy:
//
//  1. drop candidates that don't strip to exactly 10 digits
//  2. a single survivor wins
//  3. a single survivor from the highest-ranked source URL wins
//  4. a single survivor with an allow-listed area code wins
//  5. otherwise the first survivor in discovery order wins, low-confidence
//
// Returns ok=false when no valid candidate exists.
func Choose(candidates []Candidate, areaCodes []string) (Choice, bool) {
	valid := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if phone.IsValid(c.Raw) {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return Choice{}, false
	}

	if len(valid) == 1 {
		return Choice{Phone: phone.Normalize(valid[0].Raw)}, true
	}

	// First-result provenance is a strong relevance signal.
	var fromFirst []Candidate
	for _, c := range valid {
		if c.Rank == 0 {
			fromFirst = append(fromFirst, c)
		}
	}
	if len(fromFirst) == 1 {
		return Choice{Phone: phone.Normalize(fromFirst[0].Raw)}, true
	}

	var inArea []Candidate
	for _, c := range valid {
		if containsString(areaCodes, phone.AreaCode(c.Raw)) {
			inArea = append(inArea, c)
		}
	}
	if len(inArea) == 1 {
		return Choice{Phone: phone.Normalize(inArea[0].Raw)}, true
	}

	// No discriminating signal left; fall back to discovery order.
	slog.Warn("disambiguation fell through to first candidate",
		"candidates", len(valid), "chosen", valid[0].Raw, "source", valid[0].SourceURL)
	return Choice{Phone: phone.Normalize(valid[0].Raw), LowConfidence: true}, true
}

func containsString(ss []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
