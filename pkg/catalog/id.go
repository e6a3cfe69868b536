package catalog

import (
	"slices"
	"strings"

	"golang.org/x/text/width"
)

// CanonicalID normalizes a raw identifier for the given group.
//
// Numeric groups fold full-width digits to ASCII, drop every non-digit rune
// and strip leading zeros ("CWE-079" becomes "79"). Reference ids are only
// trimmed. An empty result means the id is unusable.
func CanonicalID(g Group, raw string) string {
	if !g.Numeric() {
		return strings.TrimSpace(raw)
	}
	return canonicalNumeric(raw)
}

func canonicalNumeric(raw string) string {
	folded := width.Fold.String(raw)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if digits == "" {
		return ""
	}
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// CompareNumeric compares two canonical numeric ids without parsing them,
// so arbitrarily long ids still order correctly.
func CompareNumeric(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// SortIDs sorts ids in place by the group's ordering rule and removes duplicates.
func SortIDs(g Group, ids []string) []string {
	if g.Numeric() {
		slices.SortFunc(ids, CompareNumeric)
	} else {
		slices.Sort(ids)
	}
	return slices.Compact(ids)
}

// CanonicalIDs canonicalizes, orders and deduplicates ids, dropping unusable ones.
func CanonicalIDs(g Group, raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, id := range raw {
		if c := CanonicalID(g, id); c != "" {
			out = append(out, c)
		}
	}
	return SortIDs(g, out)
}
