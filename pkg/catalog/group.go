// Package catalog defines the data model of the local CWE store: groups,
// canonical ids, statuses, entity records, the raw catalog document and the
// index document that maps ids to entity files.
package catalog

import (
	"fmt"
	"strings"

	"github.com/agentstation/cwemap/pkg/errors"
)

// Group identifies one of the four kinds of catalog entry.
type Group string

// Catalog groups.
const (
	GroupView      Group = "view"
	GroupCategory  Group = "category"
	GroupWeakness  Group = "weakness"
	GroupReference Group = "reference"
)

// Groups lists every group in build order.
func Groups() []Group {
	return []Group{GroupView, GroupCategory, GroupWeakness, GroupReference}
}

// RelationGroups lists the groups that can appear in has_member and member_of.
func RelationGroups() []Group {
	return []Group{GroupView, GroupCategory, GroupWeakness}
}

// String returns the string representation of a group.
func (g Group) String() string {
	return string(g)
}

// IsValid reports whether g is a known group.
func (g Group) IsValid() bool {
	switch g {
	case GroupView, GroupCategory, GroupWeakness, GroupReference:
		return true
	}
	return false
}

// Numeric reports whether ids of the group are numeric CWE ids.
func (g Group) Numeric() bool {
	return g == GroupView || g == GroupCategory || g == GroupWeakness
}

// Less orders two canonical ids according to the group's ordering rule.
func (g Group) Less(a, b string) bool {
	if g.Numeric() {
		return CompareNumeric(a, b) < 0
	}
	return a < b
}

// Plural returns the plural form used for directory listings and tables.
func (g Group) Plural() string {
	switch g {
	case GroupCategory:
		return "categories"
	default:
		return string(g) + "s"
	}
}

// ParseGroup resolves user input to a Group. It accepts singular and plural
// forms plus the short aliases cwe, cat and ref.
func ParseGroup(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "view", "views":
		return GroupView, nil
	case "category", "categories", "cat":
		return GroupCategory, nil
	case "weakness", "weaknesses", "cwe":
		return GroupWeakness, nil
	case "reference", "references", "ref", "external_reference":
		return GroupReference, nil
	}
	return "", &errors.ValidationError{
		Field:   "group",
		Value:   s,
		Message: fmt.Sprintf("unknown group %q (want view, category, weakness or reference)", s),
	}
}
