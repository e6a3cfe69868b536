package catalog

import "strings"

// Status is the lifecycle status of a catalog entry.
type Status string

// Known statuses. The empty status means the source value was missing or unknown.
const (
	StatusStable     Status = "Stable"
	StatusDraft      Status = "Draft"
	StatusIncomplete Status = "Incomplete"
	StatusObsolete   Status = "Obsolete"
	StatusDeprecated Status = "Deprecated"
)

// Statuses returns every known status.
func Statuses() []Status {
	return []Status{StatusStable, StatusDraft, StatusIncomplete, StatusObsolete, StatusDeprecated}
}

// ParseStatus matches s case-insensitively against the known statuses.
// ok is false for anything else, including the empty string.
func ParseStatus(s string) (Status, bool) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses() {
		if strings.EqualFold(s, string(st)) {
			return st, true
		}
	}
	return "", false
}

// String returns the string representation of a status.
func (s Status) String() string {
	return string(s)
}

// Inactive reports whether the entry has been retired.
func (s Status) Inactive() bool {
	return s == StatusDeprecated || s == StatusObsolete
}
