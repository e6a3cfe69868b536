package indexer

import (
	"errors"

	"github.com/agentstation/cwemap/pkg/catalog"
	pkgerrors "github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/utc"
)

// Reason explains why a raw record was skipped or only partly linked.
type Reason string

// Skip reasons.
const (
	ReasonMissingID        Reason = "missing id"
	ReasonDuplicateID      Reason = "duplicate id"
	ReasonNoMembers        Reason = "no membership section"
	ReasonMalformedMembers Reason = "malformed membership section"
)

// SkippedRecord is a raw record that produced no entity or no edges.
type SkippedRecord struct {
	Group  catalog.Group `json:"group"`
	ID     string        `json:"id,omitempty"`
	Reason Reason        `json:"reason"`
	Detail string        `json:"detail,omitempty"`
}

// DanglingEdge is a membership edge naming an id that is not in the catalog.
// Missing is the unresolved id: the target itself, or the originating view
// of a category edge.
type DanglingEdge struct {
	Owner   catalog.Group `json:"owner"`
	OwnerID string        `json:"owner_id"`
	Target  string        `json:"target"`
	View    string        `json:"view,omitempty"`
	Missing string        `json:"missing"`
}

// UnknownStatus records a status value outside the known set.
type UnknownStatus struct {
	Group catalog.Group `json:"group"`
	ID    string        `json:"id"`
	Value string        `json:"value"`
}

// Report summarizes one build. Problems are accumulated here instead of
// aborting the build.
type Report struct {
	Version         string                `json:"version"`
	BuildID         string                `json:"build_id"`
	BuiltAt         utc.Time              `json:"built_at"`
	Counts          map[catalog.Group]int `json:"counts"`
	Edges           int                   `json:"edges"`
	Skipped         []SkippedRecord       `json:"skipped,omitempty"`
	Dangling        []DanglingEdge        `json:"dangling,omitempty"`
	UnknownStatuses []UnknownStatus       `json:"unknown_statuses,omitempty"`
}

func newReport(buildID string) *Report {
	return &Report{
		BuildID: buildID,
		Counts:  make(map[catalog.Group]int, 4),
	}
}

// Total returns the number of entities built across all groups.
func (r *Report) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// HasIssues reports whether anything was skipped, dangling or unrecognized.
func (r *Report) HasIssues() bool {
	return len(r.Skipped) > 0 || len(r.Dangling) > 0 || len(r.UnknownStatuses) > 0
}

// SkippedByReason counts skipped records per reason.
func (r *Report) SkippedByReason() map[Reason]int {
	out := make(map[Reason]int)
	for _, s := range r.Skipped {
		out[s.Reason]++
	}
	return out
}

// DanglingErrors returns one DanglingReferenceError per dangling edge.
func (r *Report) DanglingErrors() []error {
	errs := make([]error, 0, len(r.Dangling))
	for _, d := range r.Dangling {
		errs = append(errs, &pkgerrors.DanglingReferenceError{
			Owner:  d.Owner.String(),
			ID:     d.OwnerID,
			Target: d.Missing,
		})
	}
	return errs
}

// Err joins the dangling reference errors, or returns nil when there are none.
func (r *Report) Err() error {
	return errors.Join(r.DanglingErrors()...)
}

func (r *Report) skip(g catalog.Group, id string, reason Reason, detail string) {
	r.Skipped = append(r.Skipped, SkippedRecord{Group: g, ID: id, Reason: reason, Detail: detail})
}
