// Package differ compares two catalog indexes and reports which ids appeared
// or disappeared between builds.
package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/cwemap/pkg/catalog"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an id was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeRemove indicates an id was removed.
	ChangeTypeRemove ChangeType = "remove"
	// ChangeTypeMove indicates a numeric id changed group.
	ChangeTypeMove ChangeType = "move"
)

// Move is a numeric id that belongs to a different group after the rebuild.
type Move struct {
	ID   string        `json:"id"`
	From catalog.Group `json:"from"`
	To   catalog.Group `json:"to"`
}

// GroupChangeset holds the changes within one group.
type GroupChangeset struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// HasChanges returns true if the group changed.
func (g *GroupChangeset) HasChanges() bool {
	return len(g.Added) > 0 || len(g.Removed) > 0
}

// Changeset represents all changes between two indexes.
type Changeset struct {
	FromVersion string                            `json:"from_version,omitempty"`
	ToVersion   string                            `json:"to_version"`
	Groups      map[catalog.Group]*GroupChangeset `json:"groups"`
	Moved       []Move                            `json:"moved,omitempty"`
	Summary     ChangesetSummary                  `json:"summary"`
}

// ChangesetSummary provides summary statistics for a changeset.
type ChangesetSummary struct {
	Added        int `json:"added"`
	Removed      int `json:"removed"`
	Moved        int `json:"moved"`
	TotalChanges int `json:"total_changes"`
}

// Group returns the changes of one group, never nil.
func (c *Changeset) Group(g catalog.Group) *GroupChangeset {
	if gc, ok := c.Groups[g]; ok {
		return gc
	}
	return &GroupChangeset{}
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

func (c *Changeset) calculateSummary() {
	s := ChangesetSummary{Moved: len(c.Moved)}
	for _, gc := range c.Groups {
		s.Added += len(gc.Added)
		s.Removed += len(gc.Removed)
	}
	// A move shows up as an add and a remove in two groups; count it once.
	s.TotalChanges = s.Added + s.Removed - s.Moved
	c.Summary = s
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string
	for _, g := range catalog.Groups() {
		gc := c.Group(g)
		if !gc.HasChanges() {
			continue
		}
		var groupParts []string
		if len(gc.Added) > 0 {
			groupParts = append(groupParts, fmt.Sprintf("%d added", len(gc.Added)))
		}
		if len(gc.Removed) > 0 {
			groupParts = append(groupParts, fmt.Sprintf("%d removed", len(gc.Removed)))
		}
		parts = append(parts, fmt.Sprintf("%s: %s", g.Plural(), strings.Join(groupParts, ", ")))
	}
	if len(c.Moved) > 0 {
		parts = append(parts, fmt.Sprintf("%d moved", len(c.Moved)))
	}

	return fmt.Sprintf("Changeset: %s (Total: %d changes)", strings.Join(parts, "; "), c.Summary.TotalChanges)
}

// Print writes a detailed, human-readable view of the changeset.
func (c *Changeset) Print(w io.Writer) {
	fmt.Fprintln(w, c.String())
	if c.IsEmpty() {
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 80))

	for _, g := range catalog.Groups() {
		gc := c.Group(g)
		if len(gc.Added) > 0 {
			fmt.Fprintf(w, "\n➕ Added %s (%d): %s\n", g.Plural(), len(gc.Added), strings.Join(gc.Added, ", "))
		}
		if len(gc.Removed) > 0 {
			fmt.Fprintf(w, "\n⚠️  Removed %s (%d): %s\n", g.Plural(), len(gc.Removed), strings.Join(gc.Removed, ", "))
		}
	}
	for _, m := range c.Moved {
		fmt.Fprintf(w, "\n🔄 %s moved from %s to %s\n", m.ID, m.From, m.To)
	}
}
