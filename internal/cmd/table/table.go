// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/cwemap/internal/indexer"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/differ"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// maxNameWidth caps entity names in list views.
const maxNameWidth = 80

// EntitiesToTableData converts entities to table format. Wide output adds the
// membership counts and the web page of each entity.
func EntitiesToTableData(entities []*catalog.Entity, wide bool) Data {
	headers := []string{"ID", "Group", "Status", "Name"}
	align := []Align{AlignRight, AlignLeft, AlignLeft, AlignLeft}
	if wide {
		headers = append(headers, "Members", "Parents", "URL")
		align = append(align, AlignRight, AlignRight, AlignLeft)
	}

	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		row := []string{
			e.ID,
			e.Group.String(),
			orDash(e.Status.String()),
			orDash(Truncate(e.Name(), maxNameWidth)),
		}
		if wide {
			row = append(row,
				strconv.Itoa(countEdges(e.HasMember)),
				strconv.Itoa(countEdges(e.MemberOf)),
				e.URL,
			)
		}
		rows = append(rows, row)
	}

	return Data{
		Headers:         headers,
		Rows:            rows,
		ColumnAlignment: align,
	}
}

// EntityToTableData converts one entity to a property/value table.
func EntityToTableData(e *catalog.Entity) Data {
	rows := [][]string{
		{"ID", e.ID},
		{"Group", e.Group.String()},
		{"Status", orDash(e.Status.String())},
		{"Name", orDash(e.Name())},
		{"URL", e.URL},
		{"Path", e.Path},
	}

	if e.Group.Numeric() {
		for _, dir := range []catalog.Direction{catalog.HasMember, catalog.MemberOf} {
			for _, g := range catalog.RelationGroups() {
				ids := e.Relation(dir, g)
				if len(ids) == 0 {
					continue
				}
				rows = append(rows, []string{
					fmt.Sprintf("%s %s", directionLabel(dir), g.Plural()),
					FormatIDs(ids, 12),
				})
			}
		}
	}

	return Data{
		Headers: []string{"Property", "Value"},
		Rows:    rows,
	}
}

// ChangesToTableData converts a changeset to one row per group.
func ChangesToTableData(c *differ.Changeset) Data {
	rows := make([][]string, 0, len(catalog.Groups()))
	for _, g := range catalog.Groups() {
		gc := c.Group(g)
		rows = append(rows, []string{
			g.String(),
			strconv.Itoa(len(gc.Added)),
			strconv.Itoa(len(gc.Removed)),
			FormatIDs(append(append([]string{}, gc.Added...), gc.Removed...), 8),
		})
	}
	return Data{
		Headers:         []string{"Group", "Added", "Removed", "IDs"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight, AlignRight, AlignLeft},
	}
}

// ReportToTableData converts the problems of a build report to one row each.
func ReportToTableData(r *indexer.Report) Data {
	var rows [][]string
	for _, s := range r.Skipped {
		rows = append(rows, []string{"skipped", s.Group.String(), orDash(s.ID), string(s.Reason) + detail(s.Detail)})
	}
	for _, d := range r.Dangling {
		rows = append(rows, []string{"dangling", d.Owner.String(), d.OwnerID, "unknown id " + d.Missing})
	}
	for _, u := range r.UnknownStatuses {
		rows = append(rows, []string{"status", u.Group.String(), u.ID, "unknown status " + strconv.Quote(u.Value)})
	}
	return Data{
		Headers: []string{"Issue", "Group", "ID", "Detail"},
		Rows:    rows,
	}
}

// CountsToTableData converts per-group entity counts to a table.
func CountsToTableData(counts map[catalog.Group]int) Data {
	rows := make([][]string, 0, len(counts)+1)
	total := 0
	for _, g := range catalog.Groups() {
		rows = append(rows, []string{g.String(), strconv.Itoa(counts[g])})
		total += counts[g]
	}
	rows = append(rows, []string{"total", strconv.Itoa(total)})
	return Data{
		Headers:         []string{"Group", "Entities"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignLeft, AlignRight},
	}
}

// FormatIDs joins ids, eliding everything past limit.
func FormatIDs(ids []string, limit int) string {
	if len(ids) == 0 {
		return "-"
	}
	if limit <= 0 || len(ids) <= limit {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(ids[:limit], ", "), len(ids)-limit)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return string(r[:n-3]) + "..."
}

func countEdges(r catalog.Relations) int {
	n := 0
	for _, ids := range r {
		n += len(ids)
	}
	return n
}

func directionLabel(dir catalog.Direction) string {
	if dir == catalog.HasMember {
		return "Member"
	}
	return "Parent"
}

func detail(s string) string {
	if s == "" {
		return ""
	}
	return ": " + s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
