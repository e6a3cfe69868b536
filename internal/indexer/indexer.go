// Package indexer turns a raw catalog document into the persisted entity
// store: one JSON file per entity plus an index document.
//
// A build runs in four steps. BuildEntities creates and immediately persists
// the base record of every entity, LinkMembers derives both directions of
// every declared membership edge, Normalize sorts and deduplicates the
// relation lists and Persist rewrites the entities and the index.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"

	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/logging"
	"github.com/agentstation/utc"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Indexer builds an entity store under a root directory.
type Indexer struct {
	fs      afero.Fs
	root    string
	buildID string

	doc      *catalog.Document
	entities map[catalog.Group]map[string]*catalog.Entity
	groupOf  map[string]catalog.Group
	built    map[catalog.Group][]*catalog.Entity // parallel to the raw records, nil when skipped
	report   *Report
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithBuildID sets the build id written to the index and report.
func WithBuildID(id string) Option {
	return func(ix *Indexer) {
		ix.buildID = id
	}
}

// New creates an indexer writing below root on fs.
func New(fs afero.Fs, root string, opts ...Option) *Indexer {
	ix := &Indexer{fs: fs, root: root}
	for _, opt := range opts {
		opt(ix)
	}
	if ix.buildID == "" {
		ix.buildID = uuid.NewString()
	}
	return ix
}

// Run executes a full build and returns its report.
func (ix *Indexer) Run(ctx context.Context, doc *catalog.Document) (*Report, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	if err := ix.BuildEntities(ctx, doc); err != nil {
		return nil, err
	}
	for _, g := range []catalog.Group{catalog.GroupView, catalog.GroupCategory} {
		if err := ix.LinkMembers(ctx, g); err != nil {
			return nil, err
		}
	}
	ix.Normalize()
	if err := ix.Persist(ctx); err != nil {
		return nil, err
	}
	return ix.report, nil
}

// Report returns the report of the current build.
func (ix *Indexer) Report() *Report {
	return ix.report
}

// Entity returns a built entity.
func (ix *Indexer) Entity(g catalog.Group, id string) (*catalog.Entity, bool) {
	e, ok := ix.entities[g][id]
	return e, ok
}

// BuildEntities creates one entity per usable raw record and writes its base
// record right away, before any relationship is known. View, category and
// weakness ids share one namespace; the first record claiming an id wins.
func (ix *Indexer) BuildEntities(ctx context.Context, doc *catalog.Document) error {
	if doc == nil {
		return errors.NewParseError("json", "", "nil catalog document", nil)
	}
	ix.doc = doc
	ix.entities = make(map[catalog.Group]map[string]*catalog.Entity, 4)
	ix.groupOf = make(map[string]catalog.Group)
	ix.built = make(map[catalog.Group][]*catalog.Entity, 4)
	ix.report = newReport(ix.buildID)
	ix.report.Version = doc.Catalog.VersionString()

	for _, g := range catalog.Groups() {
		gctx := logging.WithGroup(ctx, g.String())
		records := doc.Records(g)
		ix.entities[g] = make(map[string]*catalog.Entity, len(records))
		ix.built[g] = make([]*catalog.Entity, len(records))

		for i, rec := range records {
			rawID := rec.String(catalog.IDKey(g))
			id := catalog.CanonicalID(g, rawID)
			if id == "" {
				ix.report.skip(g, rawID, ReasonMissingID, "")
				continue
			}
			if prev, dup := ix.claim(g, id); dup {
				ix.report.skip(g, id, ReasonDuplicateID, "already defined as "+prev.String())
				logging.FromContext(logging.WithEntity(gctx, id)).Debug().
					Str("defined_as", prev.String()).
					Msg("Skipped duplicate id")
				continue
			}

			status := ix.status(g, id, rec)
			e := catalog.NewEntity(g, id, status, rec)
			if err := ix.writeJSON(e.Path, e); err != nil {
				return err
			}
			ix.entities[g][id] = e
			ix.built[g][i] = e
		}

		ix.report.Counts[g] = len(ix.entities[g])
		logging.FromContext(gctx).Debug().
			Int("records", len(records)).
			Int("entities", ix.report.Counts[g]).
			Msg("Built entities")
	}
	return nil
}

// claim registers id in its namespace. It returns the group already holding
// the id when it is taken.
func (ix *Indexer) claim(g catalog.Group, id string) (catalog.Group, bool) {
	if !g.Numeric() {
		if _, ok := ix.entities[g][id]; ok {
			return g, true
		}
		return "", false
	}
	if prev, ok := ix.groupOf[id]; ok {
		return prev, true
	}
	ix.groupOf[id] = g
	return "", false
}

func (ix *Indexer) status(g catalog.Group, id string, rec catalog.Record) catalog.Status {
	raw := rec.String("Status")
	if raw == "" {
		return ""
	}
	st, ok := catalog.ParseStatus(raw)
	if !ok {
		ix.report.UnknownStatuses = append(ix.report.UnknownStatuses, UnknownStatus{Group: g, ID: id, Value: raw})
		return ""
	}
	return st
}

// edge is one parsed membership declaration.
type edge struct {
	target string
	view   string
}

// membershipSection returns the key holding a group's membership list.
func membershipSection(g catalog.Group) (string, bool) {
	switch g {
	case catalog.GroupView:
		return "Members", true
	case catalog.GroupCategory:
		return "Relationships", true
	}
	return "", false
}

// LinkMembers derives both directions of the membership edges declared by
// the view or category records. Malformed sections skip the record and
// dangling targets skip the edge; both are reported and neither fails.
func (ix *Indexer) LinkMembers(ctx context.Context, g catalog.Group) error {
	section, ok := membershipSection(g)
	if !ok {
		return errors.NewValidationError("group", g, "only views and categories declare members")
	}
	if ix.doc == nil {
		return errors.NewResourceError("link", "entities", g.String(), fmt.Errorf("entities have not been built"))
	}
	ctx = logging.WithGroup(ctx, g.String())

	linked := 0
	for i, rec := range ix.doc.Records(g) {
		owner := ix.built[g][i]
		if owner == nil {
			continue
		}

		edges, reason, detail := parseEdges(rec.Map(section))
		if reason != "" {
			ix.report.skip(g, owner.ID, reason, detail)
			logging.FromContext(logging.WithEntity(ctx, owner.ID)).Debug().
				Str("reason", string(reason)).
				Msg("Skipped membership section")
			continue
		}

		for _, ed := range edges {
			if ix.link(owner, ed) {
				linked++
			}
		}
	}

	ix.report.Edges += linked
	logging.FromContext(ctx).Debug().Int("edges", linked).Msg("Linked members")
	return nil
}

// parseEdges reads every Has_Member edge of a membership section. Any bad
// edge rejects the whole section so a record is linked completely or not at all.
func parseEdges(section catalog.Record) ([]edge, Reason, string) {
	if section == nil {
		return nil, ReasonNoMembers, ""
	}
	items, ok := section.List("Has_Member")
	if !ok {
		return nil, ReasonMalformedMembers, "Has_Member is not a list"
	}
	if len(items) == 0 {
		return nil, ReasonNoMembers, ""
	}

	edges := make([]edge, 0, len(items))
	for n, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			if r, isRec := item.(catalog.Record); isRec {
				m, ok = r, true
			}
		}
		if !ok {
			return nil, ReasonMalformedMembers, fmt.Sprintf("edge %d is not an object", n)
		}
		rec := catalog.Record(m)
		target := catalog.CanonicalID(catalog.GroupWeakness, rec.String("CWE_ID"))
		if target == "" {
			return nil, ReasonMalformedMembers, fmt.Sprintf("edge %d has no CWE_ID", n)
		}
		edges = append(edges, edge{
			target: target,
			view:   catalog.CanonicalID(catalog.GroupView, rec.String("View_ID")),
		})
	}
	return edges, "", ""
}

// link applies one edge. It returns false when the target is dangling.
func (ix *Indexer) link(owner *catalog.Entity, ed edge) bool {
	tg, ok := ix.groupOf[ed.target]
	if !ok {
		ix.report.Dangling = append(ix.report.Dangling, DanglingEdge{
			Owner: owner.Group, OwnerID: owner.ID, Target: ed.target, View: ed.view, Missing: ed.target,
		})
		return false
	}
	target := ix.entities[tg][ed.target]

	owner.HasMember.Add(tg, target.ID)
	target.MemberOf.Add(owner.Group, owner.ID)

	// Category edges name the view the association belongs to.
	if owner.Group == catalog.GroupCategory && ed.view != "" {
		if ix.groupOf[ed.view] != catalog.GroupView {
			ix.report.Dangling = append(ix.report.Dangling, DanglingEdge{
				Owner: owner.Group, OwnerID: owner.ID, Target: ed.target, View: ed.view, Missing: ed.view,
			})
			return true
		}
		owner.MemberOf.Add(catalog.GroupView, ed.view)
		target.MemberOf.Add(catalog.GroupView, ed.view)
	}
	return true
}

// Normalize sorts and deduplicates every relation list. It is idempotent.
func (ix *Indexer) Normalize() {
	for _, byID := range ix.entities {
		for _, e := range byID {
			e.Normalize()
		}
	}
}

// Persist writes every entity in canonical order followed by the index document.
func (ix *Indexer) Persist(ctx context.Context) error {
	if ix.report == nil {
		return errors.NewResourceError("persist", "entities", "", fmt.Errorf("entities have not been built"))
	}

	idx := catalog.NewIndex(ix.report.Version)
	idx.BuildID = ix.buildID
	for _, g := range catalog.Groups() {
		ids := make([]string, 0, len(ix.entities[g]))
		for id := range ix.entities[g] {
			ids = append(ids, id)
		}
		for _, id := range catalog.SortIDs(g, ids) {
			e := ix.entities[g][id]
			if err := ix.writeJSON(e.Path, e); err != nil {
				return err
			}
			idx.Add(g, id, e.Path)
		}
	}

	idx.BuiltAt = utc.Now()
	ix.report.BuiltAt = idx.BuiltAt
	if err := ix.writeJSON(constants.IndexFile, idx); err != nil {
		return err
	}

	logging.FromContext(ctx).Info().
		Str("version", ix.report.Version).
		Int("entities", ix.report.Total()).
		Int("edges", ix.report.Edges).
		Int("skipped", len(ix.report.Skipped)).
		Int("dangling", len(ix.report.Dangling)).
		Msg("Persisted catalog")
	return nil
}

// writeJSON writes v as indented JSON to a slash-separated path below root.
func (ix *Indexer) writeJSON(rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WrapParse("json", rel, err)
	}
	data = append(data, '\n')

	full := filepath.Join(ix.root, filepath.FromSlash(rel))
	if dir := path.Dir(rel); dir != "." {
		if err := ix.fs.MkdirAll(filepath.Join(ix.root, filepath.FromSlash(dir)), constants.DirPermissions); err != nil {
			return errors.WrapIO("create", dir, err)
		}
	} else if err := ix.fs.MkdirAll(ix.root, constants.DirPermissions); err != nil {
		return errors.WrapIO("create", ix.root, err)
	}
	if err := afero.WriteFile(ix.fs, full, data, constants.FilePermissions); err != nil {
		return errors.WrapIO("write", full, err)
	}
	return nil
}
