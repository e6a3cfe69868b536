package indexer_test

import (
	"context"
	"encoding/json"
	"path"
	"testing"

	"github.com/agentstation/cwemap/internal/indexer"
	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/cwemap/pkg/logging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(target, view string) map[string]any {
	m := map[string]any{"CWE_ID": target}
	if view != "" {
		m["View_ID"] = view
	}
	return m
}

// exampleDocument is the smallest catalog with a view, a category and a weakness.
func exampleDocument() *catalog.Document {
	return &catalog.Document{Catalog: catalog.Catalog{
		Version: "4.16",
		Views: []catalog.Record{
			{"ID": "1000", "Status": "Draft", "Members": map[string]any{
				"Has_Member": []any{member("700", "")},
			}},
		},
		Categories: []catalog.Record{
			{"ID": "700", "Status": "Draft", "Relationships": map[string]any{
				"Has_Member": []any{member("20", "1000")},
			}},
		},
		Weaknesses: []catalog.Record{
			{"ID": "20", "Status": "Stable", "Name": "Improper Input Validation"},
		},
	}}
}

// richDocument exercises duplicates, ordering and every failure path.
func richDocument() *catalog.Document {
	return &catalog.Document{Catalog: catalog.Catalog{
		Version: 4.16,
		Views: []catalog.Record{
			{"ID": "1000", "Status": "Draft", "Members": map[string]any{
				"Has_Member": []any{member("700", ""), member("699", ""), member("79", ""), member("79", "")},
			}},
			{"ID": "699", "Status": "Draft", "Members": map[string]any{
				"Has_Member": []any{member("20", "")},
			}},
			{"ID": "1400", "Status": "Incomplete"},
		},
		Categories: []catalog.Record{
			{"ID": "700", "Relationships": map[string]any{
				"Has_Member": []any{member("100", "1000"), member("20", "1000"), member("20", "699"), member("99999", "1000")},
			}},
			{"ID": "CWE-0019", "Status": "Obsolete", "Relationships": map[string]any{
				"Has_Member": []any{member("79", "4242")},
			}},
			{"ID": "18", "Relationships": map[string]any{
				"Has_Member": map[string]any{"CWE_ID": "20"},
			}},
			{"ID": "17", "Relationships": map[string]any{
				"Has_Member": []any{member("20", ""), map[string]any{"View_ID": "1000"}},
			}},
		},
		Weaknesses: []catalog.Record{
			{"ID": "20", "Status": "Stable"},
			{"ID": "100", "Status": "Deprecated"},
			{"ID": "79", "Status": "Usable"},
			{"ID": "700", "Status": "Stable"},
			{"Name": "no id"},
		},
		References: []catalog.Record{
			{"Reference_ID": "REF-2", "Title": "Second"},
			{"Reference_ID": "REF-10", "Title": "Tenth"},
			{"Reference_ID": " REF-2 ", "Title": "Duplicate"},
		},
	}}
}

func run(t *testing.T, fs afero.Fs, root string, doc *catalog.Document) (*indexer.Indexer, *indexer.Report) {
	t.Helper()
	logging.DisableLoggingForTest(t)
	ix := indexer.New(fs, root, indexer.WithBuildID("test-build"))
	report, err := ix.Run(context.Background(), doc)
	require.NoError(t, err)
	require.NotNil(t, report)
	return ix, report
}

func readEntity(t *testing.T, fs afero.Fs, root string, g catalog.Group, id string) *catalog.Entity {
	t.Helper()
	data, err := afero.ReadFile(fs, path.Join(root, catalog.EntityPath(g, id)))
	require.NoError(t, err)
	var e catalog.Entity
	require.NoError(t, json.Unmarshal(data, &e))
	return &e
}

func TestRunExample(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, report := run(t, fs, "/data", exampleDocument())

	assert.Equal(t, "4.16", report.Version)
	assert.Equal(t, "test-build", report.BuildID)
	assert.Equal(t, 3, report.Total())
	assert.Equal(t, 2, report.Edges)
	assert.False(t, report.HasIssues())
	assert.NoError(t, report.Err())

	view := readEntity(t, fs, "/data", catalog.GroupView, "1000")
	category := readEntity(t, fs, "/data", catalog.GroupCategory, "700")
	weakness := readEntity(t, fs, "/data", catalog.GroupWeakness, "20")

	assert.Equal(t, []string{"700"}, view.HasMember[catalog.GroupCategory])
	assert.Equal(t, []string{"1000"}, category.MemberOf[catalog.GroupView])
	assert.Equal(t, []string{"20"}, category.HasMember[catalog.GroupWeakness])
	assert.Equal(t, []string{"700"}, weakness.MemberOf[catalog.GroupCategory])
	assert.Equal(t, []string{"1000"}, weakness.MemberOf[catalog.GroupView])

	assert.Equal(t, catalog.StatusStable, weakness.Status)
	assert.Equal(t, "weakness/20.json", weakness.Path)
	assert.Equal(t, "https://cwe.mitre.org/data/definitions/20.html", weakness.URL)
	assert.Equal(t, "Improper Input Validation", weakness.Name())

	var idx catalog.Index
	data, err := afero.ReadFile(fs, "/data/index.json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &idx))
	assert.Equal(t, "4.16", idx.Version)
	assert.Equal(t, "test-build", idx.BuildID)
	assert.False(t, idx.BuiltAt.IsZero())
	p, ok := idx.Path(catalog.GroupCategory, "700")
	assert.True(t, ok)
	assert.Equal(t, "category/700.json", p)
}

func TestRunSymmetry(t *testing.T) {
	fs := afero.NewMemMapFs()
	ix, _ := run(t, fs, "/data", richDocument())

	for _, g := range catalog.RelationGroups() {
		for _, id := range idsOf(t, fs, g) {
			owner, ok := ix.Entity(g, id)
			require.True(t, ok)
			for tg, members := range owner.HasMember {
				for _, m := range members {
					target, ok := ix.Entity(tg, m)
					require.True(t, ok, "%s %s has unknown member %s", g, id, m)
					assert.Contains(t, target.MemberOf[g], id, "%s %s -> %s %s", g, id, tg, m)
				}
			}
		}
	}
}

func TestRunOrdering(t *testing.T) {
	fs := afero.NewMemMapFs()
	ix, _ := run(t, fs, "/data", richDocument())

	for _, g := range catalog.RelationGroups() {
		for _, id := range idsOf(t, fs, g) {
			e, _ := ix.Entity(g, id)
			for _, rel := range []catalog.Relations{e.HasMember, e.MemberOf} {
				for rg, ids := range rel {
					for i := 1; i < len(ids); i++ {
						assert.True(t, rg.Less(ids[i-1], ids[i]), "%s %s %s not strictly sorted: %v", g, id, rg, ids)
					}
				}
			}
		}
	}

	view, _ := ix.Entity(catalog.GroupView, "1000")
	assert.Equal(t, []string{"79"}, view.HasMember[catalog.GroupWeakness])
	assert.Equal(t, []string{"700"}, view.HasMember[catalog.GroupCategory])
	assert.Equal(t, []string{"699"}, view.HasMember[catalog.GroupView])

	weakness, _ := ix.Entity(catalog.GroupWeakness, "20")
	assert.Equal(t, []string{"700"}, weakness.MemberOf[catalog.GroupCategory])
	assert.Equal(t, []string{"699", "1000"}, weakness.MemberOf[catalog.GroupView])
}

func TestRunReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	ix, report := run(t, fs, "/data", richDocument())

	assert.Equal(t, map[catalog.Group]int{
		catalog.GroupView:      3,
		catalog.GroupCategory:  4,
		catalog.GroupWeakness:  3,
		catalog.GroupReference: 2,
	}, report.Counts)

	t.Run("duplicate ids", func(t *testing.T) {
		assert.Contains(t, report.Skipped, indexer.SkippedRecord{
			Group: catalog.GroupWeakness, ID: "700", Reason: indexer.ReasonDuplicateID, Detail: "already defined as category",
		})
		assert.Contains(t, report.Skipped, indexer.SkippedRecord{
			Group: catalog.GroupReference, ID: "REF-2", Reason: indexer.ReasonDuplicateID, Detail: "already defined as reference",
		})
		category, ok := ix.Entity(catalog.GroupCategory, "700")
		require.True(t, ok)
		assert.Equal(t, catalog.Status(""), category.Status)
		_, ok = ix.Entity(catalog.GroupWeakness, "700")
		assert.False(t, ok)
	})

	t.Run("missing id", func(t *testing.T) {
		assert.Contains(t, report.Skipped, indexer.SkippedRecord{Group: catalog.GroupWeakness, Reason: indexer.ReasonMissingID})
	})

	t.Run("membership sections", func(t *testing.T) {
		assert.Contains(t, report.Skipped, indexer.SkippedRecord{Group: catalog.GroupView, ID: "1400", Reason: indexer.ReasonNoMembers})
		assert.Contains(t, report.Skipped, indexer.SkippedRecord{
			Group: catalog.GroupCategory, ID: "18", Reason: indexer.ReasonMalformedMembers, Detail: "Has_Member is not a list",
		})
		assert.Contains(t, report.Skipped, indexer.SkippedRecord{
			Group: catalog.GroupCategory, ID: "17", Reason: indexer.ReasonMalformedMembers, Detail: "edge 1 has no CWE_ID",
		})

		// A rejected section contributes no edges at all.
		c17, _ := ix.Entity(catalog.GroupCategory, "17")
		assert.Empty(t, c17.HasMember[catalog.GroupWeakness])
	})

	t.Run("dangling", func(t *testing.T) {
		assert.Contains(t, report.Dangling, indexer.DanglingEdge{
			Owner: catalog.GroupCategory, OwnerID: "700", Target: "99999", View: "1000", Missing: "99999",
		})
		assert.Contains(t, report.Dangling, indexer.DanglingEdge{
			Owner: catalog.GroupCategory, OwnerID: "19", Target: "79", View: "4242", Missing: "4242",
		})

		// An unknown view keeps the edge itself.
		c19, _ := ix.Entity(catalog.GroupCategory, "19")
		assert.Equal(t, []string{"79"}, c19.HasMember[catalog.GroupWeakness])
		assert.Empty(t, c19.MemberOf[catalog.GroupView])

		err := report.Err()
		require.Error(t, err)
		assert.True(t, errors.IsDanglingReference(err))
		assert.Len(t, report.DanglingErrors(), 2)
	})

	t.Run("unknown status", func(t *testing.T) {
		assert.Equal(t, []indexer.UnknownStatus{{Group: catalog.GroupWeakness, ID: "79", Value: "Usable"}}, report.UnknownStatuses)
		w, _ := ix.Entity(catalog.GroupWeakness, "79")
		assert.Equal(t, catalog.Status(""), w.Status)
	})

	assert.True(t, report.HasIssues())
	byReason := report.SkippedByReason()
	assert.Equal(t, 2, byReason[indexer.ReasonDuplicateID])
	assert.Equal(t, 2, byReason[indexer.ReasonMalformedMembers])
}

func TestRunLogsGroupAndEntity(t *testing.T) {
	tl := logging.NewTestLogger(t)
	ctx := logging.WithLogger(context.Background(), tl.Logger)

	_, err := indexer.New(afero.NewMemMapFs(), "/data").Run(ctx, richDocument())
	require.NoError(t, err)

	find := func(msg string) map[string]any {
		for _, line := range tl.Lines() {
			var fields map[string]any
			require.NoError(t, json.Unmarshal([]byte(line), &fields))
			if fields["message"] == msg {
				return fields
			}
		}
		t.Fatalf("no %q log line", msg)
		return nil
	}

	built := find("Built entities")
	assert.Equal(t, "view", built["group"])

	dup := find("Skipped duplicate id")
	assert.Equal(t, "weakness", dup["group"])
	assert.Equal(t, "700", dup["entity_id"])
	assert.Equal(t, "category", dup["defined_as"])

	section := find("Skipped membership section")
	assert.Equal(t, "view", section["group"])
	assert.Equal(t, "1400", section["entity_id"])
}

func TestRunDeterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	run(t, fs, "/a", richDocument())
	run(t, fs, "/b", richDocument())

	for _, g := range catalog.Groups() {
		for _, id := range idsOf(t, fs, g) {
			rel := catalog.EntityPath(g, id)
			a, err := afero.ReadFile(fs, path.Join("/a", rel))
			require.NoError(t, err)
			b, err := afero.ReadFile(fs, path.Join("/b", rel))
			require.NoError(t, err)
			assert.Equal(t, string(a), string(b), rel)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	ix, _ := run(t, fs, "/data", richDocument())

	snapshot := func() string {
		var out []byte
		for _, g := range catalog.Groups() {
			for _, id := range idsOf(t, fs, g) {
				e, _ := ix.Entity(g, id)
				data, err := json.Marshal(e)
				require.NoError(t, err)
				out = append(out, data...)
			}
		}
		return string(out)
	}

	before := snapshot()
	ix.Normalize()
	assert.Equal(t, before, snapshot())
}

func TestBuildEntitiesPersistsBaseRecords(t *testing.T) {
	logging.DisableLoggingForTest(t)
	fs := afero.NewMemMapFs()
	ix := indexer.New(fs, "/data")

	require.NoError(t, ix.BuildEntities(context.Background(), exampleDocument()))

	weakness := readEntity(t, fs, "/data", catalog.GroupWeakness, "20")
	assert.Empty(t, weakness.MemberOf[catalog.GroupCategory])
	assert.NotNil(t, weakness.MemberOf[catalog.GroupView])

	exists, err := afero.Exists(fs, "/data/index.json")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NotEmpty(t, ix.Report().BuildID)
}

func TestLinkMembersErrors(t *testing.T) {
	ix := indexer.New(afero.NewMemMapFs(), "/data")

	err := ix.LinkMembers(context.Background(), catalog.GroupWeakness)
	assert.True(t, errors.IsValidationError(err))

	err = ix.LinkMembers(context.Background(), catalog.GroupView)
	require.Error(t, err)

	assert.Error(t, ix.Persist(context.Background()))
}

func TestRunFailures(t *testing.T) {
	logging.DisableLoggingForTest(t)

	t.Run("invalid document", func(t *testing.T) {
		ix := indexer.New(afero.NewMemMapFs(), "/data")
		_, err := ix.Run(context.Background(), &catalog.Document{})
		assert.True(t, errors.IsParse(err))
	})

	t.Run("read only filesystem", func(t *testing.T) {
		ix := indexer.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data")
		_, err := ix.Run(context.Background(), exampleDocument())
		require.Error(t, err)
		assert.True(t, errors.IsStorage(err))
	})
}

// idsOf lists the ids written to the index.
func idsOf(t *testing.T, fs afero.Fs, g catalog.Group) []string {
	t.Helper()
	for _, root := range []string{"/data", "/a"} {
		data, err := afero.ReadFile(fs, path.Join(root, "index.json"))
		if err != nil {
			continue
		}
		var idx catalog.Index
		require.NoError(t, json.Unmarshal(data, &idx))
		return idx.IDs(g)
	}
	t.Fatalf("no index written")
	return nil
}
