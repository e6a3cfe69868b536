package catalog

import (
	"slices"

	"github.com/agentstation/utc"
)

// Index is the persisted map from group and canonical id to entity file.
type Index struct {
	Version string                      `json:"version"`
	BuildID string                      `json:"build_id,omitempty"`
	BuiltAt utc.Time                    `json:"built_at"`
	Groups  map[Group]map[string]string `json:"groups"`
}

// NewIndex returns an index with an empty map for every group.
func NewIndex(version string) *Index {
	idx := &Index{
		Version: version,
		Groups:  make(map[Group]map[string]string, 4),
	}
	for _, g := range Groups() {
		idx.Groups[g] = make(map[string]string)
	}
	return idx
}

// Add registers an entity path.
func (idx *Index) Add(g Group, id, path string) {
	if idx.Groups[g] == nil {
		idx.Groups[g] = make(map[string]string)
	}
	idx.Groups[g][id] = path
}

// Path returns the file registered for an id.
func (idx *Index) Path(g Group, id string) (string, bool) {
	p, ok := idx.Groups[g][id]
	return p, ok
}

// IDs returns the ids of a group in canonical order.
func (idx *Index) IDs(g Group) []string {
	m := idx.Groups[g]
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	return SortIDs(g, ids)
}

// Len returns the number of ids registered for a group.
func (idx *Index) Len(g Group) int {
	return len(idx.Groups[g])
}

// Paths returns every registered path in a stable order.
func (idx *Index) Paths() []string {
	var out []string
	for _, g := range Groups() {
		for _, id := range idx.IDs(g) {
			out = append(out, idx.Groups[g][id])
		}
	}
	return slices.Clip(out)
}

// GroupOf returns the numeric group an id belongs to.
func (idx *Index) GroupOf(id string) (Group, bool) {
	for _, g := range RelationGroups() {
		if _, ok := idx.Groups[g][id]; ok {
			return g, true
		}
	}
	return "", false
}
