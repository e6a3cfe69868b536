package differ

import (
	"github.com/agentstation/cwemap/pkg/catalog"
)

// Indexes compares the index of the previous build with the new one. A nil
// previous index means a first install, so every id counts as added.
func Indexes(previous, current *catalog.Index) *Changeset {
	if previous == nil {
		previous = catalog.NewIndex("")
	}
	if current == nil {
		current = catalog.NewIndex("")
	}

	c := &Changeset{
		FromVersion: previous.Version,
		ToVersion:   current.Version,
		Groups:      make(map[catalog.Group]*GroupChangeset, 4),
	}

	for _, g := range catalog.Groups() {
		gc := &GroupChangeset{}
		for _, id := range current.IDs(g) {
			if _, ok := previous.Path(g, id); !ok {
				gc.Added = append(gc.Added, id)
			}
		}
		for _, id := range previous.IDs(g) {
			if _, ok := current.Path(g, id); !ok {
				gc.Removed = append(gc.Removed, id)
			}
		}
		c.Groups[g] = gc
	}

	// Numeric ids share one namespace, so an id removed from one group and
	// added to another was reclassified.
	for _, from := range catalog.RelationGroups() {
		for _, id := range c.Groups[from].Removed {
			if to, ok := current.GroupOf(id); ok {
				c.Moved = append(c.Moved, Move{ID: id, From: from, To: to})
			}
		}
	}

	c.calculateSummary()
	return c
}
