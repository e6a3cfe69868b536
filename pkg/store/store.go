// Package store serves lookups over a persisted catalog. Only the index
// document is held in memory; entity records are read from disk on demand
// and kept in a bounded LRU cache.
package store

import (
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"

	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
	"github.com/agentstation/utc"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
)

// Store is a loaded catalog. It is safe for concurrent readers.
type Store struct {
	fs    afero.Fs
	root  string
	index *catalog.Index
	cache *lru.Cache[string, *catalog.Entity]
}

type options struct {
	cacheSize int
}

// Option configures a Store.
type Option func(*options)

// WithCacheSize bounds the number of decoded entities kept in memory.
// Zero or a negative size disables the cache.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// Load reads the index document below root.
func Load(fs afero.Fs, root string, opts ...Option) (*Store, error) {
	o := &options{cacheSize: constants.DefaultCacheSize}
	for _, opt := range opts {
		opt(o)
	}

	idx, err := ReadIndex(fs, root)
	if err != nil {
		return nil, err
	}

	s := &Store{fs: fs, root: root, index: idx}
	if o.cacheSize > 0 {
		cache, err := lru.New[string, *catalog.Entity](o.cacheSize)
		if err != nil {
			return nil, errors.NewConfigError("store", "invalid cache size", err)
		}
		s.cache = cache
	}
	return s, nil
}

// ReadIndex decodes the index document below root. A missing index is
// reported as ErrNotInstalled.
func ReadIndex(fs afero.Fs, root string) (*catalog.Index, error) {
	path := filepath.Join(root, constants.IndexFile)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "index", ID: path, Err: errors.ErrNotInstalled}
		}
		return nil, errors.WrapIO("read", path, err)
	}

	var idx catalog.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	if idx.Groups == nil {
		idx.Groups = make(map[catalog.Group]map[string]string)
	}
	return &idx, nil
}

// Root returns the data directory.
func (s *Store) Root() string {
	return s.root
}

// Index returns the loaded index document. Callers must not modify it.
func (s *Store) Index() *catalog.Index {
	return s.index
}

// Version returns the catalog version the store was built from.
func (s *Store) Version() string {
	return s.index.Version
}

// BuiltAt returns when the store was built.
func (s *Store) BuiltAt() utc.Time {
	return s.index.BuiltAt
}

// IDs returns every id of a group in canonical order.
func (s *Store) IDs(g catalog.Group) []string {
	return s.index.IDs(g)
}

// Groups returns the groups holding at least one entity, in build order.
func (s *Store) Groups() []catalog.Group {
	var groups []catalog.Group
	for _, g := range catalog.Groups() {
		if s.index.Len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

// Len returns the number of entities in a group.
func (s *Store) Len(g catalog.Group) int {
	return s.index.Len(g)
}

// Get returns one entity. The id is canonicalized for the group first.
func (s *Store) Get(g catalog.Group, id string) (*catalog.Entity, error) {
	if !g.IsValid() {
		return nil, errors.NewNotFoundError("group", g.String())
	}
	canonical := catalog.CanonicalID(g, id)
	rel, ok := s.index.Path(g, canonical)
	if !ok {
		return nil, errors.NewNotFoundError(g.String(), id)
	}

	key := g.String() + "/" + canonical
	if s.cache != nil {
		if e, ok := s.cache.Get(key); ok {
			// A cached record is only served while its file is still in place.
			path := filepath.Join(s.root, filepath.FromSlash(rel))
			exists, err := afero.Exists(s.fs, path)
			if err != nil {
				return nil, errors.WrapIO("stat", path, err)
			}
			if !exists {
				s.cache.Remove(key)
				return nil, errors.NewNotFoundError(g.String(), canonical)
			}
			return e.Clone(), nil
		}
	}

	e, err := s.read(g, canonical, rel)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(key, e)
	}
	return e.Clone(), nil
}

func (s *Store) read(g catalog.Group, id, rel string) (*catalog.Entity, error) {
	path := filepath.Join(s.root, filepath.FromSlash(rel))
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: g.String(), ID: id, Err: err}
		}
		return nil, errors.WrapIO("read", path, err)
	}

	var e catalog.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, errors.WrapParse("json", path, err)
	}
	if e.ID != id || e.Group != g {
		return nil, errors.NewParseError("json", path,
			fmt.Sprintf("record holds %s %s, expected %s %s", e.Group, e.ID, g, id), nil)
	}
	return &e, nil
}

// Lookup is Get with a missing entity reported as (nil, nil).
func (s *Store) Lookup(g catalog.Group, id string) (*catalog.Entity, error) {
	e, err := s.Get(g, id)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	return e, err
}

// All iterates over entities of a group. Without ids it visits every id of
// the group; otherwise the given ids, canonicalized, deduplicated and
// ordered. Each failure is yielded as an error element and iteration goes on.
// The sequence reads lazily and can be ranged over more than once.
func (s *Store) All(g catalog.Group, ids ...string) iter.Seq2[*catalog.Entity, error] {
	return func(yield func(*catalog.Entity, error) bool) {
		if !g.IsValid() {
			yield(nil, errors.NewNotFoundError("group", g.String()))
			return
		}

		var unusable []string
		selected := s.index.IDs(g)
		if len(ids) > 0 {
			selected = make([]string, 0, len(ids))
			for _, id := range ids {
				if c := catalog.CanonicalID(g, id); c != "" {
					selected = append(selected, c)
				} else {
					unusable = append(unusable, id)
				}
			}
			selected = catalog.SortIDs(g, selected)
		}

		for _, id := range selected {
			if !yield(s.Get(g, id)) {
				return
			}
		}
		for _, id := range unusable {
			if !yield(nil, errors.NewNotFoundError(g.String(), id)) {
				return
			}
		}
	}
}

// Resolve finds an id without knowing its group. An exact reference id wins;
// anything else is looked up in the shared view, category and weakness
// namespace.
func (s *Store) Resolve(id string) (*catalog.Entity, error) {
	if ref := catalog.CanonicalID(catalog.GroupReference, id); ref != "" {
		if _, ok := s.index.Path(catalog.GroupReference, ref); ok {
			return s.Get(catalog.GroupReference, ref)
		}
	}
	if numeric := catalog.CanonicalID(catalog.GroupWeakness, id); numeric != "" {
		if g, ok := s.index.GroupOf(numeric); ok {
			return s.Get(g, numeric)
		}
	}
	return nil, errors.NewNotFoundError("entity", id)
}

// Relationship returns the stored relation list of an entity for one
// direction and target group.
func (s *Store) Relationship(id string, dir catalog.Direction, target catalog.Group) ([]string, error) {
	if dir != catalog.HasMember && dir != catalog.MemberOf {
		return nil, errors.NewValidationError("direction", dir, "want has_member or member_of")
	}
	if !slices.Contains(catalog.RelationGroups(), target) {
		return nil, errors.NewValidationError("group", target, "relations only cover views, categories and weaknesses")
	}

	e, err := s.Resolve(id)
	if err != nil {
		return nil, err
	}
	return e.Relation(dir, target), nil
}

// Verify checks that a complete store exists below root: the index, the
// cached raw document and every entity file the index references.
func Verify(fs afero.Fs, root string) error {
	idx, err := ReadIndex(fs, root)
	if err != nil {
		return err
	}

	raw := filepath.Join(root, constants.RawCatalogFile)
	if ok, err := afero.Exists(fs, raw); err != nil || !ok {
		return &errors.NotFoundError{Resource: "file", ID: raw, Err: errors.ErrNotInstalled}
	}

	for _, rel := range idx.Paths() {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if ok, err := afero.Exists(fs, path); err != nil || !ok {
			return &errors.NotFoundError{Resource: "file", ID: path, Err: errors.ErrNotInstalled}
		}
	}
	return nil
}

// IsInstalled reports whether Verify succeeds.
func IsInstalled(fs afero.Fs, root string) bool {
	return Verify(fs, root) == nil
}
