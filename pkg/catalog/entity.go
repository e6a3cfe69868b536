package catalog

import (
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/agentstation/cwemap/pkg/constants"
	"github.com/agentstation/cwemap/pkg/errors"
)

// Relations maps a relation group to an ordered set of ids.
type Relations map[Group][]string

// NewRelations returns relations with an empty list for every relation group,
// so persisted records always carry all three keys.
func NewRelations() Relations {
	r := make(Relations, 3)
	for _, g := range RelationGroups() {
		r[g] = []string{}
	}
	return r
}

// Add appends id to the list of group g.
func (r Relations) Add(g Group, id string) {
	r[g] = append(r[g], id)
}

// Get returns the list for g, never nil.
func (r Relations) Get(g Group) []string {
	if ids, ok := r[g]; ok && ids != nil {
		return ids
	}
	return []string{}
}

// Normalize sorts and deduplicates every list. Applying it twice is a no-op.
func (r Relations) Normalize() {
	for g, ids := range r {
		r[g] = SortIDs(g, ids)
	}
}

// Clone returns a deep copy of r.
func (r Relations) Clone() Relations {
	if r == nil {
		return nil
	}
	out := make(Relations, len(r))
	for g, ids := range r {
		out[g] = slices.Clone(ids)
		if out[g] == nil {
			out[g] = []string{}
		}
	}
	return out
}

// Direction selects which side of a membership edge to read.
type Direction string

// Relationship directions.
const (
	HasMember Direction = "has_member"
	MemberOf  Direction = "member_of"
)

// ParseDirection resolves user input to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "has_member", "hasmember", "members", "children":
		return HasMember, nil
	case "member_of", "memberof", "parents":
		return MemberOf, nil
	}
	return "", errors.NewValidationError("direction", s, "want has_member or member_of")
}

// Entity is one persisted catalog entry.
type Entity struct {
	ID        string    `json:"id"`
	Group     Group     `json:"group"`
	Status    Status    `json:"status"`
	HasMember Relations `json:"has_member,omitempty"`
	MemberOf  Relations `json:"member_of,omitempty"`
	Path      string    `json:"path"`
	URL       string    `json:"url"`
	Payload   Record    `json:"payload"`
}

// NewEntity creates an entity with its locator assigned. Numeric groups get
// empty relation maps; references carry none.
func NewEntity(g Group, id string, status Status, payload Record) *Entity {
	e := &Entity{
		ID:      id,
		Group:   g,
		Status:  status,
		Path:    EntityPath(g, id),
		URL:     EntityURL(g, id),
		Payload: payload,
	}
	if g.Numeric() {
		e.HasMember = NewRelations()
		e.MemberOf = NewRelations()
	}
	return e
}

// Relation returns the stored list for a direction and target group.
func (e *Entity) Relation(dir Direction, target Group) []string {
	switch dir {
	case HasMember:
		return e.HasMember.Get(target)
	case MemberOf:
		return e.MemberOf.Get(target)
	}
	return []string{}
}

// Normalize sorts and deduplicates both relation maps.
func (e *Entity) Normalize() {
	e.HasMember.Normalize()
	e.MemberOf.Normalize()
}

// Clone returns a copy whose relation lists can be modified freely.
// Nested payload values are shared and must be treated as read-only.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	out := *e
	out.HasMember = e.HasMember.Clone()
	out.MemberOf = e.MemberOf.Clone()
	out.Payload = maps.Clone(e.Payload)
	return &out
}

// Name returns the payload's Name attribute, if present.
func (e *Entity) Name() string {
	if e.Group == GroupReference {
		if title := e.Payload.String("Title"); title != "" {
			return title
		}
	}
	return e.Payload.String("Name")
}

// EntityPath returns the path of an entity file relative to the data directory.
func EntityPath(g Group, id string) string {
	return path.Join(string(g), id+constants.EntityExt)
}

// EntityURL returns the public web page describing the entity.
func EntityURL(g Group, id string) string {
	if g == GroupReference {
		return fmt.Sprintf(constants.ReferenceURLFormat, id)
	}
	return fmt.Sprintf(constants.DefinitionURLFormat, id)
}
