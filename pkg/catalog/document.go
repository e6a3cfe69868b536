package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/cwemap/pkg/errors"
)

// Record is one raw catalog element converted to generic JSON-like values:
// attributes and child elements are keys, repeated children are lists.
type Record map[string]any

// String returns the value at key rendered as a string. Numbers are
// formatted without exponent and elements carrying attributes yield their
// text content.
func (r Record) String(key string) string {
	return scalarString(r[key])
}

// Map returns the nested record at key, or nil when absent or not an object.
func (r Record) Map(key string) Record {
	return asRecord(r[key])
}

// List returns the list at key. A missing key yields (nil, true); a value
// that is present but not a list yields (nil, false).
func (r Record) List(key string) ([]any, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return nil, true
	}
	switch l := v.(type) {
	case []any:
		return l, true
	case []Record:
		out := make([]any, len(l))
		for i, rec := range l {
			out[i] = rec
		}
		return out, true
	}
	return nil, false
}

func asRecord(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return Record(m)
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	case map[string]any:
		return scalarString(t["#text"])
	case Record:
		return scalarString(t["#text"])
	}
	return ""
}

// Document is the raw catalog as produced by the source adapters.
type Document struct {
	Catalog Catalog `json:"Weakness_Catalog"`
}

// Catalog holds the four record lists plus the catalog header attributes.
// Every repeatable element is already a list.
type Catalog struct {
	Name       string   `json:"Name,omitempty"`
	Version    any      `json:"Version,omitempty"`
	Date       string   `json:"Date,omitempty"`
	Views      []Record `json:"Views"`
	Categories []Record `json:"Categories"`
	Weaknesses []Record `json:"Weaknesses"`
	References []Record `json:"External_References"`
}

// VersionString returns the declared catalog version as text.
func (c *Catalog) VersionString() string {
	return scalarString(c.Version)
}

// Records returns the raw records of a group.
func (d *Document) Records(g Group) []Record {
	switch g {
	case GroupView:
		return d.Catalog.Views
	case GroupCategory:
		return d.Catalog.Categories
	case GroupWeakness:
		return d.Catalog.Weaknesses
	case GroupReference:
		return d.Catalog.References
	}
	return nil
}

// IDKey returns the raw attribute carrying a record's id.
func IDKey(g Group) string {
	if g == GroupReference {
		return "Reference_ID"
	}
	return "ID"
}

// Validate checks that the document is usable before anything on disk is replaced.
func (d *Document) Validate() error {
	if d == nil {
		return errors.NewParseError("json", "", "nil catalog document", nil)
	}
	if len(d.Catalog.Weaknesses) == 0 {
		return errors.NewParseError("json", "", "catalog contains no weaknesses", nil)
	}
	return nil
}
