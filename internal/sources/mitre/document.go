package mitre

import (
	"fmt"

	"github.com/agentstation/cwemap/pkg/catalog"
	"github.com/agentstation/cwemap/pkg/errors"
)

// containers maps each group to the wrapper element and its repeated child.
var containers = map[catalog.Group][2]string{
	catalog.GroupView:      {"Views", "View"},
	catalog.GroupCategory:  {"Categories", "Category"},
	catalog.GroupWeakness:  {"Weaknesses", "Weakness"},
	catalog.GroupReference: {"External_References", "External_Reference"},
}

// DocumentFromMap builds a catalog document from the output of DecodeXML.
func DocumentFromMap(m map[string]any) (*catalog.Document, error) {
	root := catalog.Record(m).Map("Weakness_Catalog")
	if root == nil {
		return nil, errors.NewParseError("xml", "", "missing Weakness_Catalog root element", nil)
	}

	doc := &catalog.Document{Catalog: catalog.Catalog{
		Name:    root.String("Name"),
		Version: root.String("Version"),
		Date:    root.String("Date"),
	}}

	for _, g := range catalog.Groups() {
		names := containers[g]
		records, err := recordList(root.Map(names[0]), names[1])
		if err != nil {
			return nil, err
		}
		switch g {
		case catalog.GroupView:
			doc.Catalog.Views = records
		case catalog.GroupCategory:
			doc.Catalog.Categories = records
		case catalog.GroupWeakness:
			doc.Catalog.Weaknesses = records
		case catalog.GroupReference:
			doc.Catalog.References = records
		}
	}
	return doc, nil
}

func recordList(container catalog.Record, element string) ([]catalog.Record, error) {
	if container == nil {
		return []catalog.Record{}, nil
	}

	var items []any
	switch v := container[element].(type) {
	case nil:
		return []catalog.Record{}, nil
	case []any:
		items = v
	case map[string]any:
		items = []any{v}
	default:
		return nil, errors.NewParseError("xml", "", fmt.Sprintf("%s is not an element", element), nil)
	}

	records := make([]catalog.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, errors.NewParseError("xml", "", fmt.Sprintf("%s %d is not an element", element, i), nil)
		}
		records = append(records, catalog.Record(m))
	}
	return records, nil
}
