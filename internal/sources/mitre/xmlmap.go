package mitre

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/agentstation/cwemap/pkg/errors"
)

// TextKey holds the text of an element that also has attributes or children.
const TextKey = "#text"

// ForceList names the elements that are always decoded as lists, even when
// a parent holds exactly one of them.
var ForceList = map[string]bool{
	"View":               true,
	"Category":           true,
	"Weakness":           true,
	"External_Reference": true,
	"Has_Member":         true,
}

type frame struct {
	name   string
	fields map[string]any
	text   strings.Builder
}

// DecodeXML streams an XML document into nested maps. Attributes and child
// elements become keys (namespace prefixes dropped), repeated children and
// ForceList elements become lists, and text is stored as the element value
// or under TextKey when the element has other content. Empty elements decode
// to nil.
func DecodeXML(r io.Reader, forceList map[string]bool) (map[string]any, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.Entity = xml.HTMLEntity

	root := &frame{fields: make(map[string]any)}
	stack := []*frame{root}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.WrapParse("xml", "", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			f := &frame{name: t.Name.Local, fields: make(map[string]any, len(t.Attr))}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				f.fields[a.Name.Local] = a.Value
			}
			stack = append(stack, f)

		case xml.CharData:
			stack[len(stack)-1].text.Write(t)

		case xml.EndElement:
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			addChild(stack[len(stack)-1].fields, f.name, f.value(), forceList[f.name])
		}
	}

	if len(stack) != 1 || len(root.fields) == 0 {
		return nil, errors.NewParseError("xml", "", "document has no root element", nil)
	}
	return root.fields, nil
}

func (f *frame) value() any {
	text := strings.TrimSpace(f.text.String())
	if len(f.fields) == 0 {
		if text == "" {
			return nil
		}
		return text
	}
	if text != "" {
		f.fields[TextKey] = text
	}
	return f.fields
}

func addChild(fields map[string]any, name string, v any, force bool) {
	existing, ok := fields[name]
	switch {
	case !ok && force:
		fields[name] = []any{v}
	case !ok:
		fields[name] = v
	default:
		if list, isList := existing.([]any); isList {
			fields[name] = append(list, v)
		} else {
			fields[name] = []any{existing, v}
		}
	}
}
