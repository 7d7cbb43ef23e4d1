package panosdoc

import (
	"strings"

	"github.com/beevik/etree"
)

// Fields flattens an entry element's body into a generic field map.
// Scalars become strings, <member> lists become []string, entry containers
// become []any of nested maps, and anything else nests as map[string]any.
// Attributes other than name (uuid, loc) are carried as fields too.
func Fields(entry *etree.Element) map[string]any {
	fields := make(map[string]any)
	for _, attr := range entry.Attr {
		if attr.Key == "name" || attr.Space != "" {
			continue
		}
		fields[attr.Key] = attr.Value
	}
	for _, child := range entry.ChildElements() {
		v := Value(child)
		if prev, ok := fields[child.Tag]; ok {
			// Repeated sibling tags collapse into a list.
			if list, ok := prev.([]any); ok {
				fields[child.Tag] = append(list, v)
			} else {
				fields[child.Tag] = []any{prev, v}
			}
			continue
		}
		fields[child.Tag] = v
	}
	return fields
}

// Value converts one element into its generic representation.
func Value(el *etree.Element) any {
	children := el.ChildElements()
	if len(children) == 0 {
		return strings.TrimSpace(el.Text())
	}
	if allTagged(children, "member") {
		members := make([]string, 0, len(children))
		for _, m := range children {
			members = append(members, strings.TrimSpace(m.Text()))
		}
		return members
	}
	if allTagged(children, "entry") {
		entries := make([]any, 0, len(children))
		for _, e := range children {
			m := Fields(e)
			if name := EntryName(e); name != "" {
				m["name"] = name
			}
			entries = append(entries, m)
		}
		return entries
	}
	nested := make(map[string]any, len(children))
	for _, child := range children {
		v := Value(child)
		if prev, ok := nested[child.Tag]; ok {
			if list, ok := prev.([]any); ok {
				nested[child.Tag] = append(list, v)
			} else {
				nested[child.Tag] = []any{prev, v}
			}
			continue
		}
		nested[child.Tag] = v
	}
	return nested
}

func allTagged(els []*etree.Element, tag string) bool {
	for _, el := range els {
		if el.Tag != tag {
			return false
		}
	}
	return true
}
