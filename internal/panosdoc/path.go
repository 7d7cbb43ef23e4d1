package panosdoc

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// Path builds the stable identifier for an element: an ancestor-qualified
// path from <config> down to the element, with entry segments qualified by
// their name attribute. Two parses of an unchanged document produce byte-
// identical paths for the same object.
func Path(el *etree.Element) string {
	var segs []string
	// The root element's parent is the document's virtual element (empty
	// tag); the walk stops there.
	for cur := el; cur != nil && cur.Tag != ""; cur = cur.Parent() {
		seg := cur.Tag
		if name := cur.SelectAttrValue("name", ""); name != "" {
			seg = fmt.Sprintf("%s[@name='%s']", cur.Tag, name)
		}
		segs = append(segs, seg)
	}
	// Reverse into root-first order.
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return "/" + strings.Join(segs, "/")
}

// FindByPath maps a path produced by Path back to its element. The second
// return is false when any segment does not resolve.
func (d *Document) FindByPath(path string) (*etree.Element, bool) {
	segs, err := splitPath(path)
	if err != nil || len(segs) == 0 {
		return nil, false
	}
	if segs[0].tag != d.root.Tag || segs[0].name != "" {
		return nil, false
	}
	cur := d.root
	for _, seg := range segs[1:] {
		cur = matchChild(cur, seg)
		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}

type pathSegment struct {
	tag  string
	name string
}

// splitPath tokenizes a /a/b[@name='x']/c path. Splitting on '/' is safe
// because object names cannot contain slashes in this dialect.
func splitPath(path string) ([]pathSegment, error) {
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("path must be absolute: %q", path)
	}
	var segs []pathSegment
	for _, raw := range strings.Split(path[1:], "/") {
		if raw == "" {
			return nil, fmt.Errorf("empty segment in path %q", path)
		}
		seg := pathSegment{tag: raw}
		if i := strings.Index(raw, "[@name='"); i >= 0 {
			rest := raw[i+len("[@name='"):]
			j := strings.LastIndex(rest, "']")
			if j < 0 {
				return nil, fmt.Errorf("unterminated name predicate in %q", raw)
			}
			seg.tag = raw[:i]
			seg.name = rest[:j]
		}
		segs = append(segs, seg)
	}
	return segs, nil
}

func matchChild(parent *etree.Element, seg pathSegment) *etree.Element {
	for _, child := range parent.SelectElements(seg.tag) {
		if seg.name == "" || child.SelectAttrValue("name", "") == seg.name {
			return child
		}
	}
	return nil
}
