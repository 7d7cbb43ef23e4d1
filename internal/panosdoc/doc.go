// Package panosdoc holds the typed in-memory model of one parsed
// configuration export. The document is immutable after Parse; the resolver
// walks it once, extracts flat records, and discards it.
package panosdoc

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
)

// ParseError reports a structurally invalid source document. Line is the
// offending position when the underlying decoder provides one (0 otherwise).
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed configuration document at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed configuration document: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is one parsed configuration export.
type Document struct {
	tree *etree.Document
	root *etree.Element // <config>
}

// Parse reads a configuration export. Malformed markup fails the whole parse
// with a *ParseError; a well-formed document with missing roots does not.
func Parse(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(data); err != nil {
		return nil, &ParseError{Line: syntaxLine(data, err), Err: err}
	}
	root := tree.Root()
	if root == nil {
		return nil, &ParseError{Err: errors.New("empty document")}
	}
	if root.Tag != "config" {
		return nil, &ParseError{Err: fmt.Errorf("unexpected root element <%s>, want <config>", root.Tag)}
	}
	return &Document{tree: tree, root: root}, nil
}

// syntaxLine recovers the line of the malformed construct. etree's reader
// does not reliably expose a position, so rescan the bytes with the strict
// stdlib tokenizer, which reports one.
func syntaxLine(data []byte, err error) int {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return syn.Line
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		if _, terr := dec.Token(); terr != nil {
			if errors.As(terr, &syn) {
				return syn.Line
			}
			return 0
		}
	}
}

// Root returns the <config> element.
func (d *Document) Root() *etree.Element { return d.root }

// Shared returns the shared scope, or nil when the export has none.
func (d *Document) Shared() *etree.Element {
	return d.root.SelectElement("shared")
}

// deviceEntries returns the device container entries
// (/config/devices/entry, usually a single localhost.localdomain entry).
func (d *Document) deviceEntries() []*etree.Element {
	devices := d.root.SelectElement("devices")
	if devices == nil {
		return nil
	}
	return devices.SelectElements("entry")
}

// DeviceGroupRoots returns the top-level device-group entries across all
// device containers, in document order.
func (d *Document) DeviceGroupRoots() []*etree.Element {
	var roots []*etree.Element
	for _, dev := range d.deviceEntries() {
		if dg := dev.SelectElement("device-group"); dg != nil {
			roots = append(roots, dg.SelectElements("entry")...)
		}
	}
	return roots
}

// ChildGroups returns the device-group entries nested directly under a
// device-group entry.
func ChildGroups(group *etree.Element) []*etree.Element {
	if nested := group.SelectElement("device-group"); nested != nil {
		return nested.SelectElements("entry")
	}
	return nil
}

// Templates returns the template entries, in document order.
func (d *Document) Templates() []*etree.Element {
	var out []*etree.Element
	for _, dev := range d.deviceEntries() {
		if t := dev.SelectElement("template"); t != nil {
			out = append(out, t.SelectElements("entry")...)
		}
	}
	return out
}

// TemplateStacks returns the template-stack entries, in document order.
func (d *Document) TemplateStacks() []*etree.Element {
	var out []*etree.Element
	for _, dev := range d.deviceEntries() {
		if ts := dev.SelectElement("template-stack"); ts != nil {
			out = append(out, ts.SelectElements("entry")...)
		}
	}
	return out
}

// VsysRoots returns firewall-style vsys entries declared directly under a
// device container (/config/devices/entry/vsys/entry).
func (d *Document) VsysRoots() []*etree.Element {
	var out []*etree.Element
	for _, dev := range d.deviceEntries() {
		if v := dev.SelectElement("vsys"); v != nil {
			out = append(out, v.SelectElements("entry")...)
		}
	}
	return out
}

// TemplateVsysRoots returns the vsys entries defined inside a template's
// embedded config (template/entry/config/devices/entry/vsys/entry).
func TemplateVsysRoots(tmpl *etree.Element) []*etree.Element {
	cfg := tmpl.SelectElement("config")
	if cfg == nil {
		return nil
	}
	devices := cfg.SelectElement("devices")
	if devices == nil {
		return nil
	}
	var out []*etree.Element
	for _, dev := range devices.SelectElements("entry") {
		if v := dev.SelectElement("vsys"); v != nil {
			out = append(out, v.SelectElements("entry")...)
		}
	}
	return out
}

// EntryName returns the name attribute of an entry element.
func EntryName(el *etree.Element) string {
	return el.SelectAttrValue("name", "")
}
