// Package store holds the per-configuration record store: an immutable
// snapshot of every record extracted from one source document, plus the
// indexes queries run against. Snapshots are replaced wholesale on reparse,
// never mutated.
package store

import (
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/agentic-research/panlens/api"
)

type recordRef struct {
	kind string
	ord  int
}

// Snapshot is one fully-built record store. All lookups are read-only and
// safe for concurrent use.
type Snapshot struct {
	records   map[string][]api.Record
	byName    map[string]recordRef
	byPath    map[string]recordRef
	byLoc     map[string]*roaring.Bitmap
	dgParent  map[string]string
	summaries map[string]api.DeviceGroupSummary
}

// Builder accumulates records in source-document order and seals them into
// a Snapshot. Not safe for concurrent use; the resolver owns it exclusively.
type Builder struct {
	snap *Snapshot
}

func NewBuilder() *Builder {
	return &Builder{snap: &Snapshot{
		records:  make(map[string][]api.Record),
		byName:   make(map[string]recordRef),
		byPath:   make(map[string]recordRef),
		byLoc:    make(map[string]*roaring.Bitmap),
		dgParent: make(map[string]string),
	}}
}

// Add appends a record to its kind sequence and indexes it.
func (b *Builder) Add(rec api.Record) {
	s := b.snap
	ord := len(s.records[rec.Kind])
	s.records[rec.Kind] = append(s.records[rec.Kind], rec)

	ref := recordRef{kind: rec.Kind, ord: ord}
	nameKey := nameKey(rec.Kind, rec.Name)
	if _, exists := s.byName[nameKey]; !exists {
		s.byName[nameKey] = ref
	}
	s.byPath[rec.SourcePath] = ref

	lk := locKey(rec.Kind, rec.Location)
	bm, ok := s.byLoc[lk]
	if !ok {
		bm = roaring.New()
		s.byLoc[lk] = bm
	}
	bm.Add(uint32(ord))
}

// SetParent records the device-group parent edge. The hierarchy is kept as
// a name index, never as object references.
func (b *Builder) SetParent(group, parent string) {
	b.snap.dgParent[group] = parent
}

// Seal returns the finished snapshot. The builder must not be used after.
func (b *Builder) Seal() *Snapshot {
	s := b.snap
	b.snap = nil
	return s
}

// AttachSummaries sets the aggregated device-group summaries. Called once
// during the build pipeline, before the snapshot is published to readers.
func (s *Snapshot) AttachSummaries(m map[string]api.DeviceGroupSummary) {
	s.summaries = m
}

// Kind returns the ordered record sequence for an object kind. The slice is
// shared; callers must not modify it.
func (s *Snapshot) Kind(kind string) []api.Record {
	return s.records[kind]
}

// ByName returns the first record of a kind with the given name
// (case-insensitive).
func (s *Snapshot) ByName(kind, name string) (api.Record, bool) {
	ref, ok := s.byName[nameKey(kind, name)]
	if !ok {
		return api.Record{}, false
	}
	return s.records[ref.kind][ref.ord], true
}

// ByPath returns the record with the given source path.
func (s *Snapshot) ByPath(path string) (api.Record, bool) {
	ref, ok := s.byPath[path]
	if !ok {
		return api.Record{}, false
	}
	return s.records[ref.kind][ref.ord], true
}

// CountAt returns how many records of a kind sit at the given location.
func (s *Snapshot) CountAt(kind string, loc api.Location) int {
	bm, ok := s.byLoc[locKey(kind, loc)]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// OrdinalsAt returns the ordinal bitmap for records of a kind at a location,
// or nil when there are none. Callers must treat it as read-only.
func (s *Snapshot) OrdinalsAt(kind string, loc api.Location) *roaring.Bitmap {
	return s.byLoc[locKey(kind, loc)]
}

// DeviceGroupParent returns the parent group name, if any.
func (s *Snapshot) DeviceGroupParent(group string) (string, bool) {
	p, ok := s.dgParent[group]
	return p, ok
}

// DeviceGroupParents returns the full parent index. Read-only.
func (s *Snapshot) DeviceGroupParents() map[string]string {
	return s.dgParent
}

// Summary returns the aggregated counts for one device-group.
func (s *Snapshot) Summary(group string) (api.DeviceGroupSummary, bool) {
	sum, ok := s.summaries[group]
	return sum, ok
}

// Summaries returns all device-group summaries. Read-only.
func (s *Snapshot) Summaries() map[string]api.DeviceGroupSummary {
	return s.summaries
}

func nameKey(kind, name string) string {
	return kind + "\x00" + strings.ToLower(name)
}

func locKey(kind string, loc api.Location) string {
	return kind + "\x00" + string(loc.Kind) + ":" + loc.Name
}
