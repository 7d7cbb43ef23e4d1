// Package resolve walks a parsed configuration document and emits the flat,
// location-tagged records that make up a store snapshot.
package resolve

import (
	"slices"

	"github.com/beevik/etree"

	"github.com/agentic-research/panlens/api"
	"github.com/agentic-research/panlens/internal/panosdoc"
	"github.com/agentic-research/panlens/internal/store"
)

// objectContainers maps a scope's child container tag to the record kind it
// holds.
var objectContainers = []struct {
	tag  string
	kind string
}{
	{"address", api.KindAddresses},
	{"address-group", api.KindAddressGroups},
	{"service", api.KindServices},
	{"service-group", api.KindServiceGroups},
	{"tag", api.KindTags},
	{"zone", api.KindZones},
}

// scopeContainers are the child tags of a scope element that are traversed
// as containers rather than flattened into the scope record's own fields.
var scopeContainers = map[string]bool{
	"address": true, "address-group": true, "service": true,
	"service-group": true, "tag": true, "zone": true,
	"pre-rulebase": true, "post-rulebase": true, "rulebase": true,
	"device-group": true, "config": true,
}

// Resolve extracts every record from the document and seals them into a
// snapshot, summaries included. Absent roots yield empty collections; only
// structurally invalid documents fail (at Parse time, before this runs).
func Resolve(doc *panosdoc.Document) *store.Snapshot {
	r := &resolver{b: store.NewBuilder()}

	if shared := doc.Shared(); shared != nil {
		r.emitScope(shared, api.Location{Kind: api.LocationShared})
	}
	for _, g := range doc.DeviceGroupRoots() {
		r.deviceGroup(g, nil)
	}
	for _, t := range doc.Templates() {
		r.template(t)
	}
	for _, ts := range doc.TemplateStacks() {
		r.templateStack(ts)
	}
	for _, v := range doc.VsysRoots() {
		r.vsys(v)
	}

	snap := r.b.Seal()
	snap.AttachSummaries(Aggregate(snap))
	return snap
}

type resolver struct {
	b *store.Builder
}

// emitScope turns every object declared directly on a scope element into a
// record at the given location. Objects on nested scopes are attributed to
// those scopes by their own emitScope calls, never here.
func (r *resolver) emitScope(scope *etree.Element, loc api.Location) {
	for _, c := range objectContainers {
		container := scope.SelectElement(c.tag)
		if container == nil {
			continue
		}
		for _, entry := range container.SelectElements("entry") {
			r.emitObject(entry, c.kind, loc, nil)
		}
	}
	r.emitRules(scope.SelectElement("pre-rulebase"), api.RulebasePre, loc)
	r.emitRules(scope.SelectElement("post-rulebase"), api.RulebasePost, loc)
	// Firewall-style scopes carry a single unpartitioned rulebase; it maps
	// to the pre partition.
	r.emitRules(scope.SelectElement("rulebase"), api.RulebasePre, loc)
}

func (r *resolver) emitRules(rulebase *etree.Element, partition string, loc api.Location) {
	if rulebase == nil {
		return
	}
	for _, rb := range []struct {
		tag  string
		kind string
	}{{"security", api.KindSecurityRules}, {"nat", api.KindNATRules}} {
		section := rulebase.SelectElement(rb.tag)
		if section == nil {
			continue
		}
		rules := section.SelectElement("rules")
		if rules == nil {
			continue
		}
		for _, entry := range rules.SelectElements("entry") {
			r.emitObject(entry, rb.kind, loc, map[string]any{"rulebase": partition})
		}
	}
}

// emitObject builds one record from an entry element. extra fields win over
// flattened document fields.
func (r *resolver) emitObject(entry *etree.Element, kind string, loc api.Location, extra map[string]any) {
	name := panosdoc.EntryName(entry)
	if name == "" {
		return
	}
	fields := panosdoc.Fields(entry)
	for k, v := range extra {
		fields[k] = v
	}
	r.b.Add(api.Record{
		Name:       name,
		Kind:       kind,
		SourcePath: panosdoc.Path(entry),
		Location:   loc,
		Fields:     fields,
	})
}

// deviceGroup emits the group record itself plus its objects, then recurses
// depth-first into nested groups with the chain extended by this group.
func (r *resolver) deviceGroup(entry *etree.Element, chain []string) {
	name := panosdoc.EntryName(entry)
	if name == "" {
		return
	}
	loc := api.Location{
		Kind:        api.LocationDeviceGroup,
		Name:        name,
		ParentChain: slices.Clone(chain),
	}
	r.b.Add(api.Record{
		Name:       name,
		Kind:       api.KindDeviceGroups,
		SourcePath: panosdoc.Path(entry),
		Location:   loc,
		Fields:     scopeFields(entry),
	})
	if len(chain) > 0 {
		r.b.SetParent(name, chain[len(chain)-1])
	}

	r.emitScope(entry, loc)

	childChain := append(slices.Clone(chain), name)
	for _, child := range panosdoc.ChildGroups(entry) {
		r.deviceGroup(child, childChain)
	}
}

func (r *resolver) template(entry *etree.Element) {
	name := panosdoc.EntryName(entry)
	if name == "" {
		return
	}
	loc := api.Location{Kind: api.LocationTemplate, Name: name}
	r.b.Add(api.Record{
		Name:       name,
		Kind:       api.KindTemplates,
		SourcePath: panosdoc.Path(entry),
		Location:   loc,
		Fields:     scopeFields(entry),
	})

	// Objects in the template's embedded shared config belong to the
	// template; objects inside its vsys entries belong to that vsys.
	if cfg := entry.SelectElement("config"); cfg != nil {
		if shared := cfg.SelectElement("shared"); shared != nil {
			r.emitScope(shared, loc)
		}
	}
	for _, vsys := range panosdoc.TemplateVsysRoots(entry) {
		r.vsys(vsys)
	}
}

func (r *resolver) templateStack(entry *etree.Element) {
	name := panosdoc.EntryName(entry)
	if name == "" {
		return
	}
	r.b.Add(api.Record{
		Name:       name,
		Kind:       api.KindTemplateStacks,
		SourcePath: panosdoc.Path(entry),
		Location:   api.Location{Kind: api.LocationTemplate, Name: name},
		Fields:     scopeFields(entry),
	})
}

func (r *resolver) vsys(entry *etree.Element) {
	name := panosdoc.EntryName(entry)
	if name == "" {
		return
	}
	r.emitScope(entry, api.Location{Kind: api.LocationVsys, Name: name})
}

// scopeFields flattens a scope entry's own attributes, dropping the child
// containers that are traversed separately.
func scopeFields(entry *etree.Element) map[string]any {
	fields := panosdoc.Fields(entry)
	for tag := range scopeContainers {
		delete(fields, tag)
	}
	return fields
}
