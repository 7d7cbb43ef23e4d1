package resolve

import (
	"github.com/agentic-research/panlens/api"
	"github.com/agentic-research/panlens/internal/store"
)

// Aggregate computes per-device-group summary counts from a sealed
// snapshot. Pure function of the snapshot; recomputed on every rebuild,
// never incrementally updated.
//
// Direct counts cover only objects declared on the group itself. The
// *Total fields add every descendant group's direct counts, so the
// parent-inclusion question is answered by two explicit fields instead of
// one ambiguous number.
func Aggregate(snap *store.Snapshot) map[string]api.DeviceGroupSummary {
	groups := snap.Kind(api.KindDeviceGroups)
	out := make(map[string]api.DeviceGroupSummary, len(groups))

	for _, g := range groups {
		loc := api.Location{Kind: api.LocationDeviceGroup, Name: g.Name}
		sum := api.DeviceGroupSummary{
			Name:          g.Name,
			Addresses:     snap.CountAt(api.KindAddresses, loc),
			AddressGroups: snap.CountAt(api.KindAddressGroups, loc),
			Services:      snap.CountAt(api.KindServices, loc),
			ServiceGroups: snap.CountAt(api.KindServiceGroups, loc),
		}
		sum.PreSecurityRules, sum.PostSecurityRules = ruleCounts(snap, api.KindSecurityRules, loc)
		sum.PreNATRules, sum.PostNATRules = ruleCounts(snap, api.KindNATRules, loc)
		out[g.Name] = sum
	}

	children := childIndex(snap)
	for _, g := range groups {
		sum := out[g.Name]
		addSubtree(out, children, g.Name, &sum)
		out[g.Name] = sum
	}
	return out
}

// ruleCounts splits a location's rule records by their rulebase partition.
// The partition is a field on the record, not inferred from its path.
func ruleCounts(snap *store.Snapshot, kind string, loc api.Location) (pre, post int) {
	bm := snap.OrdinalsAt(kind, loc)
	if bm == nil {
		return 0, 0
	}
	records := snap.Kind(kind)
	it := bm.Iterator()
	for it.HasNext() {
		rec := records[it.Next()]
		if rec.Fields["rulebase"] == api.RulebasePost {
			post++
		} else {
			pre++
		}
	}
	return pre, post
}

func childIndex(snap *store.Snapshot) map[string][]string {
	children := make(map[string][]string)
	for name, parent := range snap.DeviceGroupParents() {
		children[parent] = append(children[parent], name)
	}
	return children
}

// addSubtree seeds the *Total fields with the group's own counts and then
// folds in every descendant.
func addSubtree(sums map[string]api.DeviceGroupSummary, children map[string][]string, group string, total *api.DeviceGroupSummary) {
	self := sums[group]
	total.AddressesTotal += self.Addresses
	total.ServicesTotal += self.Services
	total.SecurityRulesTotal += self.PreSecurityRules + self.PostSecurityRules
	total.NATRulesTotal += self.PreNATRules + self.PostNATRules
	for _, child := range children[group] {
		addSubtree(sums, children, child, total)
	}
}
