// Package api defines the public contract of the panlens core: the record
// shapes produced by ingestion and the result shapes returned by queries.
package api

// LocationKind identifies which logical root of the configuration a record
// was extracted from.
type LocationKind string

const (
	LocationShared      LocationKind = "shared"
	LocationDeviceGroup LocationKind = "device-group"
	LocationTemplate    LocationKind = "template"
	LocationVsys        LocationKind = "vsys"
)

// Location pins a record to exactly one place in the configuration
// hierarchy. Name is empty for the shared scope. ParentChain is only set for
// device-group records and lists ancestor group names from the root of the
// hierarchy down to the immediate parent (empty for top-level groups).
type Location struct {
	Kind        LocationKind `json:"kind"`
	Name        string       `json:"name,omitempty"`
	ParentChain []string     `json:"parent_chain,omitempty"`
}

// Object kinds served by the store. These double as URL path segments.
const (
	KindAddresses      = "addresses"
	KindAddressGroups  = "address-groups"
	KindServices       = "services"
	KindServiceGroups  = "service-groups"
	KindSecurityRules  = "security-rules"
	KindNATRules       = "nat-rules"
	KindDeviceGroups   = "device-groups"
	KindTemplates      = "templates"
	KindTemplateStacks = "template-stacks"
	KindZones          = "zones"
	KindTags           = "tags"
)

// Kinds lists every object kind in a fixed order.
func Kinds() []string {
	return []string{
		KindAddresses, KindAddressGroups, KindServices, KindServiceGroups,
		KindSecurityRules, KindNATRules, KindDeviceGroups, KindTemplates,
		KindTemplateStacks, KindZones, KindTags,
	}
}

// Record is one flat object extracted from the source document. Fields holds
// the object's own attributes as strings, string lists, or nested maps.
// Records are immutable once built.
type Record struct {
	// Name is unique within its kind+location, not globally.
	Name string `json:"name"`
	// Kind is one of the Kind* constants.
	Kind string `json:"kind"`
	// SourcePath is the stable, reconstructable position of this object in
	// the source document. Reparsing an unchanged document yields the same
	// path, and the path maps back to exactly one record.
	SourcePath string `json:"source_path"`
	// Location is the hierarchy scope the object was declared in.
	Location Location `json:"location"`
	// Fields is the flattened object body.
	Fields map[string]any `json:"fields,omitempty"`
}

// Rulebase values carried on rule records.
const (
	RulebasePre  = "pre"
	RulebasePost = "post"
)

// DeviceGroupSummary holds per-group object counts. The plain counts cover
// direct membership only: objects declared on a child group are not counted
// on the parent. The *Total fields additionally include all descendants.
type DeviceGroupSummary struct {
	Name               string `json:"name"`
	Addresses          int    `json:"address_count"`
	AddressGroups      int    `json:"address_group_count"`
	Services           int    `json:"service_count"`
	ServiceGroups      int    `json:"service_group_count"`
	PreSecurityRules   int    `json:"pre_security_rule_count"`
	PostSecurityRules  int    `json:"post_security_rule_count"`
	PreNATRules        int    `json:"pre_nat_rule_count"`
	PostNATRules       int    `json:"post_nat_rule_count"`
	AddressesTotal     int    `json:"address_count_total"`
	ServicesTotal      int    `json:"service_count_total"`
	SecurityRulesTotal int    `json:"security_rule_count_total"`
	NATRulesTotal      int    `json:"nat_rule_count_total"`
}

// PageResult is one page of a filtered record sequence plus navigation
// metadata.
type PageResult struct {
	Items       []Record `json:"items"`
	TotalItems  int      `json:"total_items"`
	Page        int      `json:"page"`
	PageSize    int      `json:"page_size"`
	TotalPages  int      `json:"total_pages"`
	HasNext     bool     `json:"has_next"`
	HasPrevious bool     `json:"has_previous"`
}

// Status reports where a configuration is in its parse lifecycle.
type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// ConfigInfo describes one available source file.
type ConfigInfo struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	ModTime int64  `json:"mtime"`
}
