package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/panlens/api"
)

var testAddresses = []api.Record{
	{
		Name: "web-1", Kind: api.KindAddresses,
		SourcePath: "/config/devices/entry[@name='localhost.localdomain']/device-group/entry[@name='DG-A']/address/entry[@name='web-1']",
		Location:   api.Location{Kind: api.LocationDeviceGroup, Name: "DG-A"},
		Fields:     map[string]any{"ip-netmask": "10.1.0.1/32", "tag": []string{"prod", "web"}},
	},
	{
		Name: "web-2", Kind: api.KindAddresses,
		SourcePath: "/config/devices/entry[@name='localhost.localdomain']/device-group/entry[@name='DG-A']/address/entry[@name='web-2']",
		Location:   api.Location{Kind: api.LocationDeviceGroup, Name: "DG-A"},
		Fields:     map[string]any{"ip-netmask": "10.1.0.2/32"},
	},
	{
		Name: "db-1", Kind: api.KindAddresses,
		SourcePath: "/config/shared/address/entry[@name='db-1']",
		Location:   api.Location{Kind: api.LocationShared},
		Fields:     map[string]any{"ip-netmask": "10.2.0.1/32", "description": "primary database"},
	},
	{
		Name: "portal", Kind: api.KindAddresses,
		SourcePath: "/config/shared/address/entry[@name='portal']",
		Location:   api.Location{Kind: api.LocationShared},
		Fields:     map[string]any{"fqdn": "portal.corp.example"},
	},
}

// matching parses the params against a kind and returns the names of the
// records that survive, in input order.
func matching(t *testing.T, params map[string][]string, kind string, recs []api.Record) []string {
	t.Helper()
	ps := Parse(params, DefaultRegistry(), kind)
	var out []string
	for _, rec := range recs {
		if ps.Evaluate(rec) {
			out = append(out, rec.Name)
		}
	}
	return out
}

func TestParse_KeySyntaxes(t *testing.T) {
	reg := DefaultRegistry()

	bracketed := Parse(map[string][]string{"filter[name][starts_with]": {"web"}}, reg, api.KindAddresses)
	dotted := Parse(map[string][]string{"filter.name.starts_with": {"web"}}, reg, api.KindAddresses)
	require.Len(t, bracketed, 1)
	require.Len(t, dotted, 1)
	assert.Equal(t, bracketed[0].Field, dotted[0].Field)
	assert.Equal(t, bracketed[0].Op, dotted[0].Op)

	for _, rec := range testAddresses {
		assert.Equal(t, bracketed.Evaluate(rec), dotted.Evaluate(rec), rec.Name)
	}
}

func TestParse_OperatorDefaultsAndSynonyms(t *testing.T) {
	reg := DefaultRegistry()

	ps := Parse(map[string][]string{"filter[name]": {"web"}}, reg, api.KindAddresses)
	require.Len(t, ps, 1)
	assert.Equal(t, OpContains, ps[0].Op, "omitted operator is contains")

	ps = Parse(map[string][]string{"filter[name][frobnicate]": {"web"}}, reg, api.KindAddresses)
	require.Len(t, ps, 1)
	assert.Equal(t, OpContains, ps[0].Op, "unknown operator falls back to contains")

	ps = Parse(map[string][]string{"filter[name][equals]": {"web-1"}}, reg, api.KindAddresses)
	require.Len(t, ps, 1)
	assert.Equal(t, OpEq, ps[0].Op)

	ps = Parse(map[string][]string{"page": {"2"}, "page_size": {"50"}}, reg, api.KindAddresses)
	assert.Empty(t, ps, "non-filter params are not predicates")
}

func TestEvaluate_StringOperators(t *testing.T) {
	cases := []struct {
		key, value string
		want       []string
	}{
		{"filter[name][starts_with]", "web", []string{"web-1", "web-2"}},
		{"filter[name][starts_with]", "WEB", []string{"web-1", "web-2"}},
		{"filter[name][ends_with]", "-1", []string{"web-1", "db-1"}},
		{"filter[name][eq]", "DB-1", []string{"db-1"}},
		{"filter[name][ne]", "db-1", []string{"web-1", "web-2", "portal"}},
		{"filter[name][contains]", "b-", []string{"web-1", "web-2", "db-1"}},
		{"filter[name][not_contains]", "web", []string{"db-1", "portal"}},
		{"filter[description][contains]", "database", []string{"db-1"}},
		{"filter[name][regex]", "^web-[0-9]+$", []string{"web-1", "web-2"}},
		{"filter[name][in]", "web-1, portal", []string{"web-1", "portal"}},
		{"filter[name][not_in]", "web-1,web-2", []string{"db-1", "portal"}},
	}
	for _, tc := range cases {
		got := matching(t, map[string][]string{tc.key: {tc.value}}, api.KindAddresses, testAddresses)
		assert.Equal(t, tc.want, got, "%s=%s", tc.key, tc.value)
	}
}

func TestEvaluate_ListFieldsMatchAnyElement(t *testing.T) {
	got := matching(t, map[string][]string{"filter[tag][eq]": {"prod"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"web-1"}, got)

	got = matching(t, map[string][]string{"filter[tag][in]": {"web,db"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"web-1"}, got)
}

func TestEvaluate_NumericOperators(t *testing.T) {
	services := []api.Record{
		{Name: "tcp-80", Kind: api.KindServices, Fields: map[string]any{"protocol": map[string]any{"tcp": map[string]any{"port": "80"}}}},
		{Name: "tcp-8443", Kind: api.KindServices, Fields: map[string]any{"protocol": map[string]any{"tcp": map[string]any{"port": "8443"}}}},
		{Name: "udp-53", Kind: api.KindServices, Fields: map[string]any{"protocol": map[string]any{"udp": map[string]any{"port": "53"}}}},
	}

	got := matching(t, map[string][]string{"filter[port][gt]": {"100"}}, api.KindServices, services)
	assert.Equal(t, []string{"tcp-8443"}, got)
	got = matching(t, map[string][]string{"filter[port][lte]": {"80"}}, api.KindServices, services)
	assert.Equal(t, []string{"tcp-80", "udp-53"}, got)
	got = matching(t, map[string][]string{"filter[port][gte]": {"53"}}, api.KindServices, services)
	assert.Equal(t, []string{"tcp-80", "tcp-8443", "udp-53"}, got)

	// A non-numeric operand cannot order-compare anything.
	got = matching(t, map[string][]string{"filter[port][gt]": {"eighty"}}, api.KindServices, services)
	assert.Empty(t, got)

	got = matching(t, map[string][]string{"filter[protocol][eq]": {"udp"}}, api.KindServices, services)
	assert.Equal(t, []string{"udp-53"}, got)
}

func TestEvaluate_Exists(t *testing.T) {
	got := matching(t, map[string][]string{"filter[description][exists]": {"true"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"db-1"}, got)

	got = matching(t, map[string][]string{"filter[description][exists]": {"false"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"web-1", "web-2", "portal"}, got)

	got = matching(t, map[string][]string{"filter[fqdn][exists]": {"true"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"portal"}, got)
}

func TestEvaluate_UnknownFieldMatchesNothing(t *testing.T) {
	got := matching(t, map[string][]string{"filter[nonexistent_field][eq]": {"x"}}, api.KindAddresses, testAddresses)
	assert.Empty(t, got)
}

func TestEvaluate_InvalidRegexMatchesNothing(t *testing.T) {
	ps := Parse(map[string][]string{"filter[name][regex]": {"["}}, DefaultRegistry(), api.KindAddresses)
	require.Len(t, ps, 1)
	for _, rec := range testAddresses {
		assert.False(t, ps.Evaluate(rec))
	}
}

func TestEvaluate_ConjunctionAcrossPredicates(t *testing.T) {
	got := matching(t, map[string][]string{
		"filter[name][starts_with]": {"web"},
		"filter[location][eq]":      {"device-group"},
	}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"web-1", "web-2"}, got)

	got = matching(t, map[string][]string{
		"filter[name][starts_with]": {"web"},
		"filter[location][eq]":      {"shared"},
	}, api.KindAddresses, testAddresses)
	assert.Empty(t, got)
}

func TestEvaluate_LocationFields(t *testing.T) {
	got := matching(t, map[string][]string{"filter[location][eq]": {"shared"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"db-1", "portal"}, got)

	got = matching(t, map[string][]string{"filter[location_name][eq]": {"DG-A"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"web-1", "web-2"}, got)

	got = matching(t, map[string][]string{"filter[loc][eq]": {"shared"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"db-1", "portal"}, got, "loc is an alias for location")
}

func TestEvaluate_AddressAliases(t *testing.T) {
	want := []string{"web-1"}
	for _, key := range []string{"filter[ip][eq]", "filter[ip_netmask][eq]", "filter[value][eq]"} {
		got := matching(t, map[string][]string{key: {"10.1.0.1/32"}}, api.KindAddresses, testAddresses)
		assert.Equal(t, want, got, key)
	}

	got := matching(t, map[string][]string{"filter[type][eq]": {"fqdn"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"portal"}, got)
	got = matching(t, map[string][]string{"filter[value][ends_with]": {"corp.example"}}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"portal"}, got)
}

func TestEvaluate_RuleAliases(t *testing.T) {
	rules := []api.Record{
		{Name: "allow-web", Kind: api.KindSecurityRules, Fields: map[string]any{
			"from": []string{"untrust"}, "to": []string{"trust"},
			"source": []string{"any"}, "destination": []string{"web-1", "web-2"},
			"action": "allow", "rulebase": api.RulebasePre,
		}},
		{Name: "deny-all", Kind: api.KindSecurityRules, Fields: map[string]any{
			"action": "deny", "rulebase": api.RulebasePost,
		}},
	}

	got := matching(t, map[string][]string{"filter[zone_from][eq]": {"untrust"}}, api.KindSecurityRules, rules)
	assert.Equal(t, []string{"allow-web"}, got)
	got = matching(t, map[string][]string{"filter[dst][eq]": {"web-2"}}, api.KindSecurityRules, rules)
	assert.Equal(t, []string{"allow-web"}, got)
	got = matching(t, map[string][]string{"filter[rulebase][eq]": {"post"}}, api.KindSecurityRules, rules)
	assert.Equal(t, []string{"deny-all"}, got)
}

func TestEvaluate_DottedPathFields(t *testing.T) {
	services := []api.Record{
		{Name: "tcp-8443", Kind: api.KindServices, Fields: map[string]any{"protocol": map[string]any{"tcp": map[string]any{"port": "8443"}}}},
		{Name: "udp-53", Kind: api.KindServices, Fields: map[string]any{"protocol": map[string]any{"udp": map[string]any{"port": "53"}}}},
	}

	got := matching(t, map[string][]string{"filter[protocol.tcp.port][eq]": {"8443"}}, api.KindServices, services)
	assert.Equal(t, []string{"tcp-8443"}, got)

	// Dotted form: only the trailing operator token is split off, the rest
	// stays a path.
	got = matching(t, map[string][]string{"filter.protocol.udp.port.eq": {"53"}}, api.KindServices, services)
	assert.Equal(t, []string{"udp-53"}, got)
}

func TestEvaluate_UnderscoreFallsBackToHyphen(t *testing.T) {
	rules := []api.Record{
		{Name: "logged", Kind: api.KindSecurityRules, Fields: map[string]any{"log-setting": "default"}},
		{Name: "silent", Kind: api.KindSecurityRules, Fields: map[string]any{}},
	}
	got := matching(t, map[string][]string{"filter[log_setting][eq]": {"default"}}, api.KindSecurityRules, rules)
	assert.Equal(t, []string{"logged"}, got)
}

func TestEvaluate_GroupFields(t *testing.T) {
	groups := []api.Record{
		{Name: "DG-A", Kind: api.KindDeviceGroups, Location: api.Location{Kind: api.LocationDeviceGroup, Name: "DG-A"}},
		{Name: "DG-B", Kind: api.KindDeviceGroups, Location: api.Location{Kind: api.LocationDeviceGroup, Name: "DG-B", ParentChain: []string{"DG-A"}}},
		{Name: "DG-C", Kind: api.KindDeviceGroups, Location: api.Location{Kind: api.LocationDeviceGroup, Name: "DG-C", ParentChain: []string{"DG-A", "DG-B"}}},
	}

	got := matching(t, map[string][]string{"filter[parent][eq]": {"DG-A"}}, api.KindDeviceGroups, groups)
	assert.Equal(t, []string{"DG-B"}, got, "parent is the immediate parent only")

	got = matching(t, map[string][]string{"filter[parent_chain][contains]": {"DG-A"}}, api.KindDeviceGroups, groups)
	assert.Equal(t, []string{"DG-B", "DG-C"}, got)

	got = matching(t, map[string][]string{"filter[parent][exists]": {"false"}}, api.KindDeviceGroups, groups)
	assert.Equal(t, []string{"DG-A"}, got)
}

func TestEvaluate_AddressGroupMembers(t *testing.T) {
	groups := []api.Record{
		{Name: "web-servers", Kind: api.KindAddressGroups, Fields: map[string]any{"static": []string{"web-1", "web-2"}}},
		{Name: "dyn-prod", Kind: api.KindAddressGroups, Fields: map[string]any{"dynamic": map[string]any{"filter": "'prod' and 'web'"}}},
	}

	got := matching(t, map[string][]string{"filter[members][eq]": {"web-1"}}, api.KindAddressGroups, groups)
	assert.Equal(t, []string{"web-servers"}, got)
	got = matching(t, map[string][]string{"filter[members][contains]": {"prod"}}, api.KindAddressGroups, groups)
	assert.Equal(t, []string{"dyn-prod"}, got)
}

func TestEvaluate_EmptyPredicateSetMatchesAll(t *testing.T) {
	got := matching(t, map[string][]string{}, api.KindAddresses, testAddresses)
	assert.Equal(t, []string{"web-1", "web-2", "db-1", "portal"}, got)
}
