package filter

import (
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/agentic-research/panlens/api"
)

// Accessor extracts a filterable value from a record. Returning nil means
// the field is absent for that record.
type Accessor func(rec api.Record) any

// Registry is the static (kind, field) → accessor table. It is built once
// at startup and passed by reference into Parse; adding a computed field is
// a registration, never a per-kind code change in the engine.
type Registry struct {
	fields  map[string]map[string]Accessor
	aliases map[string]map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		fields:  make(map[string]map[string]Accessor),
		aliases: make(map[string]map[string]string),
	}
}

// Register binds an accessor for one field of one kind.
func (r *Registry) Register(kind, field string, fn Accessor) {
	m, ok := r.fields[kind]
	if !ok {
		m = make(map[string]Accessor)
		r.fields[kind] = m
	}
	m[field] = fn
}

// Alias maps an alternate field name onto a canonical one for a kind.
func (r *Registry) Alias(kind, alias, canonical string) {
	m, ok := r.aliases[kind]
	if !ok {
		m = make(map[string]string)
		r.aliases[kind] = m
	}
	m[alias] = canonical
}

// Resolve returns the accessor for a field of a kind: a registered accessor
// or alias first, then a dynamic lookup into the record's field map. Dotted
// names fall through to a JSONPath over the nested fields.
func (r *Registry) Resolve(kind, field string) Accessor {
	if canonical, ok := r.aliases[kind][field]; ok {
		field = canonical
	}
	if fn, ok := r.fields[kind][field]; ok {
		return fn
	}
	return dynamicAccessor(field)
}

func dynamicAccessor(field string) Accessor {
	if strings.Contains(field, ".") {
		expr, err := jp.ParseString("$." + field)
		if err != nil {
			return func(api.Record) any { return nil }
		}
		return func(rec api.Record) any {
			got := expr.Get(rec.Fields)
			switch len(got) {
			case 0:
				return nil
			case 1:
				return got[0]
			default:
				return got
			}
		}
	}
	return func(rec api.Record) any {
		if v, ok := rec.Fields[field]; ok {
			return v
		}
		// Query surfaces use underscores where the document uses hyphens.
		if strings.Contains(field, "_") {
			if v, ok := rec.Fields[strings.ReplaceAll(field, "_", "-")]; ok {
				return v
			}
		}
		return nil
	}
}

// DefaultRegistry builds the accessor table for every object kind: shared
// identity fields, aliases, and the computed fields derived from nested
// structure.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	for _, kind := range api.Kinds() {
		r.Register(kind, "name", func(rec api.Record) any { return rec.Name })
		r.Register(kind, "source_path", func(rec api.Record) any { return rec.SourcePath })
		r.Register(kind, "location", func(rec api.Record) any { return string(rec.Location.Kind) })
		r.Register(kind, "location_name", func(rec api.Record) any { return rec.Location.Name })
		r.Alias(kind, "loc", "location")
	}

	r.Alias(api.KindAddresses, "ip", "ip-netmask")
	r.Alias(api.KindAddresses, "ip_netmask", "ip-netmask")
	r.Register(api.KindAddresses, "value", func(rec api.Record) any {
		for _, f := range []string{"ip-netmask", "ip-range", "fqdn"} {
			if v, ok := rec.Fields[f]; ok {
				return v
			}
		}
		return nil
	})
	r.Register(api.KindAddresses, "type", func(rec api.Record) any {
		for _, f := range []string{"ip-netmask", "ip-range", "fqdn"} {
			if _, ok := rec.Fields[f]; ok {
				return f
			}
		}
		return nil
	})

	r.Register(api.KindServices, "protocol", func(rec api.Record) any {
		proto, _ := rec.Fields["protocol"].(map[string]any)
		for _, p := range []string{"tcp", "udp", "sctp"} {
			if _, ok := proto[p]; ok {
				return p
			}
		}
		return nil
	})
	r.Register(api.KindServices, "port", func(rec api.Record) any {
		proto, _ := rec.Fields["protocol"].(map[string]any)
		for _, p := range []string{"tcp", "udp", "sctp"} {
			if spec, ok := proto[p].(map[string]any); ok {
				if port, ok := spec["port"]; ok {
					return port
				}
			}
		}
		return nil
	})

	r.Register(api.KindAddressGroups, "members", func(rec api.Record) any {
		if static, ok := rec.Fields["static"]; ok {
			return static
		}
		// Dynamic groups carry a match expression instead of members.
		if dyn, ok := rec.Fields["dynamic"].(map[string]any); ok {
			return dyn["filter"]
		}
		return nil
	})

	r.Register(api.KindDeviceGroups, "parent", func(rec api.Record) any {
		if n := len(rec.Location.ParentChain); n > 0 {
			return rec.Location.ParentChain[n-1]
		}
		return nil
	})
	r.Register(api.KindDeviceGroups, "parent_chain", func(rec api.Record) any {
		return rec.Location.ParentChain
	})

	for _, kind := range []string{api.KindSecurityRules, api.KindNATRules} {
		r.Alias(kind, "zone_from", "from")
		r.Alias(kind, "zone_to", "to")
		r.Alias(kind, "src", "source")
		r.Alias(kind, "dst", "destination")
	}

	return r
}
