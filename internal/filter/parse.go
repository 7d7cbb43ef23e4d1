package filter

import (
	"regexp"
	"strings"
)

var bracketKey = regexp.MustCompile(`^filter\[([^\]]+)\](?:\[([^\]]+)\])?$`)

// operators maps surface tokens (synonyms included) to operators.
var operators = map[string]Operator{
	"eq": OpEq, "equals": OpEq,
	"ne": OpNe, "not_equals": OpNe,
	"contains": OpContains, "not_contains": OpNotContains,
	"starts_with": OpStartsWith, "ends_with": OpEndsWith,
	"gt": OpGt, "lt": OpLt, "gte": OpGte, "lte": OpLte,
	"in": OpIn, "not_in": OpNotIn,
	"regex": OpRegex, "exists": OpExists,
}

// Parse compiles filter query parameters into a predicate set for one
// object kind. Both surface syntaxes are accepted and compile identically:
//
//	filter[field][operator]=value
//	filter.field.operator=value
//
// The operator defaults to contains when omitted; an unrecognized operator
// token also falls back to contains. Parsing never fails: a predicate whose
// regex is invalid compiles to a never-match test, which degrades that
// query to an empty result rather than an error.
func Parse(params map[string][]string, reg *Registry, kind string) PredicateSet {
	var ps PredicateSet
	for key, values := range params {
		field, op, ok := parseKey(key)
		if !ok {
			continue
		}
		for _, raw := range values {
			ps = append(ps, compile(field, op, raw, reg, kind))
		}
	}
	return ps
}

func parseKey(key string) (field string, op Operator, ok bool) {
	if m := bracketKey.FindStringSubmatch(key); m != nil {
		op = OpContains
		if m[2] != "" {
			if known, found := operators[strings.ToLower(m[2])]; found {
				op = known
			}
		}
		return m[1], op, true
	}
	if rest, found := strings.CutPrefix(key, "filter."); found && rest != "" {
		// Field names may themselves be dotted paths, so only a trailing
		// segment that is a known operator token is treated as one.
		op = OpContains
		field = rest
		if i := strings.LastIndex(rest, "."); i >= 0 {
			if known, found := operators[strings.ToLower(rest[i+1:])]; found {
				field = rest[:i]
				op = known
			}
		}
		return field, op, true
	}
	return "", "", false
}

func compile(field string, op Operator, raw string, reg *Registry, kind string) Predicate {
	p := Predicate{
		Field:    field,
		Op:       op,
		accessor: reg.Resolve(kind, field),
	}
	switch op {
	case OpIn, OpNotIn:
		p.Value = parseListValue(raw)
	default:
		p.Value = parseScalar(raw)
	}
	if op == OpRegex {
		re, err := regexp.Compile(raw)
		if err != nil {
			p.neverMatch = true
		} else {
			p.re = re
		}
	}
	return p
}
