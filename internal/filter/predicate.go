package filter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/panlens/api"
)

// Operator identifies one comparison in a predicate.
type Operator string

const (
	OpEq          Operator = "eq"
	OpNe          Operator = "ne"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpGt          Operator = "gt"
	OpLt          Operator = "lt"
	OpGte         Operator = "gte"
	OpLte         Operator = "lte"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
	OpRegex       Operator = "regex"
	OpExists      Operator = "exists"
)

// Predicate is one compiled (field, operator, value) test.
type Predicate struct {
	Field string
	Op    Operator
	Value Value

	accessor Accessor
	re       *regexp.Regexp
	// neverMatch marks a predicate that can't succeed (invalid regex);
	// it degrades the query to an empty result instead of failing it.
	neverMatch bool
}

// PredicateSet is an AND-combined list of predicates.
type PredicateSet []Predicate

// Evaluate reports whether a record satisfies every predicate,
// short-circuiting on the first failure.
func (ps PredicateSet) Evaluate(rec api.Record) bool {
	for i := range ps {
		if !ps[i].Match(rec) {
			return false
		}
	}
	return true
}

// Match evaluates one predicate against a record. A field that resolves to
// nothing fails every operator except exists=false; comparisons are
// case-insensitive except for the purely numeric operators.
func (p *Predicate) Match(rec api.Record) bool {
	if p.neverMatch {
		return false
	}
	v := p.accessor(rec)

	if p.Op == OpExists {
		want := true
		if p.Value.IsBool {
			want = p.Value.Bool
		}
		return present(v) == want
	}
	if !present(v) {
		return false
	}

	switch p.Op {
	case OpEq:
		return p.equalMatch(v)
	case OpNe:
		return !p.equalMatch(v)
	case OpContains:
		return p.stringMatch(v, strings.Contains)
	case OpNotContains:
		return !p.stringMatch(v, strings.Contains)
	case OpStartsWith:
		return p.stringMatch(v, strings.HasPrefix)
	case OpEndsWith:
		return p.stringMatch(v, strings.HasSuffix)
	case OpGt, OpLt, OpGte, OpLte:
		return p.numericMatch(v)
	case OpIn:
		return p.inMatch(v)
	case OpNotIn:
		return !p.inMatch(v)
	case OpRegex:
		for _, s := range renderStrings(v) {
			if p.re.MatchString(s) {
				return true
			}
		}
		return false
	}
	return false
}

// equalMatch is type-aware: numeric fields compare numerically when the
// operand is numeric, everything else compares lexically (any element for
// list fields).
func (p *Predicate) equalMatch(v any) bool {
	if p.Value.IsNum {
		if n, ok := asNumber(v); ok {
			return n == p.Value.Num
		}
	}
	for _, s := range renderStrings(v) {
		if strings.EqualFold(s, p.Value.Raw) {
			return true
		}
	}
	return false
}

func (p *Predicate) stringMatch(v any, test func(s, substr string) bool) bool {
	needle := strings.ToLower(p.Value.Raw)
	for _, s := range renderStrings(v) {
		if test(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// numericMatch: a non-numeric field or operand is a no-match, not an error.
func (p *Predicate) numericMatch(v any) bool {
	if !p.Value.IsNum {
		return false
	}
	n, ok := asNumber(v)
	if !ok {
		return false
	}
	switch p.Op {
	case OpGt:
		return n > p.Value.Num
	case OpLt:
		return n < p.Value.Num
	case OpGte:
		return n >= p.Value.Num
	case OpLte:
		return n <= p.Value.Num
	}
	return false
}

// inMatch: any element of the field value equals any element of the operand
// list.
func (p *Predicate) inMatch(v any) bool {
	for _, s := range renderStrings(v) {
		for _, want := range p.Value.List {
			if strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case []string:
		return len(t) > 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	return true
}

// renderStrings flattens a field value into the strings comparisons run
// against. Nested maps render as their JSON form so substring tests still
// have something to bite on.
func renderStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		var out []string
		for _, e := range t {
			out = append(out, renderStrings(e)...)
		}
		return out
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}
	case int:
		return []string{strconv.Itoa(t)}
	case int64:
		return []string{strconv.FormatInt(t, 10)}
	case bool:
		return []string{strconv.FormatBool(t)}
	case map[string]any:
		return []string{oj.JSON(t)}
	case nil:
		return nil
	}
	return []string{oj.JSON(v)}
}

func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return n, err == nil
	}
	return 0, false
}
