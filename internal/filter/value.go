// Package filter parses string-encoded predicate expressions into typed
// predicate sets and evaluates them against records. It depends only on the
// generic accessor contract, never on specific object kinds.
package filter

import (
	"strconv"
	"strings"
)

// Value is the typed form of a raw query-string operand. Conversion happens
// once at parse time so evaluation never inspects raw strings.
type Value struct {
	Raw    string
	Num    float64
	IsNum  bool
	Bool   bool
	IsBool bool
	List   []string
}

func parseScalar(raw string) Value {
	v := Value{Raw: raw}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		v.Num = n
		v.IsNum = true
	}
	switch strings.ToLower(raw) {
	case "true", "yes":
		v.Bool = true
		v.IsBool = true
	case "false", "no":
		v.IsBool = true
	}
	return v
}

// parseListValue splits a comma-separated operand for in/not_in.
func parseListValue(raw string) Value {
	v := Value{Raw: raw}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			v.List = append(v.List, part)
		}
	}
	return v
}
