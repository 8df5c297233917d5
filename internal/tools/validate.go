package tools

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Params holds validated tool input. Values are the plain types produced by
// encoding/json: string, float64, and bool.
type Params map[string]any

// Has reports whether the caller supplied the parameter (or a default filled
// it in).
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the string value for key, or "" when absent.
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Float returns the numeric value for key, or 0 when absent.
func (p Params) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// Int returns the numeric value for key truncated to an int.
func (p Params) Int(key string) int {
	return int(p.Float(key))
}

// Bool returns the boolean value for key, or false when absent.
func (p Params) Bool(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// Validate checks raw input against the schema. It fills in defaults, drops
// parameters the schema does not declare, and reports each violation as a
// "field: message" string sorted by field name. The returned Params is only
// meaningful when there are no violations.
func (s Schema) Validate(raw map[string]any) (Params, []string) {
	params := make(Params, len(s))
	var violations []string

	for name, decl := range s {
		value, ok := raw[name]
		if !ok || value == nil {
			if decl.Default != nil {
				params[name] = decl.Default
			} else if !decl.Optional {
				violations = append(violations, name+": required")
			}
			continue
		}

		switch decl.Kind {
		case KindString:
			str, ok := value.(string)
			if !ok {
				violations = append(violations, name+": expected a string")
				continue
			}
			params[name] = str

		case KindNumber:
			switch n := value.(type) {
			case float64:
				params[name] = n
			case int:
				params[name] = float64(n)
			default:
				violations = append(violations, name+": expected a number")
			}

		case KindBool:
			b, ok := value.(bool)
			if !ok {
				violations = append(violations, name+": expected a boolean")
				continue
			}
			params[name] = b

		case KindEnum:
			str, ok := value.(string)
			if !ok {
				violations = append(violations, name+": expected a string")
				continue
			}
			if !slices.Contains(decl.Enum, str) {
				violations = append(violations, fmt.Sprintf("%s: must be one of %s", name, strings.Join(decl.Enum, ", ")))
				continue
			}
			params[name] = str
		}
	}

	sort.Strings(violations)
	return params, violations
}
