// Package tools implements the Pasabayan tool catalog exposed to the
// assistant. Each tool declares a parameter schema, validates its input,
// calls the platform gateway, and renders a human-readable answer.
package tools

import (
	"encoding/json"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"
)

// Kind is the wire type of a tool parameter.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindEnum
)

// Param describes one parameter of a tool. A parameter with a Default is
// never required; callers that omit it receive the default value.
type Param struct {
	Kind        Kind
	Description string
	Optional    bool
	Default     any
	Enum        []string
}

// Schema maps parameter names to their declarations.
type Schema map[string]Param

// JSONSchema renders the schema as a JSON Schema object. Required fields
// are sorted so the output is stable across runs.
func (s Schema) JSONSchema() *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(s))
	var required []string

	for name, p := range s {
		prop := &jsonschema.Schema{Description: p.Description}

		switch p.Kind {
		case KindString:
			prop.Type = "string"
		case KindNumber:
			prop.Type = "number"
		case KindBool:
			prop.Type = "boolean"
		case KindEnum:
			prop.Type = "string"
			prop.Enum = make([]any, 0, len(p.Enum))
			for _, v := range p.Enum {
				prop.Enum = append(prop.Enum, v)
			}
		}

		if p.Default != nil {
			if raw, err := json.Marshal(p.Default); err == nil {
				prop.Default = raw
			}
		}

		props[name] = prop

		if !p.Optional && p.Default == nil {
			required = append(required, name)
		}
	}

	sort.Strings(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}
