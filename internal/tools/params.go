package tools

import (
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
)

// ParamType is a JSON Schema primitive.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeInteger ParamType = "integer"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param describes one named argument of a tool.
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Enum        []string
	// Items is the element type when Type is TypeArray.
	Items    ParamType
	Optional bool
	// Default is applied when the argument is absent. A param with a
	// default is implicitly optional.
	Default any
}

// Params is the ordered parameter list of a tool.
type Params []Param

func String(name, description string) Param {
	return Param{Name: name, Type: TypeString, Description: description}
}

func Integer(name, description string) Param {
	return Param{Name: name, Type: TypeInteger, Description: description}
}

func Boolean(name, description string) Param {
	return Param{Name: name, Type: TypeBoolean, Description: description}
}

func Enum(name, description string, values ...string) Param {
	return Param{Name: name, Type: TypeString, Description: description, Enum: values}
}

func StringList(name, description string) Param {
	return Param{Name: name, Type: TypeArray, Items: TypeString, Description: description}
}

// Opt marks the param optional.
func (p Param) Opt() Param {
	p.Optional = true
	return p
}

// Or sets a default value.
func (p Param) Or(v any) Param {
	p.Default = v
	p.Optional = true
	return p
}

func (p Param) required() bool { return !p.Optional && p.Default == nil }

// JSONSchema returns the object schema sent to the model.
func (ps Params) JSONSchema() map[string]any {
	props := make(map[string]any, len(ps))
	required := make([]string, 0, len(ps))

	for _, p := range ps {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Type == TypeArray {
			items := p.Items
			if items == "" {
				items = TypeString
			}
			prop["items"] = map[string]any{"type": string(items)}
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		props[p.Name] = prop
		if p.required() {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ValidationError lists every problem found in one argument map.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidArgs, strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgs }

// Validate checks raw against the schema and returns a normalised copy:
// defaults applied, integral numbers converted to int, arrays as []any.
// Keys the schema does not declare are dropped.
func (ps Params) Validate(raw map[string]any) (Args, error) {
	out := make(Args, len(ps))
	var problems []string

	for _, p := range ps {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			switch {
			case p.Default != nil:
				out[p.Name] = p.Default
			case p.required():
				problems = append(problems, fmt.Sprintf("%q is required", p.Name))
			}
			continue
		}

		nv, err := p.check(v)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		out[p.Name] = nv
	}

	for k := range raw {
		if !slices.ContainsFunc(ps, func(p Param) bool { return p.Name == k }) {
			slog.Debug("Dropping undeclared tool argument", "name", k)
		}
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return out, nil
}

func (p Param) check(v any) (any, error) {
	nv, ok := coerce(p.Type, v)
	if !ok {
		return nil, fmt.Errorf("%q must be %s, got %T", p.Name, article(p.Type), v)
	}

	if len(p.Enum) > 0 {
		s, _ := nv.(string)
		if !slices.Contains(p.Enum, s) {
			return nil, fmt.Errorf("%q must be one of [%s], got %q", p.Name, strings.Join(p.Enum, ", "), s)
		}
	}

	if p.Type == TypeArray {
		items := p.Items
		if items == "" {
			items = TypeString
		}
		list := nv.([]any)
		for i, item := range list {
			ni, ok := coerce(items, item)
			if !ok {
				return nil, fmt.Errorf("%q[%d] must be %s, got %T", p.Name, i, article(items), item)
			}
			list[i] = ni
		}
	}
	return nv, nil
}

func coerce(t ParamType, v any) (any, bool) {
	switch t {
	case TypeString:
		s, ok := v.(string)
		return s, ok
	case TypeBoolean:
		b, ok := v.(bool)
		return b, ok
	case TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case float32:
			return float64(n), true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
	case TypeInteger:
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			if n == math.Trunc(n) && !math.IsInf(n, 0) {
				return int(n), true
			}
		}
	case TypeArray:
		switch a := v.(type) {
		case []any:
			out := make([]any, len(a))
			copy(out, a)
			return out, true
		case []string:
			out := make([]any, len(a))
			for i, s := range a {
				out[i] = s
			}
			return out, true
		}
	case TypeObject:
		m, ok := v.(map[string]any)
		return m, ok
	}
	return nil, false
}

func article(t ParamType) string {
	switch t {
	case TypeArray, TypeInteger, TypeObject:
		return "an " + string(t)
	default:
		return "a " + string(t)
	}
}

// Args are validated tool arguments.
type Args map[string]any

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Int(name string) int {
	switch n := a[name].(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

func (a Args) Strings(name string) []string {
	switch v := a[name].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Has reports whether the argument was supplied or defaulted.
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}
