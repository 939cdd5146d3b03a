// Package tools holds the tool registry and the tool implementations
// exposed over both the stdio and HTTP transports.
package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Handler executes a tool call with validated arguments.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Param describes one tool parameter for schema generation and validation.
type Param struct {
	Name        string
	Type        string // string, integer, number, boolean, array
	Description string
	Required    bool
	Default     any
	Minimum     *float64 // numeric params only
	Maximum     *float64 // numeric params only
	MaxItems    int      // arrays only; 0 means unlimited
	Items       string   // array element type
}

// Definition holds a registered tool's metadata and handler.
type Definition struct {
	Name        string
	Description string
	Params      []Param
	Handler     Handler
}

// InputSchema builds the JSON-Schema object advertised for this tool
// in tools/list responses.
func (d Definition) InputSchema() map[string]any {
	properties := map[string]any{}
	var required []string
	for _, p := range d.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		if p.Type == "array" && p.Items != "" {
			prop["items"] = map[string]any{"type": p.Items}
		}
		if p.MaxItems > 0 {
			prop["maxItems"] = p.MaxItems
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Registry owns all tool definitions. It is populated once at startup and
// read-only afterwards, so concurrent reads need no locking.
type Registry struct {
	defs  []Definition
	index map[string]int
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a tool definition. Duplicate names fail with ErrDuplicateTool.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool has empty name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %q has nil handler", def.Name)
	}
	if _, exists := r.index[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, def.Name)
	}
	r.index[def.Name] = len(r.defs)
	r.defs = append(r.defs, def)
	return nil
}

// List returns all registered definitions in registration order.
func (r *Registry) List() []Definition {
	out := make([]Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Lookup returns the definition registered under name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	i, ok := r.index[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[i], true
}

// Invoke validates args against the named tool's schema and runs its handler.
// Unknown names fail with ErrToolNotFound, validation failures with
// ErrInvalidArguments, and handler faults are wrapped as ErrToolExecution
// carrying the original message.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (result any, err error) {
	def, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	validated, err := validateArguments(def, args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("%w: %s: %v", ErrToolExecution, name, rec)
		}
	}()

	result, err = def.Handler(ctx, validated)
	if err != nil {
		if errors.Is(err, ErrInvalidArguments) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrToolExecution, name, err)
	}
	return result, nil
}

// validateArguments applies schema defaults and checks required parameters,
// types, and constraints. Arguments not declared in the schema are ignored.
func validateArguments(def Definition, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(def.Params))
	for _, p := range def.Params {
		val, present := args[p.Name]
		if !present || val == nil {
			if p.Required {
				return nil, fmt.Errorf("%w: missing required parameter %q", ErrInvalidArguments, p.Name)
			}
			if p.Default != nil {
				out[p.Name] = p.Default
			}
			continue
		}
		checked, err := checkType(p, val)
		if err != nil {
			return nil, err
		}
		out[p.Name] = checked
	}
	return out, nil
}

// checkType validates a single argument against its parameter declaration.
// JSON numbers arrive as float64; integer params accept only integral values.
func checkType(p Param, val any) (any, error) {
	switch p.Type {
	case "string":
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be a string", ErrInvalidArguments, p.Name)
		}
		return s, nil
	case "integer":
		f, ok := toFloat(val)
		if !ok || f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: parameter %q must be an integer", ErrInvalidArguments, p.Name)
		}
		if err := checkRange(p, f); err != nil {
			return nil, err
		}
		return int(f), nil
	case "number":
		f, ok := toFloat(val)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be a number", ErrInvalidArguments, p.Name)
		}
		if err := checkRange(p, f); err != nil {
			return nil, err
		}
		return f, nil
	case "boolean":
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be a boolean", ErrInvalidArguments, p.Name)
		}
		return b, nil
	case "array":
		arr, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q must be an array", ErrInvalidArguments, p.Name)
		}
		if p.MaxItems > 0 && len(arr) > p.MaxItems {
			return nil, fmt.Errorf("%w: parameter %q exceeds maximum length of %d", ErrInvalidArguments, p.Name, p.MaxItems)
		}
		return arr, nil
	default:
		return val, nil
	}
}

func checkRange(p Param, f float64) error {
	if p.Minimum != nil && f < *p.Minimum {
		return fmt.Errorf("%w: parameter %q must be at least %v", ErrInvalidArguments, p.Name, *p.Minimum)
	}
	if p.Maximum != nil && f > *p.Maximum {
		return fmt.Errorf("%w: parameter %q must be at most %v", ErrInvalidArguments, p.Name, *p.Maximum)
	}
	return nil
}

// toFloat converts JSON and native numeric values to float64.
func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
