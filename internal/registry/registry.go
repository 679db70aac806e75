// Package registry holds the static tool table: every capability the agent
// can invoke, keyed by name, with its category, argument schema, and
// timeout bound. The table is built once at startup and never mutated, so
// lookups are safe for concurrent use without locking.
package registry

import (
	"context"
	"fmt"
	"sort"
	"time"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// CapabilityFunc executes a tool with sandbox-approved, normalized
// arguments. It must never be invoked with unvalidated input.
type CapabilityFunc func(ctx context.Context, args map[string]any) (string, error)

// Property describes a single argument in a tool schema.
type Property struct {
	// Type is one of "string", "integer", "number", "boolean",
	// "object", "array".
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Default     any    `json:"default,omitempty"`
	// Path marks string arguments that must resolve inside the
	// workspace root before the tool runs.
	Path bool `json:"-"`
	// Command marks string arguments screened against the command
	// denylist before the tool runs.
	Command bool `json:"-"`
}

// Schema declares a tool's argument names and primitive types. The
// sandbox validates every invocation against it structurally before any
// semantic checks run.
type Schema struct {
	Required   []string            `json:"required,omitempty"`
	Properties map[string]Property `json:"properties"`
}

// Tool binds a name to a capability implementation.
type Tool struct {
	Name        string
	Description string
	Category    v1alpha1.Category
	Schema      Schema
	// Timeout bounds a single execution. Zero means the registry
	// default applies.
	Timeout time.Duration
	Execute CapabilityFunc
}

// Validate checks the tool definition for structural problems. It is
// called once per tool at registration, never on the invocation path.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("tool has no name")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %s has no capability function", t.Name)
	}
	if !v1alpha1.ValidCategory(t.Category) {
		return fmt.Errorf("tool %s has unknown category %q", t.Name, t.Category)
	}
	for _, req := range t.Schema.Required {
		if _, ok := t.Schema.Properties[req]; !ok {
			return fmt.Errorf("tool %s requires undeclared argument %q", t.Name, req)
		}
	}
	for name, prop := range t.Schema.Properties {
		// Path and command arguments are handed to the sandbox as
		// strings, so any other type is a definition error.
		if (prop.Path || prop.Command) && prop.Type != "string" {
			return fmt.Errorf("tool %s argument %q is path/command flagged but typed %q", t.Name, name, prop.Type)
		}
	}
	return nil
}

// Registry is the immutable tool table.
type Registry struct {
	tools          map[string]*Tool
	defaultTimeout time.Duration
}

// New builds a registry from the given tools. Duplicate names and
// invalid definitions are rejected; after New returns the registry is
// read-only.
func New(defaultTimeout time.Duration, tools ...*Tool) (*Registry, error) {
	if defaultTimeout <= 0 {
		defaultTimeout = 60 * time.Second
	}
	r := &Registry{
		tools:          make(map[string]*Tool, len(tools)),
		defaultTimeout: defaultTimeout,
	}
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid tool: %w", err)
		}
		if _, exists := r.tools[t.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name %s", t.Name)
		}
		r.tools[t.Name] = t
	}
	return r, nil
}

// MustNew builds a registry and panics on error. Use for static
// registration at startup.
func MustNew(defaultTimeout time.Duration, tools ...*Tool) *Registry {
	r, err := New(defaultTimeout, tools...)
	if err != nil {
		panic(fmt.Sprintf("building tool registry: %v", err))
	}
	return r
}

// Lookup returns the tool with the given name, or nil when unknown.
func (r *Registry) Lookup(name string) *Tool {
	return r.tools[name]
}

// Timeout returns the effective execution bound for a tool.
func (r *Registry) Timeout(t *Tool) time.Duration {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return r.defaultTimeout
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every tool, sorted by name.
func (r *Registry) All() []*Tool {
	out := make([]*Tool, 0, len(r.tools))
	for _, name := range r.Names() {
		out = append(out, r.tools[name])
	}
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.tools)
}
