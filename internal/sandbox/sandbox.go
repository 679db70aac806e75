// Package sandbox gates every tool invocation before it reaches a
// capability function. Authorization is pure: the sandbox validates and
// normalizes arguments but never executes anything itself.
package sandbox

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/registry"
)

// Reason classifies why an invocation was denied.
type Reason string

const (
	ReasonUnknownTool    Reason = "UnknownTool"
	ReasonBadArguments   Reason = "BadArguments"
	ReasonPathEscape     Reason = "PathEscape"
	ReasonBlockedCommand Reason = "BlockedCommand"
)

// Denial is the error returned when an invocation fails a safety check.
type Denial struct {
	Reason  Reason
	Message string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("%s: %s", d.Reason, d.Message)
}

// Sandbox validates tool invocations against the registry schema, the
// workspace boundary, and the command denylist. It holds no mutable
// state and is safe for concurrent use.
type Sandbox struct {
	registry *registry.Registry
	root     string
	blocked  []string
	logger   *zap.Logger
}

// New creates a Sandbox confined to workspaceRoot. The root is resolved
// to an absolute, symlink-free path once; extraPatterns extends the
// built-in command denylist.
func New(reg *registry.Registry, workspaceRoot string, extraPatterns []string, logger *zap.Logger) (*Sandbox, error) {
	root, err := resolveRoot(workspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %s: %w", workspaceRoot, err)
	}

	blocked := make([]string, 0, len(blockedPatterns)+len(extraPatterns))
	blocked = append(blocked, blockedPatterns...)
	blocked = append(blocked, extraPatterns...)

	return &Sandbox{
		registry: reg,
		root:     root,
		blocked:  blocked,
		logger:   logger,
	}, nil
}

// Root returns the resolved workspace root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Authorize runs the safety checks for one invocation, in order,
// short-circuiting on the first failure:
//
//  1. the tool must exist in the registry
//  2. args must match the declared schema
//  3. path arguments must resolve inside the workspace root
//  4. command arguments must not match the denylist
//
// On success it returns the tool and a normalized argument set (defaults
// applied, paths rewritten to their resolved absolute form). On failure
// the returned error is a *Denial.
func (s *Sandbox) Authorize(name string, args map[string]any) (*registry.Tool, map[string]any, error) {
	tool := s.registry.Lookup(name)
	if tool == nil {
		return nil, nil, &Denial{
			Reason:  ReasonUnknownTool,
			Message: fmt.Sprintf("no tool named %q is registered", name),
		}
	}

	// From here on the tool is always returned, even on denial, so the
	// caller can still resolve its category when recording the outcome.
	normalized, err := s.validateArgs(tool, args)
	if err != nil {
		return tool, nil, err
	}

	for argName, prop := range tool.Schema.Properties {
		val, present := normalized[argName]
		if !present {
			continue
		}
		if prop.Path {
			resolved, err := s.confinePath(val.(string))
			if err != nil {
				s.logger.Warn("path escape denied",
					zap.String("tool", name),
					zap.String("arg", argName),
				)
				return tool, nil, err
			}
			normalized[argName] = resolved
		}
		if prop.Command {
			if err := s.screenCommand(val.(string)); err != nil {
				s.logger.Warn("blocked command denied",
					zap.String("tool", name),
					zap.String("arg", argName),
				)
				return tool, nil, err
			}
		}
	}

	return tool, normalized, nil
}

// validateArgs checks the argument set against the tool schema and
// returns a normalized copy with defaults applied and numeric types
// coerced.
func (s *Sandbox) validateArgs(tool *registry.Tool, args map[string]any) (map[string]any, error) {
	normalized := make(map[string]any, len(tool.Schema.Properties))

	for name, prop := range tool.Schema.Properties {
		if prop.Default != nil {
			normalized[name] = prop.Default
		}
	}

	for name, val := range args {
		prop, declared := tool.Schema.Properties[name]
		if !declared {
			return nil, &Denial{
				Reason:  ReasonBadArguments,
				Message: fmt.Sprintf("tool %s does not accept argument %q", tool.Name, name),
			}
		}
		coerced, err := coerce(val, prop.Type)
		if err != nil {
			return nil, &Denial{
				Reason:  ReasonBadArguments,
				Message: fmt.Sprintf("argument %q: %v", name, err),
			}
		}
		normalized[name] = coerced
	}

	for _, req := range tool.Schema.Required {
		if _, ok := normalized[req]; !ok {
			return nil, &Denial{
				Reason:  ReasonBadArguments,
				Message: fmt.Sprintf("missing required argument %q", req),
			}
		}
	}

	return normalized, nil
}

// coerce converts a decoded JSON value into the declared primitive type.
// JSON numbers arrive as float64, so integer arguments accept integral
// floats.
func coerce(val any, typ string) (any, error) {
	switch typ {
	case "string":
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", val)
		}
		return s, nil
	case "integer":
		switch v := val.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v != math.Trunc(v) {
				return nil, fmt.Errorf("expected integer, got %v", v)
			}
			return int(v), nil
		default:
			return nil, fmt.Errorf("expected integer, got %T", val)
		}
	case "number":
		switch v := val.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("expected number, got %T", val)
		}
	case "boolean":
		b, ok := val.(bool)
		if !ok {
			return nil, fmt.Errorf("expected boolean, got %T", val)
		}
		return b, nil
	case "object":
		m, ok := val.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", val)
		}
		return m, nil
	case "array":
		a, ok := val.([]any)
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", val)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("schema declares unsupported type %q", typ)
	}
}
