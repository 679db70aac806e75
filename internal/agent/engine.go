// Package agent implements the conversation loop: it drives the
// reasoning engine, dispatches tool calls through the sandbox, and
// records every step in the conversation log.
package agent

import (
	"context"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// ToolCall is one tool invocation requested by the reasoning engine.
type ToolCall struct {
	// ID pairs the call with its result across the wire. Engines that
	// do not assign ids get one generated by the coordinator.
	ID   string
	Name string
	Args map[string]any
}

// Decision is the outcome of one reasoning step: either a final answer
// or one or more requested tool calls.
type Decision struct {
	Answer string
	Calls  []ToolCall
}

// Engine is the external reasoning boundary. It receives the ordered
// event history and decides what to do next. The coordinator treats it
// as an opaque decision function.
type Engine interface {
	Decide(ctx context.Context, history []v1alpha1.Event) (*Decision, error)
}
