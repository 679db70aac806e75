package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/memory"
	"github.com/wardenhq/warden/internal/registry"
	"github.com/wardenhq/warden/internal/sandbox"
	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// cancelGrace is how long the coordinator waits for a timed-out
// capability to honor its context before recording the timeout outcome.
const cancelGrace = 2 * time.Second

// Coordinator ties reasoning, sandboxed tool dispatch, and event
// recording into one loop. It owns the conversation log: no other
// component appends to it.
type Coordinator struct {
	log      memory.Log
	sandbox  *sandbox.Sandbox
	registry *registry.Registry
	engine   Engine
	cfg      *config.Config
	logger   *zap.Logger

	// mu serializes inbound messages: one conversation, one turn at a
	// time. Tool calls within a turn still run concurrently.
	mu sync.Mutex
}

// NewCoordinator creates a Coordinator wired to its collaborators.
func NewCoordinator(log memory.Log, sb *sandbox.Sandbox, reg *registry.Registry, engine Engine, cfg *config.Config, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		log:      log,
		sandbox:  sb,
		registry: reg,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
	}
}

// HandleMessage runs one full turn of the conversation loop for an
// inbound user message and returns the final agent answer.
//
// Sandbox denials and capability failures never escape this method:
// they are recorded as error tool_result events and handed back to the
// reasoning engine as data. Only log append failures and engine
// failures propagate, because the audit invariant cannot be kept once
// an append is lost.
func (c *Coordinator) HandleMessage(ctx context.Context, message string) (*v1alpha1.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	turnID := uuid.New().String()
	c.logger.Info("handling message",
		zap.String("turn", turnID),
		zap.Int("messageLen", len(message)),
	)

	if _, err := c.log.Append(&v1alpha1.Event{
		Role:     v1alpha1.RoleUser,
		Category: v1alpha1.CategoryOther,
		Payload:  message,
	}); err != nil {
		return nil, fmt.Errorf("recording user message: %w", err)
	}

	for turn := 0; turn < c.cfg.Agent.MaxToolTurns; turn++ {
		history, err := c.log.All()
		if err != nil {
			return nil, fmt.Errorf("reading event history: %w", err)
		}

		decision, err := c.engine.Decide(ctx, history)
		if err != nil {
			return nil, fmt.Errorf("reasoning engine: %w", err)
		}

		if len(decision.Calls) == 0 {
			seq, err := c.log.Append(&v1alpha1.Event{
				Role:     v1alpha1.RoleAgent,
				Category: v1alpha1.CategoryOther,
				Payload:  decision.Answer,
			})
			if err != nil {
				return nil, fmt.Errorf("recording agent answer: %w", err)
			}
			c.logger.Info("turn finished",
				zap.String("turn", turnID),
				zap.Uint64("events", seq),
			)
			return &v1alpha1.ChatResponse{
				Response:   decision.Answer,
				EventCount: int(seq),
				Success:    true,
			}, nil
		}

		if err := c.dispatch(ctx, decision.Calls); err != nil {
			return nil, err
		}
	}

	// The reasoning loop is bounded so a tool-happy engine cannot spin
	// forever. The bound itself is recorded as the agent outcome.
	answer := fmt.Sprintf("stopped after %d tool turns without a final answer", c.cfg.Agent.MaxToolTurns)
	seq, err := c.log.Append(&v1alpha1.Event{
		Role:     v1alpha1.RoleAgent,
		Category: v1alpha1.CategoryOther,
		Payload:  answer,
	})
	if err != nil {
		return nil, fmt.Errorf("recording agent answer: %w", err)
	}
	return &v1alpha1.ChatResponse{
		Response:   answer,
		EventCount: int(seq),
		Success:    true,
	}, nil
}

// dispatch authorizes and executes one batch of requested tool calls.
// Every call is recorded before execution; approved calls run
// concurrently while the log linearizes the result appends. Only store
// failures are returned.
func (c *Coordinator) dispatch(ctx context.Context, calls []ToolCall) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, call := range calls {
		if call.ID == "" {
			call.ID = uuid.New().String()
		}

		tool, args, authErr := c.sandbox.Authorize(call.Name, call.Args)

		category := v1alpha1.CategoryOther
		if tool != nil {
			category = tool.Category
		}

		rawArgs, _ := json.Marshal(call.Args)
		if _, err := c.log.Append(&v1alpha1.Event{
			Role:     v1alpha1.RoleToolCall,
			Category: category,
			ToolName: call.Name,
			CallID:   call.ID,
			Payload:  string(rawArgs),
		}); err != nil {
			return fmt.Errorf("recording tool call: %w", err)
		}

		if authErr != nil {
			// Denied: the capability is never invoked.
			c.logger.Warn("tool call denied",
				zap.String("tool", call.Name),
				zap.Error(authErr),
			)
			if err := c.recordResult(call, category, "", authErr); err != nil {
				return err
			}
			continue
		}

		call := call
		g.Go(func() error {
			output, execErr := c.runCapability(gctx, tool, args)
			return c.recordResult(call, category, output, execErr)
		})
	}

	return g.Wait()
}

// runCapability executes one approved tool under its declared timeout
// bound. Cancellation on timeout is best-effort: the capability is
// asked to stop via its context, and after a short grace period the
// timeout outcome is recorded regardless.
func (c *Coordinator) runCapability(ctx context.Context, tool *registry.Tool, args map[string]any) (string, error) {
	bound := c.registry.Timeout(tool)
	tctx, cancel := context.WithTimeout(ctx, bound)
	defer cancel()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		output, err := tool.Execute(tctx, args)
		done <- outcome{output, err}
	}()

	select {
	case o := <-done:
		if tctx.Err() == context.DeadlineExceeded {
			return "", &timeoutError{bound: bound}
		}
		return o.output, o.err
	case <-tctx.Done():
		select {
		case o := <-done:
			if tctx.Err() == context.DeadlineExceeded {
				return "", &timeoutError{bound: bound}
			}
			return o.output, o.err
		case <-time.After(cancelGrace):
		}
		if tctx.Err() == context.DeadlineExceeded {
			return "", &timeoutError{bound: bound}
		}
		return "", tctx.Err()
	}
}

// recordResult appends the tool_result event for one call, preserving
// the invariant that every recorded call gets exactly one result.
func (c *Coordinator) recordResult(call ToolCall, category v1alpha1.Category, output string, execErr error) error {
	ev := &v1alpha1.Event{
		Role:     v1alpha1.RoleToolResult,
		Category: category,
		ToolName: call.Name,
		CallID:   call.ID,
	}

	if execErr != nil {
		ev.Status = v1alpha1.StatusError
		ev.Payload = resultPayload(execErr)
	} else {
		ev.Status = v1alpha1.StatusOK
		ev.Payload = output
	}

	if _, err := c.log.Append(ev); err != nil {
		return fmt.Errorf("recording tool result: %w", err)
	}
	return nil
}

// timeoutError marks a capability that exceeded its declared bound.
type timeoutError struct {
	bound time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("Timeout: execution exceeded the %s bound", e.bound)
}

// resultPayload renders an execution error for the log. Sandbox denials
// already carry their reason code; capability failures get a uniform
// prefix so the reasoning engine can tell them apart.
func resultPayload(err error) string {
	switch err.(type) {
	case *sandbox.Denial, *timeoutError:
		return err.Error()
	default:
		return "CapabilityFailure: " + err.Error()
	}
}
