package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/registry"
	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// AnthropicEngine is the default Engine implementation, backed by the
// Anthropic Messages API. It is stateless between calls: each Decide
// rebuilds the model conversation from the ordered event history, so
// the log stays the single source of truth.
type AnthropicEngine struct {
	client    *anthropic.Client
	registry  *registry.Registry
	model     anthropic.Model
	maxTokens int64
	system    string
	logger    *zap.Logger
}

// NewAnthropicEngine creates an engine using the API key from the
// environment (the SDK reads ANTHROPIC_API_KEY).
func NewAnthropicEngine(reg *registry.Registry, cfg *config.AgentConfig, logger *zap.Logger) *AnthropicEngine {
	client := anthropic.NewClient()
	return &AnthropicEngine{
		client:    &client,
		registry:  reg,
		model:     anthropic.Model(cfg.Model),
		maxTokens: int64(cfg.MaxTokens),
		system:    cfg.SystemPrompt,
		logger:    logger,
	}
}

func (e *AnthropicEngine) Decide(ctx context.Context, history []v1alpha1.Event) (*Decision, error) {
	params := anthropic.MessageNewParams{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		Messages:  buildMessages(history),
		Tools:     e.tools(),
	}
	if e.system != "" {
		params.System = []anthropic.TextBlockParam{{Text: e.system}}
	}

	msg, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("messages API: %w", err)
	}

	e.logger.Debug("reasoning step completed",
		zap.String("stopReason", string(msg.StopReason)),
		zap.Int64("tokensIn", msg.Usage.InputTokens),
		zap.Int64("tokensOut", msg.Usage.OutputTokens),
	)

	decision := &Decision{}
	var texts []string
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				texts = append(texts, v.Text)
			}
		case anthropic.ToolUseBlock:
			var args map[string]any
			if raw := v.JSON.Input.Raw(); raw != "" {
				if err := json.Unmarshal([]byte(raw), &args); err != nil {
					return nil, fmt.Errorf("decoding tool input for %s: %w", v.Name, err)
				}
			}
			decision.Calls = append(decision.Calls, ToolCall{
				ID:   v.ID,
				Name: v.Name,
				Args: args,
			})
		}
	}
	decision.Answer = strings.Join(texts, "\n")
	return decision, nil
}

// buildMessages converts the event log into SDK messages. Consecutive
// tool_call events collapse into a single assistant message of tool_use
// blocks, and consecutive tool_result events into a single user message
// of tool_result blocks, matching what the API emitted originally.
func buildMessages(history []v1alpha1.Event) []anthropic.MessageParam {
	var (
		msgs    []anthropic.MessageParam
		calls   []anthropic.ContentBlockParamUnion
		results []anthropic.ContentBlockParamUnion
	)

	flush := func() {
		if len(calls) > 0 {
			msgs = append(msgs, anthropic.NewAssistantMessage(calls...))
			calls = nil
		}
		if len(results) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(results...))
			results = nil
		}
	}

	for _, ev := range history {
		switch ev.Role {
		case v1alpha1.RoleUser:
			flush()
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(ev.Payload)))
		case v1alpha1.RoleAgent:
			flush()
			if ev.Payload != "" {
				msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(ev.Payload)))
			}
		case v1alpha1.RoleToolCall:
			// A new call batch after results flushes the results first.
			if len(results) > 0 {
				flush()
			}
			var args map[string]any
			_ = json.Unmarshal([]byte(ev.Payload), &args)
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, anthropic.NewToolUseBlock(ev.CallID, args, ev.ToolName))
		case v1alpha1.RoleToolResult:
			// Results follow their calls; flush the call batch once
			// the first result arrives.
			if len(calls) > 0 {
				msgs = append(msgs, anthropic.NewAssistantMessage(calls...))
				calls = nil
			}
			results = append(results, anthropic.NewToolResultBlock(ev.CallID, ev.Payload, ev.Status == v1alpha1.StatusError))
		}
	}
	flush()
	return msgs
}

// tools renders the registry as API tool declarations.
func (e *AnthropicEngine) tools() []anthropic.ToolUnionParam {
	defs := e.registry.All()
	out := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, t := range defs {
		props := make(map[string]any, len(t.Schema.Properties))
		for name, p := range t.Schema.Properties {
			prop := map[string]any{"type": p.Type}
			if p.Description != "" {
				prop["description"] = p.Description
			}
			props[name] = prop
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: props,
				Required:   t.Schema.Required,
			},
		}})
	}
	return out
}
