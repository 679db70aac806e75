// Package v1alpha1 defines the Warden wire types shared by the server,
// the Go client, and the CLI.
package v1alpha1

import "time"

const (
	APIVersion = "warden.dev/v1alpha1"
)

// Role identifies who produced an event in the conversation log.
type Role string

const (
	RoleUser       Role = "user"
	RoleAgent      Role = "agent"
	RoleToolCall   Role = "tool_call"
	RoleToolResult Role = "tool_result"
)

// Category classifies a tool. The set is closed: every tool belongs to
// exactly one of the six categories, and user/agent events carry the
// sentinel CategoryOther.
type Category string

const (
	CategoryFiles    Category = "files"
	CategoryTerminal Category = "terminal"
	CategoryBrowser  Category = "browser"
	CategorySystem   Category = "system"
	CategoryUtility  Category = "utility"
	CategoryOther    Category = "other"
)

// Categories lists every valid category in stable order. Stats responses
// include all of them, zero-valued or not.
var Categories = []Category{
	CategoryFiles,
	CategoryTerminal,
	CategoryBrowser,
	CategorySystem,
	CategoryUtility,
	CategoryOther,
}

// ValidCategory reports whether c is a member of the closed category set.
func ValidCategory(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ResultStatus is the outcome of a tool invocation.
type ResultStatus string

const (
	StatusOK    ResultStatus = "ok"
	StatusError ResultStatus = "error"
)

// Event is one immutable record in the conversation log.
//
// Sequence numbers are assigned at append time, start at 1, and are
// strictly increasing with no gaps for the lifetime of the store
// (until an explicit clear resets the counter).
type Event struct {
	Sequence  uint64       `json:"sequence"`
	Timestamp time.Time    `json:"timestamp"`
	Role      Role         `json:"role"`
	Category  Category     `json:"category"`
	ToolName  string       `json:"toolName,omitempty"`
	CallID    string       `json:"callId,omitempty"`
	Payload   string       `json:"payload"`
	Status    ResultStatus `json:"status,omitempty"`
}

// -------------------------------------------------------
// Chat
// -------------------------------------------------------

// ChatRequest is the body of POST /api/v1alpha1/chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply to a chat request.
type ChatResponse struct {
	Response   string `json:"response"`
	EventCount int    `json:"eventCount"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// -------------------------------------------------------
// Memory
// -------------------------------------------------------

// StatsResponse maps every category to its tool invocation count.
// Counts cover tool_call events only.
type StatsResponse struct {
	Stats map[Category]int `json:"stats"`
}

// ClearResponse acknowledges a memory clear.
type ClearResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// -------------------------------------------------------
// Tools
// -------------------------------------------------------

// ToolInfo describes one registered tool in the inventory endpoint.
type ToolInfo struct {
	Name        string   `json:"name"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Required    []string `json:"required,omitempty"`
}
