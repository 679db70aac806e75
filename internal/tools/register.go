// Package tools implements the built-in capability functions: filesystem
// access, shell execution, network requests, browser automation, and
// small utilities. Every function receives sandbox-approved, normalized
// arguments; path arguments arrive as resolved absolute paths inside
// the workspace root.
package tools

import (
	"time"

	"go.uber.org/zap"

	"github.com/wardenhq/warden/internal/registry"
)

// maxOutput caps tool result payloads so a single read or page fetch
// cannot flood the event log.
const maxOutput = 48_000

const truncationNotice = "\n-- output truncated --"

// Defaults returns the full built-in tool set. workspaceRoot is the
// resolved sandbox root; it is used as the default working directory
// for shell commands and to confine archive member lists, which pass
// through the schema as arrays rather than path-flagged strings.
func Defaults(workspaceRoot string, browser *Browser, logger *zap.Logger) []*registry.Tool {
	all := []*registry.Tool{}
	all = append(all, fileTools(workspaceRoot)...)
	all = append(all, terminalTools(workspaceRoot, logger)...)
	all = append(all, systemTools()...)
	all = append(all, utilityTools()...)
	all = append(all, browserTools(browser)...)
	return all
}

func clamp(s string) string {
	if len(s) <= maxOutput {
		return s
	}
	return s[:maxOutput] + truncationNotice
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
