// Package memory provides the durable conversation log.
//
// The log is append-only and strictly ordered: every event receives a
// monotonically increasing, gap-free sequence number at append time, and
// all reads observe events in sequence order.
package memory

import (
	"fmt"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// Log is the persistence interface for conversation events.
type Log interface {
	// Append assigns the next sequence number to ev, persists it
	// durably, and returns the assigned number. Appends are
	// linearized: concurrent callers receive distinct consecutive
	// sequence numbers with no gaps.
	Append(ev *v1alpha1.Event) (uint64, error)

	// All returns the full event log in sequence order.
	All() ([]v1alpha1.Event, error)

	// ByCategory returns the events of one category, order preserved.
	ByCategory(cat v1alpha1.Category) ([]v1alpha1.Event, error)

	// Stats returns the number of tool_call events per category.
	// Every category appears in the result, zero-valued or not.
	Stats() (map[v1alpha1.Category]int, error)

	// Clear removes every event and resets the sequence counter to
	// zero. Clearing an empty log is a no-op.
	Clear() error

	// Close releases any resources held by the log.
	Close() error
}

// Common sentinel errors.
var (
	// ErrCorrupted signals that persisted records could not be
	// decoded on startup recovery. The process must refuse to serve.
	ErrCorrupted = fmt.Errorf("event log corrupted")
)

// newStats returns a zero-initialized stats map covering every category.
func newStats() map[v1alpha1.Category]int {
	stats := make(map[v1alpha1.Category]int, len(v1alpha1.Categories))
	for _, cat := range v1alpha1.Categories {
		stats[cat] = 0
	}
	return stats
}
