package memory

import (
	"sync"
	"time"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// MemLog is a thread-safe, in-memory Log. Useful for unit tests and
// ephemeral runs where durability is not required.
type MemLog struct {
	mu      sync.RWMutex
	events  []v1alpha1.Event
	nextSeq uint64
}

// NewMemLog creates a ready-to-use in-memory log.
func NewMemLog() *MemLog {
	return &MemLog{}
}

func (m *MemLog) Append(ev *v1alpha1.Event) (uint64, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextSeq++
	ev.Sequence = m.nextSeq
	m.events = append(m.events, *ev)
	return ev.Sequence, nil
}

func (m *MemLog) All() ([]v1alpha1.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]v1alpha1.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *MemLog) ByCategory(cat v1alpha1.Category) ([]v1alpha1.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []v1alpha1.Event
	for _, ev := range m.events {
		if ev.Category == cat {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *MemLog) Stats() (map[v1alpha1.Category]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := newStats()
	for _, ev := range m.events {
		if ev.Role == v1alpha1.RoleToolCall {
			stats[ev.Category]++
		}
	}
	return stats, nil
}

func (m *MemLog) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = nil
	m.nextSeq = 0
	return nil
}

func (m *MemLog) Close() error {
	return nil
}
