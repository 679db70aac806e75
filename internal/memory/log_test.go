package memory

import (
	"path/filepath"
	"sync"
	"testing"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

// newTestEvent builds a tool_call event for the given category.
func newTestEvent(role v1alpha1.Role, cat v1alpha1.Category) *v1alpha1.Event {
	return &v1alpha1.Event{
		Role:     role,
		Category: cat,
		ToolName: "test_tool",
		Payload:  "{}",
	}
}

// eachLog runs fn once per Log implementation.
func eachLog(t *testing.T, fn func(t *testing.T, l Log)) {
	t.Run("mem", func(t *testing.T) {
		l := NewMemLog()
		defer l.Close()
		fn(t, l)
	})
	t.Run("bolt", func(t *testing.T) {
		l, err := NewBoltLog(filepath.Join(t.TempDir(), "test.db"))
		if err != nil {
			t.Fatalf("unexpected error opening bolt log: %v", err)
		}
		defer l.Close()
		fn(t, l)
	})
}

func TestAppendAssignsSequence(t *testing.T) {
	eachLog(t, func(t *testing.T, l Log) {
		for want := uint64(1); want <= 5; want++ {
			seq, err := l.Append(newTestEvent(v1alpha1.RoleUser, v1alpha1.CategoryOther))
			if err != nil {
				t.Fatalf("unexpected error on Append: %v", err)
			}
			if seq != want {
				t.Errorf("expected sequence %d, got %d", want, seq)
			}
		}
	})
}

func TestAppendSetsTimestamp(t *testing.T) {
	eachLog(t, func(t *testing.T, l Log) {
		ev := newTestEvent(v1alpha1.RoleUser, v1alpha1.CategoryOther)
		if _, err := l.Append(ev); err != nil {
			t.Fatalf("unexpected error on Append: %v", err)
		}

		events, err := l.All()
		if err != nil {
			t.Fatalf("unexpected error on All: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		if events[0].Timestamp.IsZero() {
			t.Error("expected a non-zero timestamp")
		}
	})
}

func TestConcurrentAppendsAreGapFree(t *testing.T) {
	const n = 50

	eachLog(t, func(t *testing.T, l Log) {
		var wg sync.WaitGroup
		seqs := make(chan uint64, n)

		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				seq, err := l.Append(newTestEvent(v1alpha1.RoleToolCall, v1alpha1.CategoryFiles))
				if err != nil {
					t.Errorf("unexpected error on Append: %v", err)
					return
				}
				seqs <- seq
			}()
		}
		wg.Wait()
		close(seqs)

		seen := make(map[uint64]bool, n)
		for seq := range seqs {
			if seen[seq] {
				t.Errorf("sequence %d assigned twice", seq)
			}
			seen[seq] = true
		}
		for want := uint64(1); want <= n; want++ {
			if !seen[want] {
				t.Errorf("sequence %d never assigned", want)
			}
		}

		events, err := l.All()
		if err != nil {
			t.Fatalf("unexpected error on All: %v", err)
		}
		if len(events) != n {
			t.Fatalf("expected %d events, got %d", n, len(events))
		}
		for i, ev := range events {
			if ev.Sequence != uint64(i+1) {
				t.Errorf("event %d has sequence %d", i, ev.Sequence)
			}
		}
	})
}

func TestByCategory(t *testing.T) {
	eachLog(t, func(t *testing.T, l Log) {
		cats := []v1alpha1.Category{
			v1alpha1.CategoryFiles,
			v1alpha1.CategoryTerminal,
			v1alpha1.CategoryFiles,
			v1alpha1.CategoryBrowser,
		}
		for _, cat := range cats {
			if _, err := l.Append(newTestEvent(v1alpha1.RoleToolCall, cat)); err != nil {
				t.Fatalf("unexpected error on Append: %v", err)
			}
		}

		files, err := l.ByCategory(v1alpha1.CategoryFiles)
		if err != nil {
			t.Fatalf("unexpected error on ByCategory: %v", err)
		}
		if len(files) != 2 {
			t.Fatalf("expected 2 files events, got %d", len(files))
		}
		if files[0].Sequence != 1 || files[1].Sequence != 3 {
			t.Errorf("expected sequences 1 and 3, got %d and %d", files[0].Sequence, files[1].Sequence)
		}

		system, err := l.ByCategory(v1alpha1.CategorySystem)
		if err != nil {
			t.Fatalf("unexpected error on ByCategory: %v", err)
		}
		if len(system) != 0 {
			t.Errorf("expected no system events, got %d", len(system))
		}
	})
}

func TestStatsCountsToolCallsOnly(t *testing.T) {
	eachLog(t, func(t *testing.T, l Log) {
		appends := []struct {
			role v1alpha1.Role
			cat  v1alpha1.Category
		}{
			{v1alpha1.RoleUser, v1alpha1.CategoryOther},
			{v1alpha1.RoleToolCall, v1alpha1.CategoryFiles},
			{v1alpha1.RoleToolResult, v1alpha1.CategoryFiles},
			{v1alpha1.RoleToolCall, v1alpha1.CategoryFiles},
			{v1alpha1.RoleToolResult, v1alpha1.CategoryFiles},
			{v1alpha1.RoleToolCall, v1alpha1.CategoryTerminal},
			{v1alpha1.RoleToolResult, v1alpha1.CategoryTerminal},
			{v1alpha1.RoleAgent, v1alpha1.CategoryOther},
		}
		for _, a := range appends {
			if _, err := l.Append(newTestEvent(a.role, a.cat)); err != nil {
				t.Fatalf("unexpected error on Append: %v", err)
			}
		}

		stats, err := l.Stats()
		if err != nil {
			t.Fatalf("unexpected error on Stats: %v", err)
		}

		// Every category must be present, zero-valued or not.
		if len(stats) != len(v1alpha1.Categories) {
			t.Fatalf("expected %d categories, got %d", len(v1alpha1.Categories), len(stats))
		}
		for _, cat := range v1alpha1.Categories {
			if _, ok := stats[cat]; !ok {
				t.Errorf("category %s missing from stats", cat)
			}
		}

		if stats[v1alpha1.CategoryFiles] != 2 {
			t.Errorf("expected 2 files calls, got %d", stats[v1alpha1.CategoryFiles])
		}
		if stats[v1alpha1.CategoryTerminal] != 1 {
			t.Errorf("expected 1 terminal call, got %d", stats[v1alpha1.CategoryTerminal])
		}
		if stats[v1alpha1.CategoryOther] != 0 {
			t.Errorf("expected 0 other calls, got %d", stats[v1alpha1.CategoryOther])
		}
	})
}

func TestClearResetsSequence(t *testing.T) {
	eachLog(t, func(t *testing.T, l Log) {
		for i := 0; i < 3; i++ {
			if _, err := l.Append(newTestEvent(v1alpha1.RoleUser, v1alpha1.CategoryOther)); err != nil {
				t.Fatalf("unexpected error on Append: %v", err)
			}
		}

		if err := l.Clear(); err != nil {
			t.Fatalf("unexpected error on Clear: %v", err)
		}

		events, err := l.All()
		if err != nil {
			t.Fatalf("unexpected error on All: %v", err)
		}
		if len(events) != 0 {
			t.Fatalf("expected empty log after Clear, got %d events", len(events))
		}

		// Numbering restarts at 1.
		seq, err := l.Append(newTestEvent(v1alpha1.RoleUser, v1alpha1.CategoryOther))
		if err != nil {
			t.Fatalf("unexpected error on Append after Clear: %v", err)
		}
		if seq != 1 {
			t.Errorf("expected sequence 1 after Clear, got %d", seq)
		}
	})
}

func TestClearEmptyLog(t *testing.T) {
	eachLog(t, func(t *testing.T, l Log) {
		if err := l.Clear(); err != nil {
			t.Fatalf("unexpected error clearing empty log: %v", err)
		}
		if err := l.Clear(); err != nil {
			t.Fatalf("unexpected error clearing twice: %v", err)
		}
	})
}

func TestBoltReopenContinuesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	l, err := NewBoltLog(path)
	if err != nil {
		t.Fatalf("unexpected error opening bolt log: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := l.Append(newTestEvent(v1alpha1.RoleToolCall, v1alpha1.CategoryUtility)); err != nil {
			t.Fatalf("unexpected error on Append: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error on Close: %v", err)
	}

	reopened, err := NewBoltLog(path)
	if err != nil {
		t.Fatalf("unexpected error reopening bolt log: %v", err)
	}
	defer reopened.Close()

	events, err := reopened.All()
	if err != nil {
		t.Fatalf("unexpected error on All after reopen: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after reopen, got %d", len(events))
	}

	seq, err := reopened.Append(newTestEvent(v1alpha1.RoleToolCall, v1alpha1.CategoryUtility))
	if err != nil {
		t.Fatalf("unexpected error on Append after reopen: %v", err)
	}
	if seq != 4 {
		t.Errorf("expected sequence 4 after reopen, got %d", seq)
	}
}
