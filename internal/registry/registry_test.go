package registry

import (
	"context"
	"testing"
	"time"

	v1alpha1 "github.com/wardenhq/warden/pkg/apis/v1alpha1"
)

func noop(_ context.Context, _ map[string]any) (string, error) {
	return "", nil
}

func newTestTool(name string) *Tool {
	return &Tool{
		Name:     name,
		Category: v1alpha1.CategoryUtility,
		Schema: Schema{
			Properties: map[string]Property{
				"value": {Type: "string"},
			},
		},
		Execute: noop,
	}
}

func TestNewAndLookup(t *testing.T) {
	reg, err := New(time.Minute, newTestTool("alpha"), newTestTool("beta"))
	if err != nil {
		t.Fatalf("unexpected error on New: %v", err)
	}

	if reg.Count() != 2 {
		t.Errorf("expected 2 tools, got %d", reg.Count())
	}
	if tool := reg.Lookup("alpha"); tool == nil || tool.Name != "alpha" {
		t.Errorf("expected to find alpha, got %v", tool)
	}
	if tool := reg.Lookup("missing"); tool != nil {
		t.Errorf("expected nil for unknown name, got %v", tool)
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New(time.Minute, newTestTool("dup"), newTestTool("dup"))
	if err == nil {
		t.Fatal("expected error for duplicate tool name, got nil")
	}
}

func TestNewRejectsMissingExecute(t *testing.T) {
	bad := newTestTool("broken")
	bad.Execute = nil

	_, err := New(time.Minute, bad)
	if err == nil {
		t.Fatal("expected error for tool without capability function, got nil")
	}
}

func TestNewRejectsUnknownCategory(t *testing.T) {
	bad := newTestTool("misfiled")
	bad.Category = "network"

	_, err := New(time.Minute, bad)
	if err == nil {
		t.Fatal("expected error for unknown category, got nil")
	}
}

func TestNewRejectsUndeclaredRequired(t *testing.T) {
	bad := newTestTool("incoherent")
	bad.Schema.Required = []string{"ghost"}

	_, err := New(time.Minute, bad)
	if err == nil {
		t.Fatal("expected error for undeclared required argument, got nil")
	}
}

func TestNewRejectsNonStringPathProperty(t *testing.T) {
	bad := newTestTool("incoherent")
	bad.Schema.Properties = map[string]Property{
		"path": {Type: "integer", Path: true},
	}

	_, err := New(time.Minute, bad)
	if err == nil {
		t.Fatal("expected error for non-string path argument, got nil")
	}
}

func TestNewRejectsNonStringCommandProperty(t *testing.T) {
	bad := newTestTool("incoherent")
	bad.Schema.Properties = map[string]Property{
		"command": {Type: "boolean", Command: true},
	}

	_, err := New(time.Minute, bad)
	if err == nil {
		t.Fatal("expected error for non-string command argument, got nil")
	}
}

func TestTimeoutFallsBackToDefault(t *testing.T) {
	slow := newTestTool("slow")
	slow.Timeout = 5 * time.Minute
	fast := newTestTool("fast")

	reg, err := New(30*time.Second, slow, fast)
	if err != nil {
		t.Fatalf("unexpected error on New: %v", err)
	}

	if got := reg.Timeout(slow); got != 5*time.Minute {
		t.Errorf("expected per-tool timeout 5m, got %s", got)
	}
	if got := reg.Timeout(fast); got != 30*time.Second {
		t.Errorf("expected default timeout 30s, got %s", got)
	}
}

func TestNamesSorted(t *testing.T) {
	reg, err := New(time.Minute, newTestTool("zeta"), newTestTool("alpha"), newTestTool("mid"))
	if err != nil {
		t.Fatalf("unexpected error on New: %v", err)
	}

	names := reg.Names()
	want := []string{"alpha", "mid", "zeta"}
	if len(names) != len(want) {
		t.Fatalf("expected %d names, got %d", len(want), len(names))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("expected names[%d] = %s, got %s", i, name, names[i])
		}
	}
}
