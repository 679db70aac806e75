package cli

import (
	"strings"
	"testing"
)

func TestTruncateFoldsWhitespace(t *testing.T) {
	got := truncate("a\nb\tc", 60)
	if got != "a b c" {
		t.Errorf("expected folded string, got %q", got)
	}
}

func TestTruncateShortensLongInput(t *testing.T) {
	got := truncate(strings.Repeat("x", 100), 10)
	if got != "xxxxxxx..." {
		t.Errorf("unexpected truncation %q", got)
	}
}

func TestTruncateTinyMax(t *testing.T) {
	for _, max := range []int{0, 1, 2, 3} {
		got := truncate("abcdefgh", max)
		if !strings.HasSuffix(got, "...") {
			t.Errorf("max %d: expected ellipsis suffix, got %q", max, got)
		}
	}
}
