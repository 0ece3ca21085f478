package classify

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestClassifyOverlapping(t *testing.T) {
	c := Compile([]string{"enemy_.*", "enemy_boss", "pickup_"})

	tests := []struct {
		name string
		want []int
	}{
		{"enemy_boss", []int{0, 1}},
		{"enemy_grunt", []int{0}},
		{"enemy_boss_2", []int{0, 1}}, // anchored at the start only
		{"pickup_ammo", []int{2}},
		{"player", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, c.Classify(tt.name)); diff != "" {
				t.Errorf("Classify(%q) mismatch (-want +got):\n%s", tt.name, diff)
			}
		})
	}
}

func TestClassifyAnchoredAtStart(t *testing.T) {
	c := Compile([]string{"boss", "a|b"})

	if got := c.Classify("final_boss"); got != nil {
		t.Errorf("Classify(final_boss) = %v; pattern must match at the start", got)
	}
	// The alternation stays inside the anchor: "xb" must not match "a|b".
	if got := c.Classify("xb"); got != nil {
		t.Errorf("Classify(xb) = %v, want nil", got)
	}
	if got := c.Classify("bravo"); !cmp.Equal(got, []int{1}) {
		t.Errorf("Classify(bravo) = %v, want [1]", got)
	}
}

func TestCompileSubstitutesInvalidPatterns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	c := Compile([]string{"ok_.*", "bad_(", "fine", "[z-a]"}, WithLogger(logger))

	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4", c.Len())
	}
	if diff := cmp.Diff([]int{1, 3}, c.Invalid()); diff != "" {
		t.Errorf("Invalid mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"bad_(", "bad_", "[z-a]", "z", ""} {
		if c.Matches(name, 1) || c.Matches(name, 3) {
			t.Errorf("substituted pattern matched %q", name)
		}
	}
	if got := c.Classify("ok_1"); !cmp.Equal(got, []int{0}) {
		t.Errorf("Classify(ok_1) = %v, want [0]", got)
	}
	if got := c.Classify("fine"); !cmp.Equal(got, []int{2}) {
		t.Errorf("Classify(fine) = %v, want [2]", got)
	}

	out := buf.String()
	if strings.Count(out, "level=ERROR") != 2 {
		t.Errorf("expected two error logs, got:\n%s", out)
	}
	if !strings.Contains(out, "group=1") || !strings.Contains(out, "group=3") {
		t.Errorf("log should name the failing groups:\n%s", out)
	}
}

func TestUnbalancedPatternCannotEscapeAnchor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	// Both close the anchor's group when wrapped, yet neither parses alone.
	c := Compile([]string{"a)|(b", "x)(", "ok"}, WithLogger(logger))

	if diff := cmp.Diff([]int{0, 1}, c.Invalid()); diff != "" {
		t.Errorf("Invalid mismatch (-want +got):\n%s", diff)
	}
	for _, name := range []string{"a", "b", "xb", "zzzb", "x", "x)(", "a)|(b"} {
		if got := c.Classify(name); got != nil {
			t.Errorf("Classify(%q) = %v, want nil", name, got)
		}
	}
	if got := c.Classify("okay"); !cmp.Equal(got, []int{2}) {
		t.Errorf("Classify(okay) = %v, want [2]", got)
	}
	if n := strings.Count(buf.String(), "level=ERROR"); n != 2 {
		t.Errorf("got %d error logs, want 2:\n%s", n, buf.String())
	}
}

func TestNeverMatchCompiles(t *testing.T) {
	c := Compile([]string{NeverMatch})
	if len(c.Invalid()) != 0 {
		t.Fatal("NeverMatch itself must compile")
	}
	for _, name := range []string{"", "a", "\x00", "\xff", "日本"} {
		if c.Matches(name, 0) {
			t.Errorf("NeverMatch matched %q", name)
		}
	}
}

func TestMatchesOutOfRange(t *testing.T) {
	c := Compile([]string{".*"})
	if c.Matches("x", -1) || c.Matches("x", 1) {
		t.Error("out-of-range groups must not match")
	}
}

func TestPatternsAreCopied(t *testing.T) {
	in := []string{"a", "b"}
	c := Compile(in)
	in[0] = "changed"
	got := c.Patterns()
	got[1] = "changed"
	if diff := cmp.Diff([]string{"a", "b"}, c.Patterns()); diff != "" {
		t.Errorf("Patterns mismatch (-want +got):\n%s", diff)
	}
	if s := c.String(); s != `Classifier(0:"a", 1:"b")` {
		t.Errorf("String = %s", s)
	}
}

func TestCompileEmpty(t *testing.T) {
	c := Compile(nil)
	if c.Len() != 0 || c.Classify("anything") != nil {
		t.Errorf("empty classifier: Len = %d", c.Len())
	}
}
