// Package classify maps object names to the groups they belong to.
//
// A [Classifier] is compiled from an ordered list of patterns. The position
// of a pattern in the list is its group number. Every pattern is anchored at
// the start of the name, and a name may match several patterns:
//
//	c := classify.Compile([]string{"enemy_.*", "enemy_boss", "pickup_"})
//	c.Classify("enemy_boss")  // [0 1]
//	c.Classify("pickup_ammo") // [2]
//	c.Classify("player")      // nil
//
// Patterns use RE2 syntax. A pattern that fails to compile is replaced by a
// pattern that matches nothing and the failure is logged, so one bad entry
// never disables the others.
package classify

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// NeverMatch is the pattern substituted for entries that fail to compile.
// It is a character class containing no code point.
const NeverMatch = `[^\x00-\x{10FFFF}]`

// Option configures Compile.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report invalid patterns.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Classifier is a compiled, read-only pattern list. It is safe for
// concurrent use.
type Classifier struct {
	patterns []string
	compiled []*regexp.Regexp
	invalid  []int
}

// Compile builds a Classifier from patterns. It never fails: invalid
// patterns are replaced with [NeverMatch] and reported through the logger.
func Compile(patterns []string, opts ...Option) *Classifier {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Classifier{
		patterns: append([]string(nil), patterns...),
		compiled: make([]*regexp.Regexp, len(patterns)),
	}
	for i, p := range patterns {
		re, err := compile(p)
		if err != nil {
			o.logger.Error("classify: invalid group pattern, group will match nothing",
				"group", i, "pattern", p, "error", err)
			re = regexp.MustCompile(NeverMatch)
			c.invalid = append(c.invalid, i)
		}
		c.compiled[i] = re
	}
	return c
}

// compile checks p on its own before anchoring it. Wrapped first, an
// unbalanced pattern such as `a)|(b` would close the group and leave an
// unanchored branch.
func compile(p string) (*regexp.Regexp, error) {
	if _, err := regexp.Compile(p); err != nil {
		return nil, err
	}
	return regexp.Compile(anchor(p))
}

// anchor wraps p so it must match at the start of the input. The group keeps
// alternations inside p from escaping the anchor.
func anchor(p string) string {
	return `^(?:` + p + `)`
}

// Classify returns every group number whose pattern matches name, in
// ascending order. It returns nil when nothing matches.
func (c *Classifier) Classify(name string) []int {
	var groups []int
	for i, re := range c.compiled {
		if re.MatchString(name) {
			groups = append(groups, i)
		}
	}
	return groups
}

// Matches reports whether name belongs to group. Out-of-range groups never
// match.
func (c *Classifier) Matches(name string, group int) bool {
	if group < 0 || group >= len(c.compiled) {
		return false
	}
	return c.compiled[group].MatchString(name)
}

// Len returns the number of groups.
func (c *Classifier) Len() int { return len(c.compiled) }

// Patterns returns the patterns as supplied to Compile.
func (c *Classifier) Patterns() []string {
	return append([]string(nil), c.patterns...)
}

// Invalid returns the group numbers whose pattern failed to compile.
func (c *Classifier) Invalid() []int {
	return append([]int(nil), c.invalid...)
}

func (c *Classifier) String() string {
	var b strings.Builder
	b.WriteString("Classifier(")
	for i, p := range c.patterns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d:%q", i, p)
	}
	b.WriteString(")")
	return b.String()
}
