// Package nearest keeps one nearest-neighbor index per group of objects.
//
// Group membership comes from matching an object's name against an ordered
// list of patterns (see package classify). Objects enter and exit through
// [Index.Enter] and [Index.Exit]; each call is routed to every group the
// name belongs to. Queries name a group by its position in the pattern list.
//
// The index is single-owner: it holds no locks and must not be mutated
// concurrently. It never resolves identifiers; it only stores and compares
// them.
//
//	idx := nearest.New[float64, string](nearest.Config{
//	    Dims:   2,
//	    Groups: []string{"enemy_.*", "enemy_boss"},
//	})
//	idx.Enter("enemy_boss", []float64{1, 0}, "/root/level/enemy_boss")
//	idx.Query([]float64{0, 0}, 1, 1) // ["/root/level/enemy_boss"]
package nearest

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haivivi/nearest/pkg/classify"
	"github.com/haivivi/nearest/pkg/kdtree"
)

// ErrGroupNotFound is returned when a group number is outside
// [0, Index.Groups()).
var ErrGroupNotFound = errors.New("nearest: group not found")

// Config configures a new [Index].
type Config struct {
	// Dims is the number of coordinates per point. Required.
	Dims int

	// Groups is the ordered pattern list. Its order defines group numbers.
	Groups []string

	// Capacity is the leaf bucket size of each group's tree.
	// Default: kdtree.DefaultCapacity.
	Capacity int

	// Logger receives configuration and lookup diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Index owns one kd-tree per group plus the classifier that routes names to
// groups.
type Index[A kdtree.Float, T comparable] struct {
	dims       int
	capacity   int
	logger     *slog.Logger
	classifier *classify.Classifier
	trees      []*kdtree.Tree[A, T]
}

// New creates an index with one empty group per pattern. Panics if
// cfg.Dims is not positive.
func New[A kdtree.Float, T comparable](cfg Config) *Index[A, T] {
	if cfg.Dims <= 0 {
		panic("nearest: Config.Dims must be positive")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idx := &Index[A, T]{
		dims:     cfg.Dims,
		capacity: cfg.Capacity,
		logger:   logger,
	}
	idx.Reconfigure(cfg.Groups)
	return idx
}

// Reconfigure replaces the pattern list. All membership is discarded; the
// caller re-feeds the current population afterwards.
func (x *Index[A, T]) Reconfigure(groups []string) {
	x.classifier = classify.Compile(groups, classify.WithLogger(x.logger))
	x.trees = make([]*kdtree.Tree[A, T], x.classifier.Len())
	for i := range x.trees {
		x.trees[i] = kdtree.New[A, T](kdtree.Config{Dims: x.dims, Capacity: x.capacity})
	}
}

// Enter adds id at point to every group name belongs to and returns the
// number of groups it was added to. Names matching no group are dropped.
// A malformed point is logged and skipped for every group.
func (x *Index[A, T]) Enter(name string, point []A, id T) int {
	groups := x.classifier.Classify(name)
	if len(groups) == 0 {
		return 0
	}
	if err := kdtree.Validate(point, x.dims); err != nil {
		x.logger.Warn("nearest: skipping entry", "name", name, "id", id, "error", err)
		return 0
	}
	for _, g := range groups {
		_ = x.trees[g].Add(point, id)
	}
	return len(groups)
}

// Exit removes id at point from every group name belongs to and returns the
// number of entries removed. Classification is recomputed, so the name must
// be the one used on Enter. Unknown entries are a no-op.
func (x *Index[A, T]) Exit(name string, point []A, id T) int {
	n := 0
	for _, g := range x.classifier.Classify(name) {
		n += x.trees[g].Remove(point, id)
	}
	return n
}

// Move re-indexes id from one position to another immediately, so the next
// query sees the new position. A malformed target is logged and the entry
// stays at from. Move reports whether the move was applied.
func (x *Index[A, T]) Move(name string, from, to []A, id T) bool {
	if err := kdtree.Validate(to, x.dims); err != nil {
		x.logger.Warn("nearest: rejecting move", "name", name, "id", id, "error", err)
		return false
	}
	x.Exit(name, from, id)
	x.Enter(name, to, id)
	return true
}

// Nearest returns a lazy query over group, nearest first.
func (x *Index[A, T]) Nearest(point []A, group int) (*kdtree.Query[A, T], error) {
	if group < 0 || group >= len(x.trees) {
		return nil, fmt.Errorf("%w: %d (have %d)", ErrGroupNotFound, group, len(x.trees))
	}
	return x.trees[group].Nearest(point)
}

// Neighbors returns up to k entries of group nearest to point with their
// squared distances. A negative k returns the whole group. Lookup failures
// are logged and yield an empty result.
func (x *Index[A, T]) Neighbors(point []A, group, k int) []kdtree.Neighbor[A, T] {
	q, err := x.Nearest(point, group)
	if err != nil {
		x.logger.Debug("nearest: query failed", "group", group, "error", err)
		return nil
	}
	return q.Take(k)
}

// Query is Neighbors without the distances.
func (x *Index[A, T]) Query(point []A, group, k int) []T {
	nbs := x.Neighbors(point, group, k)
	if len(nbs) == 0 {
		return nil
	}
	ids := make([]T, len(nbs))
	for i, nb := range nbs {
		ids[i] = nb.Item
	}
	return ids
}

// Groups returns the number of configured groups.
func (x *Index[A, T]) Groups() int { return len(x.trees) }

// Dims returns the number of coordinates per point.
func (x *Index[A, T]) Dims() int { return x.dims }

// Len returns the number of entries in group, or 0 for an unknown group.
func (x *Index[A, T]) Len(group int) int {
	if group < 0 || group >= len(x.trees) {
		return 0
	}
	return x.trees[group].Len()
}

// Patterns returns the configured pattern list.
func (x *Index[A, T]) Patterns() []string { return x.classifier.Patterns() }

// Classify returns the groups name belongs to.
func (x *Index[A, T]) Classify(name string) []int { return x.classifier.Classify(name) }

// String describes every group's pattern and size. It is meant for logs, not
// for parsing.
func (x *Index[A, T]) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nearest%dD(", x.dims)
	for i, p := range x.classifier.Patterns() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%d:%q=%d", i, p, x.trees[i].Len())
	}
	b.WriteString(")")
	return b.String()
}
