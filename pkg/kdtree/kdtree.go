// Package kdtree provides a bucketed k-d tree for exact nearest-neighbor
// search over points with a fixed number of dimensions.
//
// Entries are (point, item) pairs. Several items may share a position, so
// removal matches on both the point and the item. Distances are squared
// Euclidean throughout; callers that need true distances take the square
// root themselves.
//
// A [Tree] is not safe for concurrent mutation. Queries returned by
// [Tree.Nearest] are lazy: each call to [Query.Next] does only the traversal
// needed to produce the next closest entry.
package kdtree

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Float is the coordinate type constraint.
type Float interface {
	~float32 | ~float64
}

// Sentinel errors.
var (
	// ErrDimensionMismatch is returned when a point does not have exactly
	// Config.Dims coordinates.
	ErrDimensionMismatch = errors.New("kdtree: dimension mismatch")

	// ErrNonFinite is returned when a point has a NaN or infinite coordinate.
	ErrNonFinite = errors.New("kdtree: non-finite coordinate")

	// ErrModified is reported by [Query.Err] when the tree was mutated after
	// the query was created.
	ErrModified = errors.New("kdtree: tree modified during query")
)

// DefaultCapacity is the default number of entries a leaf holds before it
// is split.
const DefaultCapacity = 16

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// Config configures a new [Tree].
type Config struct {
	// Dims is the number of coordinates per point. Required; must be positive.
	Dims int

	// Capacity is the maximum number of entries in a leaf bucket before it
	// splits. Leaves whose entries all share one position never split and may
	// exceed Capacity. Default: 16.
	Capacity int
}

func (c *Config) setDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
}

// Neighbor is a single result of a nearest-neighbor query.
type Neighbor[A Float, T comparable] struct {
	// Item is the stored item.
	Item T

	// Distance is the squared Euclidean distance to the query point.
	Distance A
}

// ---------------------------------------------------------------------------
// Node
// ---------------------------------------------------------------------------

// node is either a leaf bucket or an interior split. min and max bound every
// point routed through the node; they only grow, so after removals they may
// be looser than the points below, which keeps them valid lower bounds.
type node[A Float, T comparable] struct {
	min, max []A
	size     int

	// interior
	left, right *node[A, T]
	splitDim    int
	split       A

	// leaf
	points [][]A
	items  []T
}

func (n *node[A, T]) leaf() bool { return n.left == nil }

// child returns the subtree a point is routed to. Equal points always take
// the same route, so an exact (point, item) pair lives on a single path.
func (n *node[A, T]) child(p []A) *node[A, T] {
	if p[n.splitDim] > n.split {
		return n.right
	}
	return n.left
}

func (n *node[A, T]) extend(p []A) {
	if n.min == nil {
		n.min = slices.Clone(p)
		n.max = slices.Clone(p)
		return
	}
	for d, v := range p {
		if v < n.min[d] {
			n.min[d] = v
		}
		if v > n.max[d] {
			n.max[d] = v
		}
	}
}

func (n *node[A, T]) push(p []A, item T) {
	n.extend(p)
	n.size++
	n.points = append(n.points, p)
	n.items = append(n.items, item)
}

// splitLeaf turns an overfull leaf into an interior node, splitting on the
// widest dimension at the midpoint of the points' extent.
func (n *node[A, T]) splitLeaf() {
	dims := len(n.points[0])
	dim, lo, hi := -1, A(0), A(0)
	var width A
	for d := 0; d < dims; d++ {
		dlo, dhi := n.points[0][d], n.points[0][d]
		for _, p := range n.points[1:] {
			dlo = min(dlo, p[d])
			dhi = max(dhi, p[d])
		}
		if w := dhi - dlo; dim < 0 || w > width {
			dim, lo, hi, width = d, dlo, dhi, w
		}
	}
	if width == 0 {
		return
	}

	split := lo/2 + hi/2
	left, right := &node[A, T]{}, &node[A, T]{}
	for i, p := range n.points {
		if p[dim] > split {
			right.push(p, n.items[i])
		} else {
			left.push(p, n.items[i])
		}
	}
	if left.size == 0 || right.size == 0 {
		return
	}
	n.left, n.right = left, right
	n.splitDim, n.split = dim, split
	n.points, n.items = nil, nil
}

func (n *node[A, T]) has(p []A, item T) bool {
	for !n.leaf() {
		n = n.child(p)
	}
	for i, it := range n.items {
		if it == item && slices.Equal(n.points[i], p) {
			return true
		}
	}
	return false
}

// remove deletes the pair below n and collapses any interior node left with
// an empty side.
func (n *node[A, T]) remove(p []A, item T) bool {
	if n.leaf() {
		for i, it := range n.items {
			if it == item && slices.Equal(n.points[i], p) {
				n.points = slices.Delete(n.points, i, i+1)
				n.items = slices.Delete(n.items, i, i+1)
				n.size--
				return true
			}
		}
		return false
	}
	if !n.child(p).remove(p, item) {
		return false
	}
	n.size--
	switch {
	case n.left.size == 0:
		*n = *n.right
	case n.right.size == 0:
		*n = *n.left
	}
	return true
}

// boxDistance is the squared distance from p to the node's bounding box.
func (n *node[A, T]) boxDistance(p []A) A {
	var sum A
	for d, v := range p {
		var diff A
		switch {
		case v < n.min[d]:
			diff = n.min[d] - v
		case v > n.max[d]:
			diff = v - n.max[d]
		}
		sum += diff * diff
	}
	return sum
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// Tree is a bucketed k-d tree of (point, item) entries.
type Tree[A Float, T comparable] struct {
	cfg     Config
	root    *node[A, T]
	version uint64
}

// New creates an empty tree. Panics if cfg.Dims is not positive.
func New[A Float, T comparable](cfg Config) *Tree[A, T] {
	if cfg.Dims <= 0 {
		panic("kdtree: Config.Dims must be positive")
	}
	cfg.setDefaults()
	return &Tree[A, T]{cfg: cfg}
}

// Dims returns the number of coordinates per point.
func (t *Tree[A, T]) Dims() int { return t.cfg.Dims }

// Len returns the number of entries.
func (t *Tree[A, T]) Len() int {
	if t.root == nil {
		return 0
	}
	return t.root.size
}

// Validate reports whether point is usable as a coordinate in this tree.
func (t *Tree[A, T]) Validate(point []A) error {
	return Validate(point, t.cfg.Dims)
}

// Add inserts the entry. Adding a pair that is already present is a no-op.
// A malformed point is rejected and leaves the tree untouched.
func (t *Tree[A, T]) Add(point []A, item T) error {
	if err := t.Validate(point); err != nil {
		return err
	}
	if t.root == nil {
		t.root = &node[A, T]{}
	} else if t.root.has(point, item) {
		return nil
	}

	p := slices.Clone(point)
	n := t.root
	for !n.leaf() {
		n.extend(p)
		n.size++
		n = n.child(p)
	}
	n.push(p, item)
	if len(n.points) > t.cfg.Capacity {
		n.splitLeaf()
	}
	t.version++
	return nil
}

// Remove deletes the entry matching both point and item and returns the
// number of entries removed (0 or 1). Removing an absent entry is not an
// error.
func (t *Tree[A, T]) Remove(point []A, item T) int {
	if t.root == nil || t.Validate(point) != nil {
		return 0
	}
	if !t.root.remove(point, item) {
		return 0
	}
	if t.root.size == 0 {
		t.root = nil
	}
	t.version++
	return 1
}

// Contains reports whether the exact pair is present.
func (t *Tree[A, T]) Contains(point []A, item T) bool {
	if t.root == nil || t.Validate(point) != nil {
		return false
	}
	return t.root.has(point, item)
}

// Nearest returns a lazy query yielding entries in non-decreasing distance
// from point. An empty tree yields nothing.
func (t *Tree[A, T]) Nearest(point []A) (*Query[A, T], error) {
	if err := t.Validate(point); err != nil {
		return nil, err
	}
	q := &Query[A, T]{
		tree:    t,
		version: t.version,
		point:   slices.Clone(point),
	}
	if t.root != nil {
		q.pushNode(t.root)
	}
	return q, nil
}

// NearestN returns the n entries closest to point, nearest first. A negative
// n returns every entry.
func (t *Tree[A, T]) NearestN(point []A, n int) ([]Neighbor[A, T], error) {
	q, err := t.Nearest(point)
	if err != nil {
		return nil, err
	}
	return q.Take(n), nil
}

// Within returns every entry whose squared distance to point is at most
// radius, nearest first.
func (t *Tree[A, T]) Within(point []A, radius A) ([]Neighbor[A, T], error) {
	q, err := t.Nearest(point)
	if err != nil {
		return nil, err
	}
	var out []Neighbor[A, T]
	for {
		nb, ok := q.Next()
		if !ok || nb.Distance > radius {
			return out, nil
		}
		out = append(out, nb)
	}
}

// Validate reports whether point has dims finite coordinates.
func Validate[A Float](point []A, dims int) error {
	if len(point) != dims {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(point), dims)
	}
	for _, v := range point {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %v", ErrNonFinite, point)
		}
	}
	return nil
}

// SquaredEuclidean returns the squared Euclidean distance between a and b.
// Both must have the same length.
func SquaredEuclidean[A Float](a, b []A) A {
	var sum A
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
