package nearest

import (
	"cmp"
	"slices"

	"github.com/haivivi/nearest/pkg/kdtree"
)

// Deferred wraps an [Index] with lazy position updates. Moves are recorded
// by MarkMoved and applied in marking order by the next Flush, which every
// query runs first. Between a move and the next query or Flush the index
// still holds the old position.
//
// Unlike Index, Deferred remembers the last indexed name and position of
// every entry, so Exit and Reconfigure need only the identifier.
type Deferred[A kdtree.Float, T comparable] struct {
	idx   *Index[A, T]
	known map[T]placement[A]
	dirty map[T][]A
	order []T
	seq   uint64
}

type placement[A kdtree.Float] struct {
	name  string
	point []A
	seq   uint64
}

// NewDeferred wraps idx. The index should be empty; entries added to it
// directly are not tracked.
func NewDeferred[A kdtree.Float, T comparable](idx *Index[A, T]) *Deferred[A, T] {
	return &Deferred[A, T]{
		idx:   idx,
		known: make(map[T]placement[A]),
		dirty: make(map[T][]A),
	}
}

// Index returns the wrapped index. Queries made on it directly skip Flush.
func (d *Deferred[A, T]) Index() *Index[A, T] { return d.idx }

// Enter indexes id immediately. The entry is tracked even when its name
// matches no group, so a later Reconfigure can pick it up. Entering an id
// that is already tracked replaces its previous placement. A malformed point
// is logged and rejected, leaving any previous placement in place.
func (d *Deferred[A, T]) Enter(name string, point []A, id T) int {
	if err := kdtree.Validate(point, d.idx.Dims()); err != nil {
		d.idx.logger.Warn("nearest: rejecting entry", "name", name, "id", id, "error", err)
		return 0
	}
	if prev, ok := d.known[id]; ok {
		d.idx.Exit(prev.name, prev.point, id)
		d.forget(id)
	}
	d.known[id] = placement[A]{name: name, point: slices.Clone(point), seq: d.seq}
	d.seq++
	return d.idx.Enter(name, point, id)
}

// Exit removes id from its last indexed position and drops any pending
// move. It returns the number of entries removed.
func (d *Deferred[A, T]) Exit(id T) int {
	prev, ok := d.known[id]
	if !ok {
		return 0
	}
	d.forget(id)
	delete(d.known, id)
	return d.idx.Exit(prev.name, prev.point, id)
}

// MarkMoved records a new position for id, replacing any earlier pending
// move. It returns false if id is not tracked.
func (d *Deferred[A, T]) MarkMoved(id T, to []A) bool {
	if _, ok := d.known[id]; !ok {
		return false
	}
	if _, ok := d.dirty[id]; !ok {
		d.order = append(d.order, id)
	}
	d.dirty[id] = slices.Clone(to)
	return true
}

// Pending returns the number of moves not yet applied.
func (d *Deferred[A, T]) Pending() int { return len(d.dirty) }

// Flush applies every pending move and returns how many were applied. A
// move to a malformed position is dropped and the entry keeps its old one.
func (d *Deferred[A, T]) Flush() int {
	n := 0
	for _, id := range d.order {
		to, ok := d.dirty[id]
		if !ok {
			continue
		}
		prev := d.known[id]
		if !d.idx.Move(prev.name, prev.point, to, id) {
			continue
		}
		prev.point = to
		d.known[id] = prev
		n++
	}
	clear(d.dirty)
	d.order = d.order[:0]
	return n
}

func (d *Deferred[A, T]) forget(id T) {
	if _, ok := d.dirty[id]; !ok {
		return
	}
	delete(d.dirty, id)
	d.order = slices.DeleteFunc(d.order, func(v T) bool { return v == id })
}

// Reconfigure replaces the pattern list and re-feeds every tracked entry
// at its latest position, in the order the entries first entered.
func (d *Deferred[A, T]) Reconfigure(groups []string) {
	d.Flush()
	d.idx.Reconfigure(groups)

	ids := make([]T, 0, len(d.known))
	for id := range d.known {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b T) int {
		return cmp.Compare(d.known[a].seq, d.known[b].seq)
	})
	for _, id := range ids {
		p := d.known[id]
		d.idx.Enter(p.name, p.point, id)
	}
}

// Nearest flushes pending moves and returns a lazy query over group.
func (d *Deferred[A, T]) Nearest(point []A, group int) (*kdtree.Query[A, T], error) {
	d.Flush()
	return d.idx.Nearest(point, group)
}

// Query flushes pending moves and returns up to k identifiers of group
// nearest to point.
func (d *Deferred[A, T]) Query(point []A, group, k int) []T {
	d.Flush()
	return d.idx.Query(point, group, k)
}

// Len returns the number of tracked entries.
func (d *Deferred[A, T]) Len() int { return len(d.known) }
