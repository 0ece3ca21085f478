package kdtree

import (
	"container/heap"
	"iter"
)

// pending is a queued node or point. A nil node marks a point.
type pending[A Float, T comparable] struct {
	dist A
	seq  uint64
	node *node[A, T]
	item T
}

// pendingHeap is a min-heap ordered by distance. At equal distance points
// come before nodes, then insertion order, so identical trees always yield
// identical sequences.
type pendingHeap[A Float, T comparable] []pending[A, T]

func (h pendingHeap[A, T]) Len() int { return len(h) }
func (h pendingHeap[A, T]) Less(i, j int) bool {
	if h[i].dist != h[j].dist {
		return h[i].dist < h[j].dist
	}
	if pi, pj := h[i].node == nil, h[j].node == nil; pi != pj {
		return pi
	}
	return h[i].seq < h[j].seq
}
func (h pendingHeap[A, T]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *pendingHeap[A, T]) Push(x any)   { *h = append(*h, x.(pending[A, T])) }
func (h *pendingHeap[A, T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// Query is a lazy, ascending-distance sequence over a [Tree]. It is drained
// at most once and must not be used across a mutation of its tree: the first
// Next after a mutation returns false and Err reports [ErrModified].
type Query[A Float, T comparable] struct {
	tree    *Tree[A, T]
	version uint64
	point   []A
	queue   pendingHeap[A, T]
	seq     uint64
	err     error
}

func (q *Query[A, T]) pushNode(n *node[A, T]) {
	heap.Push(&q.queue, pending[A, T]{dist: n.boxDistance(q.point), seq: q.seq, node: n})
	q.seq++
}

func (q *Query[A, T]) pushPoint(p []A, item T) {
	heap.Push(&q.queue, pending[A, T]{dist: SquaredEuclidean(q.point, p), seq: q.seq, item: item})
	q.seq++
}

// Next returns the next closest entry. It returns false once the query is
// exhausted or the tree has been modified.
func (q *Query[A, T]) Next() (Neighbor[A, T], bool) {
	if q.err != nil {
		return Neighbor[A, T]{}, false
	}
	if q.tree.version != q.version {
		q.err = ErrModified
		q.queue = nil
		return Neighbor[A, T]{}, false
	}
	for len(q.queue) > 0 {
		top := heap.Pop(&q.queue).(pending[A, T])
		n := top.node
		if n == nil {
			return Neighbor[A, T]{Item: top.item, Distance: top.dist}, true
		}
		if n.leaf() {
			for i, p := range n.points {
				q.pushPoint(p, n.items[i])
			}
			continue
		}
		q.pushNode(n.left)
		q.pushNode(n.right)
	}
	return Neighbor[A, T]{}, false
}

// Take returns up to n further entries. A negative n drains the query.
// Asking for more than remain is not an error.
func (q *Query[A, T]) Take(n int) []Neighbor[A, T] {
	var out []Neighbor[A, T]
	for n < 0 || len(out) < n {
		nb, ok := q.Next()
		if !ok {
			break
		}
		out = append(out, nb)
	}
	return out
}

// All returns an iterator over the remaining (distance, item) pairs.
func (q *Query[A, T]) All() iter.Seq2[A, T] {
	return func(yield func(A, T) bool) {
		for {
			nb, ok := q.Next()
			if !ok || !yield(nb.Distance, nb.Item) {
				return
			}
		}
	}
}

// Err returns [ErrModified] if the query ended because its tree changed.
func (q *Query[A, T]) Err() error {
	return q.err
}
