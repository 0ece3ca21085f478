package kdtree

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type entry[A Float] struct {
	point []A
	id    string
}

func randPoint[A Float](rng *rand.Rand, dims int) []A {
	p := make([]A, dims)
	for i := range p {
		p[i] = A(rng.Float64()*200 - 100)
	}
	return p
}

// bruteForce returns every entry's distance to q in ascending order.
func bruteForce[A Float](entries []entry[A], q []A) []A {
	out := make([]A, len(entries))
	for i, e := range entries {
		out[i] = SquaredEuclidean(q, e.point)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func distances[A Float, T comparable](nbs []Neighbor[A, T]) []A {
	out := make([]A, len(nbs))
	for i, nb := range nbs {
		out[i] = nb.Distance
	}
	return out
}

func items[A Float, T comparable](nbs []Neighbor[A, T]) []T {
	out := make([]T, len(nbs))
	for i, nb := range nbs {
		out[i] = nb.Item
	}
	return out
}

// checkAgainstBruteForce builds a tree from random entries, removes a third
// of them and compares every query against a linear scan.
func checkAgainstBruteForce[A Float](t *testing.T, dims, capacity, n int) {
	t.Helper()
	rng := rand.New(rand.NewPCG(uint64(dims), uint64(n)))
	tree := New[A, string](Config{Dims: dims, Capacity: capacity})

	var live []entry[A]
	for i := 0; i < n; i++ {
		e := entry[A]{point: randPoint[A](rng, dims), id: fmt.Sprintf("e%d", i)}
		if err := tree.Add(e.point, e.id); err != nil {
			t.Fatalf("Add(%v): %v", e.point, err)
		}
		live = append(live, e)
	}
	for i := len(live) - 1; i >= 0; i -= 3 {
		if got := tree.Remove(live[i].point, live[i].id); got != 1 {
			t.Fatalf("Remove(%s) = %d, want 1", live[i].id, got)
		}
		live = slices.Delete(live, i, i+1)
	}
	if tree.Len() != len(live) {
		t.Fatalf("Len = %d, want %d", tree.Len(), len(live))
	}

	for k := 0; k < 20; k++ {
		q := randPoint[A](rng, dims)
		got, err := tree.NearestN(q, -1)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(bruteForce(live, q), distances(got)); diff != "" {
			t.Fatalf("query %v distances mismatch (-want +got):\n%s", q, diff)
		}
	}
}

// ---------------------------------------------------------------------------
// Unit tests
// ---------------------------------------------------------------------------

func TestTreeAddAndNearest(t *testing.T) {
	tree := New[float64, string](Config{Dims: 2})
	_ = tree.Add([]float64{0, 0}, "origin")
	_ = tree.Add([]float64{3, 4}, "far")
	_ = tree.Add([]float64{1, 0}, "near")

	got, err := tree.NearestN([]float64{0.9, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"near", "origin"}, items(got)); diff != "" {
		t.Errorf("NearestN mismatch (-want +got):\n%s", diff)
	}
	if d := got[0].Distance; math.Abs(d-0.01) > 1e-9 {
		t.Errorf("distance = %v, want 0.01 (squared)", d)
	}
}

func TestTreeEmpty(t *testing.T) {
	tree := New[float32, int](Config{Dims: 3})
	q, err := tree.Nearest([]float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if nb, ok := q.Next(); ok {
		t.Errorf("empty tree yielded %v", nb)
	}
	if tree.Remove([]float32{1, 2, 3}, 7) != 0 {
		t.Error("Remove on empty tree should return 0")
	}
}

func TestTreeRemove(t *testing.T) {
	tree := New[float64, string](Config{Dims: 2})
	_ = tree.Add([]float64{1, 1}, "a")

	if got := tree.Remove([]float64{1, 1}, "b"); got != 0 {
		t.Errorf("Remove with wrong item = %d, want 0", got)
	}
	if got := tree.Remove([]float64{1, 2}, "a"); got != 0 {
		t.Errorf("Remove with wrong point = %d, want 0", got)
	}
	if got := tree.Remove([]float64{1, 1}, "a"); got != 1 {
		t.Errorf("Remove = %d, want 1", got)
	}
	if got := tree.Remove([]float64{1, 1}, "a"); got != 0 {
		t.Errorf("second Remove = %d, want 0", got)
	}
	if tree.Len() != 0 {
		t.Errorf("Len = %d, want 0", tree.Len())
	}
}

func TestTreeDuplicatePositions(t *testing.T) {
	tree := New[float64, string](Config{Dims: 2, Capacity: 2})
	p := []float64{5, 5}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		if err := tree.Add(p, id); err != nil {
			t.Fatal(err)
		}
	}
	if tree.Len() != 5 {
		t.Fatalf("Len = %d, want 5", tree.Len())
	}
	tree.Remove(p, "c")

	got, _ := tree.NearestN(p, -1)
	ids := items(got)
	slices.Sort(ids)
	if diff := cmp.Diff([]string{"a", "b", "d", "e"}, ids); diff != "" {
		t.Errorf("remaining mismatch (-want +got):\n%s", diff)
	}
	for _, nb := range got {
		if nb.Distance != 0 {
			t.Errorf("distance for %s = %v, want 0", nb.Item, nb.Distance)
		}
	}
}

func TestTreeAddIsIdempotent(t *testing.T) {
	tree := New[float64, string](Config{Dims: 3, Capacity: 2})
	for i := 0; i < 10; i++ {
		_ = tree.Add([]float64{float64(i), 0, 0}, fmt.Sprint(i))
	}
	_ = tree.Add([]float64{4, 0, 0}, "4")
	if tree.Len() != 10 {
		t.Fatalf("Len after re-add = %d, want 10", tree.Len())
	}
	if tree.Remove([]float64{4, 0, 0}, "4") != 1 {
		t.Fatal("Remove should succeed once")
	}
	if tree.Contains([]float64{4, 0, 0}, "4") {
		t.Error("pair still present after a single Remove")
	}
}

func TestTreeRejectsMalformedPoints(t *testing.T) {
	tree := New[float64, string](Config{Dims: 2})

	tests := []struct {
		name  string
		point []float64
		want  error
	}{
		{"nan", []float64{math.NaN(), 0}, ErrNonFinite},
		{"inf", []float64{0, math.Inf(1)}, ErrNonFinite},
		{"neg inf", []float64{math.Inf(-1), 0}, ErrNonFinite},
		{"short", []float64{1}, ErrDimensionMismatch},
		{"long", []float64{1, 2, 3}, ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tree.Add(tt.point, "x"); !errors.Is(err, tt.want) {
				t.Errorf("Add err = %v, want %v", err, tt.want)
			}
			if _, err := tree.Nearest(tt.point); !errors.Is(err, tt.want) {
				t.Errorf("Nearest err = %v, want %v", err, tt.want)
			}
			if tree.Remove(tt.point, "x") != 0 {
				t.Error("Remove of malformed point should return 0")
			}
		})
	}
	if tree.Len() != 0 {
		t.Errorf("Len = %d, want 0", tree.Len())
	}
}

func TestTreeWithin(t *testing.T) {
	tree := New[float64, string](Config{Dims: 2})
	_ = tree.Add([]float64{0, 0}, "a")
	_ = tree.Add([]float64{1, 0}, "b")
	_ = tree.Add([]float64{2, 0}, "c")
	_ = tree.Add([]float64{0, 3}, "d")

	got, err := tree.Within([]float64{0, 0}, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, items(got)); diff != "" {
		t.Errorf("Within mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeCollapsesToEmpty(t *testing.T) {
	tree := New[float64, int](Config{Dims: 2, Capacity: 1})
	var pts [][]float64
	for i := 0; i < 64; i++ {
		p := []float64{float64(i % 8), float64(i / 8)}
		pts = append(pts, p)
		_ = tree.Add(p, i)
	}
	for i, p := range pts {
		if tree.Remove(p, i) != 1 {
			t.Fatalf("Remove(%v, %d) failed", p, i)
		}
	}
	if tree.Len() != 0 || tree.root != nil {
		t.Errorf("tree not empty: Len = %d", tree.Len())
	}
	_ = tree.Add([]float64{1, 1}, 1)
	got, _ := tree.NearestN([]float64{0, 0}, 1)
	if len(got) != 1 || got[0].Item != 1 {
		t.Errorf("reuse after emptying: got %v", got)
	}
}

func TestTreeMatchesBruteForce(t *testing.T) {
	t.Run("float64/3d", func(t *testing.T) { checkAgainstBruteForce[float64](t, 3, 4, 600) })
	t.Run("float64/2d", func(t *testing.T) { checkAgainstBruteForce[float64](t, 2, 16, 600) })
	t.Run("float32/2d", func(t *testing.T) { checkAgainstBruteForce[float32](t, 2, 8, 400) })
	t.Run("float32/3d", func(t *testing.T) { checkAgainstBruteForce[float32](t, 3, 1, 300) })
}

func TestNewPanicsWithoutDims(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("New with Dims 0 should panic")
		}
	}()
	New[float64, string](Config{})
}
