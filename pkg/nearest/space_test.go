package nearest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestIndex2D(t *testing.T) {
	idx := New2D[string](Config{Groups: []string{"enemy_.*", "enemy_boss"}})

	idx.Enter("enemy_boss", r2.Vec{X: 1, Y: 0}, "/level/enemy_boss")
	idx.Enter("enemy_grunt", r2.Vec{X: 3, Y: 0}, "/level/enemy_grunt")

	got, ok := idx.NearestOne(r2.Vec{}, 1)
	if !ok || got != "/level/enemy_boss" {
		t.Errorf("NearestOne(group 1) = %q, %v", got, ok)
	}
	if _, ok := idx.NearestOne(r2.Vec{}, 5); ok {
		t.Error("NearestOne on a missing group should report false")
	}
	want := []string{"/level/enemy_grunt", "/level/enemy_boss"}
	if diff := cmp.Diff(want, idx.NearestN(r2.Vec{X: 4}, 0, -1)); diff != "" {
		t.Errorf("NearestN mismatch (-want +got):\n%s", diff)
	}

	idx.Move("enemy_grunt", r2.Vec{X: 3}, r2.Vec{X: 100}, "/level/enemy_grunt")
	idx.Exit("enemy_boss", r2.Vec{X: 1}, "/level/enemy_boss")
	if got, _ := idx.NearestOne(r2.Vec{}, 0); got != "/level/enemy_grunt" {
		t.Errorf("after Move/Exit = %q", got)
	}
	if idx.Index().Dims() != 2 {
		t.Errorf("Dims = %d, want 2", idx.Index().Dims())
	}
}

func TestIndex3D(t *testing.T) {
	idx := New3D[int](Config{Dims: 99, Groups: []string{"tree"}})
	idx.Enter("tree_oak", r3.Vec{X: 0, Y: 0, Z: 5}, 1)
	idx.Enter("tree_pine", r3.Vec{X: 0, Y: 0, Z: -2}, 2)

	if diff := cmp.Diff([]int{2, 1}, idx.NearestN(r3.Vec{}, 0, 2)); diff != "" {
		t.Errorf("NearestN mismatch (-want +got):\n%s", diff)
	}

	idx.Reconfigure([]string{"bush"})
	if _, ok := idx.NearestOne(r3.Vec{}, 0); ok {
		t.Error("Reconfigure should leave the new group empty")
	}
	if s := idx.String(); s != `Nearest3D(0:"bush"=0)` {
		t.Errorf("String = %s", s)
	}
}
