package nearest

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Index2D adapts an [Index] to planar positions given as r2.Vec.
type Index2D[T comparable] struct {
	idx *Index[float64, T]
}

// New2D creates a two-dimensional index. cfg.Dims is ignored.
func New2D[T comparable](cfg Config) *Index2D[T] {
	cfg.Dims = 2
	return &Index2D[T]{idx: New[float64, T](cfg)}
}

func vec2(v r2.Vec) []float64 { return []float64{v.X, v.Y} }

// Index returns the underlying index.
func (x *Index2D[T]) Index() *Index[float64, T] { return x.idx }

// Reconfigure replaces the pattern list and discards all membership.
func (x *Index2D[T]) Reconfigure(groups []string) { x.idx.Reconfigure(groups) }

// Enter adds id at pos to every group name belongs to.
func (x *Index2D[T]) Enter(name string, pos r2.Vec, id T) int {
	return x.idx.Enter(name, vec2(pos), id)
}

// Exit removes id at pos from every group name belongs to.
func (x *Index2D[T]) Exit(name string, pos r2.Vec, id T) int {
	return x.idx.Exit(name, vec2(pos), id)
}

// Move re-indexes id at its new position and reports whether it was applied.
func (x *Index2D[T]) Move(name string, from, to r2.Vec, id T) bool {
	return x.idx.Move(name, vec2(from), vec2(to), id)
}

// NearestOne returns the entry of group closest to pos.
func (x *Index2D[T]) NearestOne(pos r2.Vec, group int) (T, bool) {
	ids := x.idx.Query(vec2(pos), group, 1)
	if len(ids) == 0 {
		var zero T
		return zero, false
	}
	return ids[0], true
}

// NearestN returns up to n entries of group closest to pos. A negative n
// returns the whole group.
func (x *Index2D[T]) NearestN(pos r2.Vec, group, n int) []T {
	return x.idx.Query(vec2(pos), group, n)
}

func (x *Index2D[T]) String() string { return x.idx.String() }

// Index3D adapts an [Index] to spatial positions given as r3.Vec.
type Index3D[T comparable] struct {
	idx *Index[float64, T]
}

// New3D creates a three-dimensional index. cfg.Dims is ignored.
func New3D[T comparable](cfg Config) *Index3D[T] {
	cfg.Dims = 3
	return &Index3D[T]{idx: New[float64, T](cfg)}
}

func vec3(v r3.Vec) []float64 { return []float64{v.X, v.Y, v.Z} }

// Index returns the underlying index.
func (x *Index3D[T]) Index() *Index[float64, T] { return x.idx }

// Reconfigure replaces the pattern list and discards all membership.
func (x *Index3D[T]) Reconfigure(groups []string) { x.idx.Reconfigure(groups) }

// Enter adds id at pos to every group name belongs to.
func (x *Index3D[T]) Enter(name string, pos r3.Vec, id T) int {
	return x.idx.Enter(name, vec3(pos), id)
}

// Exit removes id at pos from every group name belongs to.
func (x *Index3D[T]) Exit(name string, pos r3.Vec, id T) int {
	return x.idx.Exit(name, vec3(pos), id)
}

// Move re-indexes id at its new position and reports whether it was applied.
func (x *Index3D[T]) Move(name string, from, to r3.Vec, id T) bool {
	return x.idx.Move(name, vec3(from), vec3(to), id)
}

// NearestOne returns the entry of group closest to pos.
func (x *Index3D[T]) NearestOne(pos r3.Vec, group int) (T, bool) {
	ids := x.idx.Query(vec3(pos), group, 1)
	if len(ids) == 0 {
		var zero T
		return zero, false
	}
	return ids[0], true
}

// NearestN returns up to n entries of group closest to pos. A negative n
// returns the whole group.
func (x *Index3D[T]) NearestN(pos r3.Vec, group, n int) []T {
	return x.idx.Query(vec3(pos), group, n)
}

func (x *Index3D[T]) String() string { return x.idx.String() }
