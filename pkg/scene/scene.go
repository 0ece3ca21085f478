// Package scene is the host side of the nearest index. It plays the part of
// a scene graph: objects enter, move and exit by ID, and the scene remembers
// each one's name and position in a population registry so it can remove
// entries at the right place and re-feed the index after the group patterns
// change.
//
// A Scene is single-owner. Callers that serve several clients must funnel
// every call through one goroutine (see package server).
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haivivi/nearest/pkg/event"
	"github.com/haivivi/nearest/pkg/kdtree"
	"github.com/haivivi/nearest/pkg/nearest"
	"github.com/haivivi/nearest/pkg/population"
)

// Config configures a new [Scene].
type Config struct {
	// Dims is the number of coordinates per point. Required.
	Dims int

	// Capacity is the leaf bucket size of each group's tree (optional).
	Capacity int

	// Groups is the initial pattern list.
	Groups []string

	// Registry stores the live population.
	// Default: population.NewMemory().
	Registry population.Registry

	// Logger receives scene diagnostics.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Scene owns a nearest index over string IDs and the registry describing the
// objects in it.
type Scene struct {
	idx    *nearest.Index[float64, string]
	reg    population.Registry
	logger *slog.Logger
}

// New creates a scene. The registry is not cleared: objects already in it
// are fed into the new index.
func New(ctx context.Context, cfg Config) (*Scene, error) {
	if cfg.Dims <= 0 {
		return nil, fmt.Errorf("scene: dims must be positive, got %d", cfg.Dims)
	}
	if cfg.Registry == nil {
		cfg.Registry = population.NewMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Scene{
		idx: nearest.New[float64, string](nearest.Config{
			Dims:     cfg.Dims,
			Groups:   cfg.Groups,
			Capacity: cfg.Capacity,
			Logger:   cfg.Logger,
		}),
		reg:    cfg.Registry,
		logger: cfg.Logger,
	}
	if err := s.refeed(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Index returns the underlying index. Mutating it directly bypasses the
// registry.
func (s *Scene) Index() *nearest.Index[float64, string] { return s.idx }

// Enter adds an object and returns the groups it joined. An object entering
// again under the same ID is moved to its new name and position.
func (s *Scene) Enter(ctx context.Context, name, id string, point []float64) ([]int, error) {
	if err := kdtree.Validate(point, s.idx.Dims()); err != nil {
		return nil, fmt.Errorf("scene: enter %s: %w", id, err)
	}
	if _, err := s.Exit(ctx, id); err != nil {
		return nil, err
	}
	if err := s.reg.Put(ctx, population.Object{ID: id, Name: name, Point: point}); err != nil {
		return nil, fmt.Errorf("scene: enter %s: %w", id, err)
	}
	s.idx.Enter(name, point, id)
	return s.idx.Classify(name), nil
}

// Exit removes an object and reports whether it was present.
func (s *Scene) Exit(ctx context.Context, id string) (bool, error) {
	obj, err := s.reg.Get(ctx, id)
	if errors.Is(err, population.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scene: exit %s: %w", id, err)
	}
	s.idx.Exit(obj.Name, obj.Point, id)
	if err := s.reg.Delete(ctx, id); err != nil {
		return true, fmt.Errorf("scene: exit %s: %w", id, err)
	}
	return true, nil
}

// Move re-indexes an object at a new position. The index sees the move
// immediately.
func (s *Scene) Move(ctx context.Context, id string, to []float64) error {
	if err := kdtree.Validate(to, s.idx.Dims()); err != nil {
		return fmt.Errorf("scene: move %s: %w", id, err)
	}
	obj, err := s.reg.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("scene: move %s: %w", id, err)
	}
	s.idx.Move(obj.Name, obj.Point, to, id)
	obj.Point = to
	if err := s.reg.Put(ctx, obj); err != nil {
		return fmt.Errorf("scene: move %s: %w", id, err)
	}
	return nil
}

// SetGroups replaces the pattern list and re-feeds every registered object.
func (s *Scene) SetGroups(ctx context.Context, groups []string) error {
	s.idx.Reconfigure(groups)
	return s.refeed(ctx)
}

func (s *Scene) refeed(ctx context.Context) error {
	n := 0
	for obj, err := range s.reg.All(ctx) {
		if err != nil {
			return fmt.Errorf("scene: refeed: %w", err)
		}
		s.idx.Enter(obj.Name, obj.Point, obj.ID)
		n++
	}
	if n > 0 {
		s.logger.Debug("scene: refed population", "objects", n, "groups", s.idx.Groups())
	}
	return nil
}

// Nearest returns up to k objects of group nearest to point, nearest first,
// with squared distances. A negative k returns the whole group.
func (s *Scene) Nearest(point []float64, group, k int) ([]kdtree.Neighbor[float64, string], error) {
	q, err := s.idx.Nearest(point, group)
	if err != nil {
		return nil, fmt.Errorf("scene: nearest: %w", err)
	}
	nbs := q.Take(k)
	if err := q.Err(); err != nil {
		return nil, fmt.Errorf("scene: nearest: %w", err)
	}
	return nbs, nil
}

// Lookup returns the registered state of id.
func (s *Scene) Lookup(ctx context.Context, id string) (population.Object, error) {
	return s.reg.Get(ctx, id)
}

// Apply runs one event and reports the outcome. Failures are returned in
// Result.Error, never as a panic.
func (s *Scene) Apply(ctx context.Context, e event.Event) event.Result {
	res := event.Result{Op: e.Op, ID: e.ID}
	if err := e.Validate(); err != nil {
		res.Error = err.Error()
		return res
	}

	var err error
	switch e.Op {
	case event.OpEnter:
		res.Groups, err = s.Enter(ctx, e.Name, e.ID, e.Point)
	case event.OpExit:
		_, err = s.Exit(ctx, e.ID)
	case event.OpMove:
		err = s.Move(ctx, e.ID, e.To)
	case event.OpQuery:
		var nbs []kdtree.Neighbor[float64, string]
		nbs, err = s.Nearest(e.Point, e.Group, e.Limit())
		for _, nb := range nbs {
			res.IDs = append(res.IDs, nb.Item)
			res.Distances = append(res.Distances, nb.Distance)
		}
	case event.OpReconfigure:
		err = s.SetGroups(ctx, e.Groups)
	case event.OpDump:
		res.Dump = s.String()
	}
	if err != nil {
		s.logger.Warn("scene: event failed", "op", e.Op, "id", e.ID, "error", err)
		res.Error = err.Error()
	}
	return res
}

// Replay applies every event of sc in order against a new scene built from
// its header and returns the results.
func Replay(ctx context.Context, sc *event.Scenario, reg population.Registry, logger *slog.Logger) ([]event.Result, error) {
	s, err := New(ctx, Config{
		Dims:     sc.Dims,
		Capacity: sc.Capacity,
		Groups:   sc.Groups,
		Registry: reg,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	results := make([]event.Result, 0, len(sc.Events))
	for _, e := range sc.Events {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.Apply(ctx, e))
	}
	return results, nil
}

// String describes the index and the number of registered objects.
func (s *Scene) String() string {
	var b strings.Builder
	b.WriteString(s.idx.String())
	if n, err := s.reg.Len(context.Background()); err == nil {
		fmt.Fprintf(&b, " objects=%d", n)
	}
	return b.String()
}

// Close closes the registry.
func (s *Scene) Close() error {
	return s.reg.Close()
}
