// Package population records the objects currently present in a scene.
//
// The nearest index never tracks positions on its own: exits and moves must
// supply the position the entry was added at, and a reconfiguration discards
// every group. A [Registry] keeps the last known name and position of each
// object so the scene can answer both.
//
// The package includes an in-memory implementation and a BadgerDB-backed one
// (in-memory or on disk). Records are msgpack encoded.
package population

import (
	"context"
	"errors"
	"iter"

	"github.com/vmihailenco/msgpack/v5"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when an object is not in the registry.
	ErrNotFound = errors.New("population: not found")
)

// Object is the last known state of one object.
type Object struct {
	ID    string    `msgpack:"id" json:"id" yaml:"id"`
	Name  string    `msgpack:"name" json:"name" yaml:"name"`
	Point []float64 `msgpack:"point" json:"point" yaml:"point"`
}

// Registry is the interface for a population store keyed by object ID.
type Registry interface {
	// Get returns the object with id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (Object, error)

	// Put stores obj, replacing any object with the same ID.
	Put(ctx context.Context, obj Object) error

	// Delete removes id. No error if it does not exist.
	Delete(ctx context.Context, id string) error

	// All iterates over every object in ascending ID order.
	All(ctx context.Context) iter.Seq2[Object, error]

	// Len returns the number of objects.
	Len(ctx context.Context) (int, error)

	// Close releases any resources held by the registry.
	Close() error
}

// keyPrefix namespaces object records so a shared database can hold other
// data.
const keyPrefix = "object:"

func encodeKey(id string) []byte {
	return append([]byte(keyPrefix), id...)
}

func decodeKey(k []byte) string {
	return string(k[len(keyPrefix):])
}

func marshal(obj Object) ([]byte, error) {
	return msgpack.Marshal(&obj)
}

func unmarshal(data []byte) (Object, error) {
	var obj Object
	err := msgpack.Unmarshal(data, &obj)
	return obj, err
}
