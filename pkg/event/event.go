// Package event defines the messages a host sends to a scene: objects
// entering, exiting and moving, group reconfiguration, and nearest queries.
//
// Events travel as JSON (websocket text frames, scenario files via YAML) or
// msgpack (websocket binary frames). Every request produces one [Result].
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Op names the operation an event requests.
type Op string

const (
	OpEnter       Op = "enter"
	OpExit        Op = "exit"
	OpMove        Op = "move"
	OpQuery       Op = "query"
	OpReconfigure Op = "reconfigure"
	OpDump        Op = "dump"
)

// ErrInvalid is returned for events missing a field their op requires.
var ErrInvalid = errors.New("event: invalid")

// Event is a single request to a scene.
type Event struct {
	Op Op `json:"op" yaml:"op" msgpack:"op"`

	// Name is the object name matched against group patterns.
	Name string `json:"name,omitempty" yaml:"name,omitempty" msgpack:"name,omitempty"`

	// ID is the opaque identifier stored in the index.
	ID string `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id,omitempty"`

	// Point is the position of an entering object or of a query. Exit and
	// move take the current position from the scene's registry.
	Point []float64 `json:"point,omitempty" yaml:"point,omitempty" msgpack:"point,omitempty"`

	// To is the new position for move.
	To []float64 `json:"to,omitempty" yaml:"to,omitempty" msgpack:"to,omitempty"`

	// Group is the group number a query runs against.
	Group int `json:"group,omitempty" yaml:"group,omitempty" msgpack:"group,omitempty"`

	// K limits the number of query results. Absent or negative means all.
	K *int `json:"k,omitempty" yaml:"k,omitempty" msgpack:"k,omitempty"`

	// Groups is the new pattern list for reconfigure.
	Groups []string `json:"groups,omitempty" yaml:"groups,omitempty" msgpack:"groups,omitempty"`
}

// Limit returns the query result limit, -1 meaning all.
func (e *Event) Limit() int {
	if e.K == nil || *e.K < 0 {
		return -1
	}
	return *e.K
}

// Validate checks that the fields required by the op are present.
func (e *Event) Validate() error {
	switch e.Op {
	case OpEnter:
		if e.Name == "" || e.ID == "" || len(e.Point) == 0 {
			return fmt.Errorf("%w: enter requires name, id and point", ErrInvalid)
		}
	case OpExit:
		if e.ID == "" {
			return fmt.Errorf("%w: exit requires id", ErrInvalid)
		}
	case OpMove:
		if e.ID == "" || len(e.To) == 0 {
			return fmt.Errorf("%w: move requires id and to", ErrInvalid)
		}
	case OpQuery:
		if len(e.Point) == 0 {
			return fmt.Errorf("%w: query requires point", ErrInvalid)
		}
	case OpReconfigure, OpDump:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalid, e.Op)
	}
	return nil
}

// Result is the reply to one event.
type Result struct {
	Op Op `json:"op" yaml:"op" msgpack:"op"`

	// ID echoes the event identifier for enter/exit/move.
	ID string `json:"id,omitempty" yaml:"id,omitempty" msgpack:"id,omitempty"`

	// Groups lists the groups an entered object joined.
	Groups []int `json:"groups,omitempty" yaml:"groups,omitempty" msgpack:"groups,omitempty"`

	// IDs and Distances are the query results, nearest first. Distances are
	// squared.
	IDs       []string  `json:"ids,omitempty" yaml:"ids,omitempty" msgpack:"ids,omitempty"`
	Distances []float64 `json:"distances,omitempty" yaml:"distances,omitempty" msgpack:"distances,omitempty"`

	// Dump is the diagnostic description of the scene.
	Dump string `json:"dump,omitempty" yaml:"dump,omitempty" msgpack:"dump,omitempty"`

	// Error is set when the event could not be applied.
	Error string `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
}

// Encoding selects a wire format.
type Encoding int

const (
	JSON Encoding = iota
	Msgpack
)

func (enc Encoding) String() string {
	switch enc {
	case JSON:
		return "json"
	case Msgpack:
		return "msgpack"
	default:
		return fmt.Sprintf("Encoding(%d)", int(enc))
	}
}

// Decode parses an event and validates it.
func Decode(enc Encoding, data []byte) (Event, error) {
	var e Event
	var err error
	switch enc {
	case JSON:
		err = json.Unmarshal(data, &e)
	case Msgpack:
		err = msgpack.Unmarshal(data, &e)
	default:
		return e, fmt.Errorf("event: unsupported encoding %v", enc)
	}
	if err != nil {
		return e, fmt.Errorf("event: decode %v: %w", enc, err)
	}
	return e, e.Validate()
}

// Encode marshals an event or a result.
func Encode(enc Encoding, v any) ([]byte, error) {
	switch enc {
	case JSON:
		return json.Marshal(v)
	case Msgpack:
		return msgpack.Marshal(v)
	default:
		return nil, fmt.Errorf("event: unsupported encoding %v", enc)
	}
}

// DecodeResult parses a result.
func DecodeResult(enc Encoding, data []byte) (Result, error) {
	var r Result
	var err error
	switch enc {
	case JSON:
		err = json.Unmarshal(data, &r)
	case Msgpack:
		err = msgpack.Unmarshal(data, &r)
	default:
		return r, fmt.Errorf("event: unsupported encoding %v", enc)
	}
	if err != nil {
		return r, fmt.Errorf("event: decode result %v: %w", enc, err)
	}
	return r, nil
}
