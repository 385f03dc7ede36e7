package history

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/dshills/pagebuilder/pkg/tree"
	"github.com/fxamacker/cbor/v2"
)

// DefaultCapacity is the number of undo steps kept
const DefaultCapacity = 100

var (
	// ErrNothingToUndo is returned by Undo on an empty undo stack
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrNothingToRedo is returned by Redo on an empty redo stack
	ErrNothingToRedo = errors.New("nothing to redo")
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// floats stay float64 on the wire so restored properties keep their type
	encMode, err = cbor.EncOptions{Sort: cbor.SortCanonical, ShortestFloat: cbor.ShortestFloatNone}.EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
		IntDec:         cbor.IntDecConvertSigned,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// History is a bounded undo/redo stack of forest snapshots. Snapshots are
// stored CBOR-encoded so a recorded state cannot be mutated afterwards.
type History struct {
	mu       sync.Mutex
	undo     [][]byte
	redo     [][]byte
	capacity int
}

// New creates a history keeping at most capacity undo steps
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{capacity: capacity}
}

// Record pushes the state before a change. It clears the redo stack and
// drops the oldest step once capacity is reached.
func (h *History) Record(nodes []*tree.Node) error {
	data, err := Encode(nodes)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo = append(h.undo, data)
	if len(h.undo) > h.capacity {
		h.undo = h.undo[len(h.undo)-h.capacity:]
	}
	h.redo = nil
	return nil
}

// Undo returns the previous state and remembers current for Redo
func (h *History) Undo(current []*tree.Node) ([]*tree.Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	return h.step(&h.undo, &h.redo, current)
}

// Redo returns the state undone last and remembers current for Undo
func (h *History) Redo(current []*tree.Node) ([]*tree.Node, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	return h.step(&h.redo, &h.undo, current)
}

func (h *History) step(from, to *[][]byte, current []*tree.Node) ([]*tree.Node, error) {
	cur, err := Encode(current)
	if err != nil {
		return nil, err
	}
	last := (*from)[len(*from)-1]
	nodes, err := Decode(last)
	if err != nil {
		return nil, err
	}
	*from = (*from)[:len(*from)-1]
	*to = append(*to, cur)
	return nodes, nil
}

// CanUndo reports whether Undo would succeed
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo) > 0
}

// CanRedo reports whether Redo would succeed
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redo) > 0
}

// Len returns the number of undo steps held
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undo)
}

// Clear drops all history
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo = nil, nil
}

// Encode serialises a forest snapshot
func Encode(nodes []*tree.Node) ([]byte, error) {
	data, err := encMode.Marshal(nodes)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode restores a forest snapshot
func Decode(data []byte) ([]*tree.Node, error) {
	var nodes []*tree.Node
	if err := decMode.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return nodes, nil
}
