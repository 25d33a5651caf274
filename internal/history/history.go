// Package history keeps bounded undo/redo stacks of document snapshots.
package history

import (
	"errors"
	"fmt"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultDepth is the number of undo steps kept when none is configured.
const DefaultDepth = 50

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Encode serializes a snapshot to msgpack.
func Encode(d *document.Data) ([]byte, error) {
	b, err := msgpack.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return b, nil
}

// Decode reads a snapshot written by Encode.
func Decode(b []byte) (*document.Data, error) {
	d := document.New(0)
	if err := msgpack.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	d.Normalize()
	return d, nil
}

// Stack is an undo/redo history. Snapshots are stored encoded so later
// edits to a pushed snapshot never leak into the history. It is not safe
// for concurrent use.
type Stack struct {
	depth int
	undo  [][]byte
	redo  [][]byte
}

// New returns an empty history holding at most depth undo steps. A depth
// of zero or less uses DefaultDepth.
func New(depth int) *Stack {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Stack{depth: depth}
}

// Push records the state before an edit. It clears the redo stack.
func (s *Stack) Push(d *document.Data) error {
	b, err := Encode(d)
	if err != nil {
		return err
	}
	s.undo = append(s.undo, b)
	if len(s.undo) > s.depth {
		s.undo = s.undo[len(s.undo)-s.depth:]
	}
	s.redo = nil
	return nil
}

// Undo returns the state before the last edit and records current for Redo.
func (s *Stack) Undo(current *document.Data) (*document.Data, error) {
	if len(s.undo) == 0 {
		return nil, ErrNothingToUndo
	}
	return s.step(&s.undo, &s.redo, current)
}

// Redo returns the state undone last and records current for Undo.
func (s *Stack) Redo(current *document.Data) (*document.Data, error) {
	if len(s.redo) == 0 {
		return nil, ErrNothingToRedo
	}
	return s.step(&s.redo, &s.undo, current)
}

func (s *Stack) step(from, to *[][]byte, current *document.Data) (*document.Data, error) {
	top := (*from)[len(*from)-1]
	prev, err := Decode(top)
	if err != nil {
		return nil, err
	}
	cur, err := Encode(current)
	if err != nil {
		return nil, err
	}
	*from = (*from)[:len(*from)-1]
	*to = append(*to, cur)
	return prev, nil
}

func (s *Stack) CanUndo() bool { return len(s.undo) > 0 }
func (s *Stack) CanRedo() bool { return len(s.redo) > 0 }

// Len returns the number of undo steps held.
func (s *Stack) Len() int { return len(s.undo) }

// Clear drops all history.
func (s *Stack) Clear() {
	s.undo = nil
	s.redo = nil
}
