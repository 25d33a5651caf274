package document

import (
	"errors"
	"fmt"
)

// Engine errors
var (
	// ErrNilDocument indicates a reconciliation call without a target document.
	ErrNilDocument = errors.New("no target document")

	// ErrNoFactory indicates a merge that needs to construct items without an item factory.
	ErrNoFactory = errors.New("no item factory")

	// ErrNoGraph indicates a subcircuit extraction into a document without nodes and connectors.
	ErrNoGraph = errors.New("document has no node graph")
)

// Problem is one structural anomaly found in a snapshot.
type Problem struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Field  string `json:"field"`
	Target string `json:"target"`
}

func (p Problem) String() string {
	return fmt.Sprintf("%s %q: %s references missing %q", p.Kind, p.ID, p.Field, p.Target)
}
