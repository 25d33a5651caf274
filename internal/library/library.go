// Package library is the catalog of item types that documents can contain.
package library

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
	"gopkg.in/yaml.v3"
)

// ExternalConnectionType is the part that marks a subcircuit pin.
const ExternalConnectionType = document.ExternalConnectionType

// SubcircuitType is the container part subcircuits are extracted into.
const SubcircuitType = "ec/subcircuit"

//go:embed parts.yaml
var defaultCatalog []byte

// Catalog errors
var (
	ErrMissingID     = errors.New("part has no id")
	ErrUnknownKind   = errors.New("unknown document kind")
	ErrDuplicatePart = errors.New("duplicate part id")
	ErrDuplicatePin  = errors.New("duplicate pin id")
)

// Pin is a child node of a part, offset from the part's position.
type Pin struct {
	ID string `yaml:"id" json:"id"`
	X  int    `yaml:"x" json:"x"`
	Y  int    `yaml:"y" json:"y"`
}

// Part describes one item type.
type Part struct {
	ID    string   `yaml:"id" json:"id"`
	Name  string   `yaml:"name" json:"name"`
	Kinds []string `yaml:"kinds" json:"kinds"`
	Pins  []Pin    `yaml:"pins,omitempty" json:"pins,omitempty"`

	Resizable bool `yaml:"resizable,omitempty" json:"resizable,omitempty"`

	// Protected parts are owned by the document itself and never saved or
	// removed with the rest of the content.
	Protected bool `yaml:"protected,omitempty" json:"protected,omitempty"`

	// Container parts show or hide the items placed inside them.
	Container bool `yaml:"container,omitempty" json:"container,omitempty"`

	// Subcircuit parts get their pins at runtime from external connections.
	Subcircuit bool `yaml:"subcircuit,omitempty" json:"subcircuit,omitempty"`

	// Unique parts may appear at most once per document.
	Unique bool `yaml:"unique,omitempty" json:"unique,omitempty"`

	kinds []models.DocumentType
}

// AllowedIn reports whether the part may be placed in a document of the kind.
func (p *Part) AllowedIn(kind models.DocumentType) bool {
	return slices.Contains(p.kinds, kind)
}

// Pin returns the pin with the local id.
func (p *Part) Pin(id string) (Pin, bool) {
	for _, pin := range p.Pins {
		if pin.ID == id {
			return pin, true
		}
	}
	return Pin{}, false
}

type catalogFile struct {
	Parts []*Part `yaml:"parts"`
}

// Library is a read-only set of parts keyed by type. It is safe for
// concurrent use once loaded.
type Library struct {
	parts map[string]*Part
}

// Default returns the built-in catalog.
func Default() (*Library, error) {
	lib := &Library{parts: make(map[string]*Part)}
	if err := lib.add(defaultCatalog, false); err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return lib, nil
}

// Load reads a catalog on its own, without the built-in parts.
func Load(r io.Reader) (*Library, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	lib := &Library{parts: make(map[string]*Part)}
	if err := lib.add(data, false); err != nil {
		return nil, err
	}
	return lib, nil
}

// LoadWithOverride returns the built-in catalog with the parts of the file
// at path layered over it. An empty path or a missing file yields the
// built-in catalog.
func LoadWithOverride(path string) (*Library, error) {
	lib, err := Default()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return lib, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return lib, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	if err := lib.add(data, true); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return lib, nil
}

func (l *Library) add(data []byte, replace bool) error {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Parts))
	for _, p := range file.Parts {
		if err := p.init(); err != nil {
			return err
		}
		if seen[p.ID] || (!replace && l.parts[p.ID] != nil) {
			return fmt.Errorf("%w: %s", ErrDuplicatePart, p.ID)
		}
		seen[p.ID] = true
		l.parts[p.ID] = p
	}
	return nil
}

func (p *Part) init() error {
	if p.ID == "" {
		return ErrMissingID
	}
	if p.Name == "" {
		p.Name = p.ID
	}

	p.kinds = p.kinds[:0]
	for _, k := range p.Kinds {
		kind := models.ParseDocumentType(k)
		if kind == models.DocumentNone {
			return fmt.Errorf("%w %q for part %s", ErrUnknownKind, k, p.ID)
		}
		p.kinds = append(p.kinds, kind)
	}

	pins := make(map[string]bool, len(p.Pins))
	for _, pin := range p.Pins {
		if pins[pin.ID] {
			return fmt.Errorf("%w %q for part %s", ErrDuplicatePin, pin.ID, p.ID)
		}
		pins[pin.ID] = true
	}
	return nil
}

// Lookup returns the part for an item type.
func (l *Library) Lookup(itemType string) (*Part, bool) {
	p, ok := l.parts[itemType]
	return p, ok
}

// Types returns every item type in sorted order.
func (l *Library) Types() []string {
	types := make([]string, 0, len(l.parts))
	for t := range l.parts {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// TypesFor returns the item types allowed in documents of the kind, sorted.
func (l *Library) TypesFor(kind models.DocumentType) []string {
	var types []string
	for _, t := range l.Types() {
		if l.parts[t].AllowedIn(kind) {
			types = append(types, t)
		}
	}
	return types
}
