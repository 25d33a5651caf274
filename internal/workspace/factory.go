package workspace

import (
	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/library"
)

// Factory builds items from a part catalog into workspace documents.
type Factory struct {
	lib *library.Library
}

var _ document.ItemFactory = (*Factory)(nil)

// NewFactory returns a factory for the catalog.
func NewFactory(lib *library.Library) *Factory {
	return &Factory{lib: lib}
}

// CreateItem builds an item of the type. It returns nil for unknown types
// and documents that are not workspace documents.
func (f *Factory) CreateItem(itemType string, doc document.Document, isNew bool, preferredID string, show bool) document.Item {
	d, ok := doc.(*Document)
	if !ok {
		return nil
	}
	part, ok := f.lib.Lookup(itemType)
	if !ok {
		d.log.Warnf("unknown item type %q", itemType)
		return nil
	}
	return d.newItem(part, isNew, preferredID, show).outer
}
