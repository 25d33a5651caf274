// Package document holds the snapshot of an item document and the engine that
// reconciles a snapshot with a live document graph.
package document

import (
	"maps"
	"slices"

	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/models"
)

// Revision is the file format revision written by this package.
const Revision = "1"

// Data is a snapshot of one document: records keyed by id plus the
// microcontroller side document of flowcode documents.
//
// A Data is written once and consumed once by Merge or Restore. It is not
// safe for concurrent use.
type Data struct {
	Type       models.DocumentType             `msgpack:"type"`
	Items      map[string]models.ItemData      `msgpack:"items"`
	Connectors map[string]models.ConnectorData `msgpack:"connectors"`
	Nodes      map[string]models.NodeData      `msgpack:"nodes"`
	Micro      models.MicroData                `msgpack:"micro"`

	log logging.Logger
}

// New returns an empty snapshot of the given type.
func New(docType models.DocumentType) *Data {
	d := &Data{}
	d.Reset()
	d.Type = docType
	return d
}

// SetLogger sets where structural warnings go. A nil logger discards them.
func (d *Data) SetLogger(l logging.Logger) {
	d.log = l
}

func (d *Data) logger() logging.Logger {
	if d.log == nil {
		d.log = logging.Discard()
	}
	return d.log
}

// Reset empties the snapshot and clears its type.
func (d *Data) Reset() {
	d.Items = make(map[string]models.ItemData)
	d.Connectors = make(map[string]models.ConnectorData)
	d.Nodes = make(map[string]models.NodeData)
	d.Micro = models.NewMicroData()
	d.Type = models.DocumentNone
}

// TypeString returns the tag written to the document root.
func (d *Data) TypeString() string {
	return d.Type.String()
}

// Revision returns the format revision this snapshot serializes as.
func (d *Data) Revision() string {
	return Revision
}

// AddItem stores an item record, warning when it replaces an existing one.
func (d *Data) AddItem(id string, item models.ItemData) {
	if _, ok := d.Items[id]; ok {
		d.logger().Warnf("overwriting item: %s", id)
	}
	d.Items[id] = item
}

// AddConnector stores a connector record, warning when it replaces an existing one.
func (d *Data) AddConnector(id string, c models.ConnectorData) {
	if _, ok := d.Connectors[id]; ok {
		d.logger().Warnf("overwriting connector: %s", id)
	}
	d.Connectors[id] = c
}

// AddNode stores a node record, warning when it replaces an existing one.
func (d *Data) AddNode(id string, n models.NodeData) {
	if _, ok := d.Nodes[id]; ok {
		d.logger().Warnf("overwriting node: %s", id)
	}
	d.Nodes[id] = n
}

// SetMicroData replaces the microcontroller side document.
func (d *Data) SetMicroData(m models.MicroData) {
	d.Micro = m
}

// IsEmpty reports whether the snapshot holds no entities.
func (d *Data) IsEmpty() bool {
	return len(d.Items) == 0 && len(d.Connectors) == 0 && len(d.Nodes) == 0
}

// ItemIDs returns the item ids in sorted order.
func (d *Data) ItemIDs() []string {
	return slices.Sorted(maps.Keys(d.Items))
}

// ConnectorIDs returns the connector ids in sorted order.
func (d *Data) ConnectorIDs() []string {
	return slices.Sorted(maps.Keys(d.Connectors))
}

// NodeIDs returns the node ids in sorted order.
func (d *Data) NodeIDs() []string {
	return slices.Sorted(maps.Keys(d.Nodes))
}

// TranslateContents shifts every item and free node by (dx, dy). Connector
// routes are stored in grid cells and move by (dx/8, dy/8).
func (d *Data) TranslateContents(dx, dy int) {
	for id, item := range d.Items {
		item.X += dx
		item.Y += dy
		d.Items[id] = item
	}
	for id, node := range d.Nodes {
		node.X += dx
		node.Y += dy
		d.Nodes[id] = node
	}
	for id, c := range d.Connectors {
		for i := range c.Route {
			c.Route[i].X += dx / 8
			c.Route[i].Y += dy / 8
		}
		d.Connectors[id] = c
	}
}

// Normalize fills in the maps a decoded snapshot may lack so it can be
// populated and serialized like a fresh one.
func (d *Data) Normalize() {
	if d.Items == nil {
		d.Items = make(map[string]models.ItemData)
	}
	if d.Connectors == nil {
		d.Connectors = make(map[string]models.ConnectorData)
	}
	if d.Nodes == nil {
		d.Nodes = make(map[string]models.NodeData)
	}
	for id, item := range d.Items {
		d.Items[id] = item.Clone()
	}
	if d.Micro.PinMappings == nil {
		d.Micro.PinMappings = make(map[string]models.PinMapping)
	}
	if d.Micro.PinMap == nil {
		d.Micro.PinMap = make(map[string]models.PinData)
	}
	if d.Micro.VariableMap == nil {
		d.Micro.VariableMap = make(map[string]string)
	}
}
