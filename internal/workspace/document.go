// Package workspace is an in-memory live item document: the target that
// snapshots are captured from and reconciled into.
package workspace

import (
	"errors"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/google/uuid"
)

// MicrocontrollerType is the protected item every flowcode document owns.
const MicrocontrollerType = "flow/microcontroller"

// Workspace errors
var (
	ErrIDInUse        = errors.New("id already in use")
	ErrForeignNode    = errors.New("node belongs to another document")
	ErrSelfConnection = errors.New("connector start and end are the same node")
)

// Document is a live document. It is not safe for concurrent use; callers
// serialize access (see the session package).
type Document struct {
	kind models.DocumentType
	lib  *library.Library
	log  logging.Logger

	items      map[string]*Item
	nodes      map[string]*Node
	connectors map[string]*Connector

	uids    map[string]struct{}
	nextUID int

	deleteItems      []*Item
	deleteNodes      []*Node
	deleteConnectors []*Connector

	selection map[string]struct{}
	micro     *MicroSettings
}

var (
	_ document.Document = (*Document)(nil)
	_ document.Graph    = (*Document)(nil)
)

// New returns an empty document of the given kind. Flowcode documents get
// their microcontroller settings and protected microcontroller item.
func New(kind models.DocumentType, lib *library.Library, log logging.Logger) *Document {
	d := &Document{
		kind:       kind,
		lib:        lib,
		log:        logging.OrDiscard(log),
		items:      make(map[string]*Item),
		nodes:      make(map[string]*Node),
		connectors: make(map[string]*Connector),
		uids:       make(map[string]struct{}),
		selection:  make(map[string]struct{}),
	}

	if kind == models.DocumentFlowcode {
		d.micro = &MicroSettings{data: models.NewMicroData()}
		if part, ok := lib.Lookup(MicrocontrollerType); ok {
			d.newItem(part, false, "microcontroller", true)
		}
	}
	return d
}

// Kind returns the document type.
func (d *Document) Kind() models.DocumentType {
	return d.kind
}

// Library returns the part catalog items are built from.
func (d *Document) Library() *library.Library {
	return d.lib
}

// Graph returns the document itself for circuit and flowcode documents.
func (d *Document) Graph() document.Graph {
	if !d.kind.HasGraph() {
		return nil
	}
	return d
}

// MicroSettings returns the microcontroller settings of flowcode documents.
func (d *Document) MicroSettings() document.MicroSettings {
	if d.micro == nil {
		return nil
	}
	return d.micro
}

// GenerateUID reserves and returns an id based on preferred. The hint is
// lowercased and any "__" suffix dropped; the bare hint is tried first, then
// hint__N. Without a hint a random uuid is used.
func (d *Document) GenerateUID(preferred string) string {
	base := strings.ToLower(strings.TrimSpace(preferred))
	if i := strings.Index(base, "__"); i >= 0 {
		base = base[:i]
	}
	if base == "" {
		id := uuid.New().String()
		d.uids[id] = struct{}{}
		return id
	}

	id := base
	for !d.registerUID(id) {
		d.nextUID++
		id = base + "__" + strconv.Itoa(d.nextUID)
	}
	return id
}

// UnregisterUID releases an id reservation.
func (d *Document) UnregisterUID(id string) {
	delete(d.uids, id)
}

func (d *Document) registerUID(id string) bool {
	if _, taken := d.uids[id]; taken {
		return false
	}
	d.uids[id] = struct{}{}
	return true
}

// claimUID takes id for a new entity. An id that is reserved but has no live
// owner may be claimed; this is how merged entities keep ids handed out by
// GenerateUID.
func (d *Document) claimUID(id string) bool {
	if id == "" || d.owned(id) {
		return false
	}
	d.uids[id] = struct{}{}
	return true
}

func (d *Document) owned(id string) bool {
	_, item := d.items[id]
	_, node := d.nodes[id]
	_, conn := d.connectors[id]
	return item || node || conn
}

// Items returns the live items in id order.
func (d *Document) Items() []document.Item {
	out := make([]document.Item, 0, len(d.items))
	for _, id := range slices.Sorted(maps.Keys(d.items)) {
		out = append(out, d.items[id].outer)
	}
	return out
}

// ItemWithID returns the item or nil.
func (d *Document) ItemWithID(id string) document.Item {
	if it, ok := d.items[id]; ok {
		return it.outer
	}
	return nil
}

// IsValidItem reports whether the item's part belongs in this kind of
// document, and that a unique part is not already present.
func (d *Document) IsValidItem(item document.Item) bool {
	it, ok := d.items[item.ID()]
	if !ok || it.outer != item {
		return false
	}
	if !it.part.AllowedIn(d.kind) {
		return false
	}
	if it.part.Unique {
		for id, other := range d.items {
			if id != it.id && other.part.ID == it.part.ID {
				return false
			}
		}
	}
	return true
}

// RemoveItem queues the item, its descendants and child nodes for deletion.
func (d *Document) RemoveItem(item document.Item) {
	if item == nil {
		return
	}
	if it, ok := d.items[item.ID()]; ok {
		d.deleteItems = append(d.deleteItems, it)
	}
}

// SelectItem adds the item to the selection.
func (d *Document) SelectItem(item document.Item) {
	if item != nil {
		d.selection[item.ID()] = struct{}{}
	}
}

// SelectConnector adds the connector to the selection.
func (d *Document) SelectConnector(c document.Connector) {
	if c != nil {
		d.selection[c.ID()] = struct{}{}
	}
}

// Selection returns the ids of selected items and connectors in id order.
func (d *Document) Selection() []string {
	return slices.Sorted(maps.Keys(d.selection))
}

// ClearSelection empties the selection.
func (d *Document) ClearSelection() {
	clear(d.selection)
}

// Nodes returns every node, child nodes included, in id order.
func (d *Document) Nodes() []document.Node {
	out := make([]document.Node, 0, len(d.nodes))
	for _, id := range slices.Sorted(maps.Keys(d.nodes)) {
		out = append(out, d.nodes[id])
	}
	return out
}

// Connectors returns the connectors in id order.
func (d *Document) Connectors() []document.Connector {
	out := make([]document.Connector, 0, len(d.connectors))
	for _, id := range slices.Sorted(maps.Keys(d.connectors)) {
		out = append(out, d.connectors[id])
	}
	return out
}

// NodeWithID returns the node or nil.
func (d *Document) NodeWithID(id string) document.Node {
	if n, ok := d.nodes[id]; ok {
		return n
	}
	return nil
}

// ConnectorWithID returns the connector or nil.
func (d *Document) ConnectorWithID(id string) document.Connector {
	if c, ok := d.connectors[id]; ok {
		return c
	}
	return nil
}

// RemoveNode queues the node and its connectors for deletion.
func (d *Document) RemoveNode(n document.Node) {
	if n == nil {
		return
	}
	if node, ok := d.nodes[n.ID()]; ok {
		d.deleteNodes = append(d.deleteNodes, node)
	}
}

// RemoveConnector queues the connector for deletion.
func (d *Document) RemoveConnector(c document.Connector) {
	if c == nil {
		return
	}
	if conn, ok := d.connectors[c.ID()]; ok {
		d.deleteConnectors = append(d.deleteConnectors, conn)
	}
}

// FlushDeleteList deletes everything queued for removal. Removing an item
// takes its descendant items, child nodes and (for subcircuits) adopted
// entities with it; removing a node takes its connectors with it.
func (d *Document) FlushDeleteList() {
	items := make(map[string]*Item)
	var collect func(it *Item)
	collect = func(it *Item) {
		if _, done := items[it.id]; done {
			return
		}
		items[it.id] = it
		for _, other := range d.items {
			if other.parentID == it.id {
				collect(other)
			}
		}
		if it.sub != nil {
			for _, owned := range it.sub.ownedItems {
				collect(owned)
			}
		}
	}
	for _, it := range d.deleteItems {
		collect(it)
	}

	nodes := make(map[string]*Node)
	for _, n := range d.deleteNodes {
		nodes[n.id] = n
	}
	connectors := make(map[string]*Connector)
	for _, c := range d.deleteConnectors {
		connectors[c.id] = c
	}
	d.purge(items, nodes, connectors)

	d.deleteItems = nil
	d.deleteNodes = nil
	d.deleteConnectors = nil
}

// purge deletes entities immediately, along with the child nodes of the
// items, everything adopted by subcircuits among them and every connector
// attached to a deleted node.
func (d *Document) purge(items map[string]*Item, nodes map[string]*Node, connectors map[string]*Connector) {
	if nodes == nil {
		nodes = make(map[string]*Node)
	}
	if connectors == nil {
		connectors = make(map[string]*Connector)
	}
	for _, it := range items {
		for _, n := range it.nodes {
			nodes[n.id] = n
		}
		if it.sub != nil {
			for _, n := range it.sub.ownedNodes {
				nodes[n.id] = n
			}
			for _, c := range it.sub.ownedConnectors {
				connectors[c.id] = c
			}
		}
	}
	for _, n := range nodes {
		for _, c := range n.connectors {
			connectors[c.id] = c
		}
	}

	for id, c := range connectors {
		c.disconnect()
		delete(d.connectors, id)
		delete(d.selection, id)
		d.UnregisterUID(id)
	}
	for id := range nodes {
		delete(d.nodes, id)
		d.UnregisterUID(id)
	}
	for id := range items {
		delete(d.items, id)
		delete(d.selection, id)
		d.UnregisterUID(id)
	}

	if len(items)+len(nodes)+len(connectors) > 0 {
		d.log.Debugf("deleted %d items, %d nodes, %d connectors", len(items), len(nodes), len(connectors))
	}
}

// NewJunctionNode creates a free node at (x, y). An empty id gets a
// generated one.
func (d *Document) NewJunctionNode(id string, x, y int) (document.Node, error) {
	if id == "" {
		id = d.GenerateUID("node")
	} else if !d.claimUID(id) {
		return nil, ErrIDInUse
	}

	n := &Node{doc: d, id: id, x: x, y: y, visible: true, onCanvas: true}
	d.nodes[id] = n
	return n, nil
}

// Connect joins two nodes of this document. An empty id gets a generated one.
func (d *Document) Connect(id string, start, end document.Node) (document.Connector, error) {
	s, ok := start.(*Node)
	if !ok || d.nodes[s.id] != s {
		return nil, ErrForeignNode
	}
	e, ok := end.(*Node)
	if !ok || d.nodes[e.id] != e {
		return nil, ErrForeignNode
	}
	if s == e {
		return nil, ErrSelfConnection
	}

	if id == "" {
		id = d.GenerateUID("connector")
	} else if !d.claimUID(id) {
		return nil, ErrIDInUse
	}

	c := &Connector{doc: d, id: id, start: s, end: e, visible: true, onCanvas: true}
	s.connectors = append(s.connectors, c)
	e.connectors = append(e.connectors, c)
	d.connectors[id] = c
	return c, nil
}

// newItem builds and registers an item of the part. New items get an id
// derived from the part name; restored ones keep preferredID when it is free.
func (d *Document) newItem(part *library.Part, isNew bool, preferredID string, show bool) *Item {
	var id string
	switch {
	case !isNew && d.claimUID(preferredID):
		id = preferredID
	case preferredID != "":
		id = d.GenerateUID(preferredID)
	default:
		name := part.ID
		if i := strings.LastIndex(name, "/"); i >= 0 {
			name = name[i+1:]
		}
		id = d.GenerateUID(name)
	}

	it := &Item{
		doc:      d,
		id:       id,
		part:     part,
		data:     models.NewItemData(),
		visible:  show,
		onCanvas: true,
		nodes:    make(map[string]*Node),
	}
	it.data.Type = part.ID
	it.outer = it

	switch {
	case part.Subcircuit:
		it.sub = &Subcircuit{Item: it}
		it.outer = it.sub
	case part.Container:
		it.outer = &FlowContainer{Item: it}
	}

	d.items[id] = it
	for _, pin := range part.Pins {
		it.addChildNode(pin)
	}
	return it
}
