package workspace

import (
	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/models"
)

// Item is a placed part.
type Item struct {
	doc      *Document
	id       string
	part     *library.Part
	data     models.ItemData
	parentID string

	visible  bool
	onCanvas bool
	finished bool

	// nodes are keyed by the pin's local id.
	nodes map[string]*Node

	// outer is what the document hands out: the item itself or the
	// container wrapping it.
	outer document.Item
	sub   *Subcircuit
}

var _ document.Item = (*Item)(nil)

func (it *Item) ID() string          { return it.id }
func (it *Item) Type() string        { return it.part.ID }
func (it *Item) Protected() bool     { return it.part.Protected }
func (it *Item) OnCanvas() bool      { return it.onCanvas }
func (it *Item) Visible() bool       { return it.visible }
func (it *Item) Finished() bool      { return it.finished }
func (it *Item) Part() *library.Part { return it.part }
func (it *Item) ParentID() string    { return it.parentID }

// ItemData returns a copy of the item's persistable state.
func (it *Item) ItemData() models.ItemData {
	data := it.data.Clone()
	data.Type = it.part.ID
	data.ParentID = it.parentID
	return data
}

// RestoreFromItemData applies a record to the item. The type stays that of
// the part; a parent id that names no live item clears the parent.
func (it *Item) RestoreFromItemData(data models.ItemData) {
	it.data = data.Clone()
	it.data.Type = it.part.ID

	var parent document.Item
	if data.ParentID != "" {
		if parent = it.doc.ItemWithID(data.ParentID); parent == nil {
			it.doc.log.Warnf("item %s: parent %q does not exist", it.id, data.ParentID)
		}
	}
	it.SetParentItem(parent)
	it.Move(data.X, data.Y)
}

// Move places the item and drags its child nodes along.
func (it *Item) Move(x, y int) {
	it.data.X, it.data.Y = x, y
	for _, n := range it.nodes {
		n.x, n.y = x+n.offsetX, y+n.offsetY
	}
}

func (it *Item) FinishedCreation() {
	it.finished = true
}

// SetVisible shows or hides the item and its child nodes.
func (it *Item) SetVisible(visible bool) {
	it.visible = visible
	for _, n := range it.nodes {
		n.visible = visible
	}
}

// DetachCanvas takes the item and its child nodes off the canvas.
func (it *Item) DetachCanvas() {
	it.onCanvas = false
	for _, n := range it.nodes {
		n.onCanvas = false
	}
}

// SetParentItem reparents the item. An item is never its own ancestor.
func (it *Item) SetParentItem(parent document.Item) {
	if parent == nil {
		it.parentID = ""
		return
	}
	for id := parent.ID(); id != ""; {
		if id == it.id {
			it.doc.log.Warnf("refusing to make %s an ancestor of itself", it.id)
			return
		}
		p, ok := it.doc.items[id]
		if !ok {
			break
		}
		id = p.parentID
	}
	it.parentID = parent.ID()
}

// ChildNode returns the child node for a pin's local id, or nil.
func (it *Item) ChildNode(cid string) document.Node {
	if n, ok := it.nodes[cid]; ok {
		return n
	}
	return nil
}

// childNodeID is the preferred document-wide id of a child node.
func (it *Item) childNodeID(cid string) string {
	return it.id + "-" + cid
}

func (it *Item) addChildNode(pin library.Pin) *Node {
	id := it.childNodeID(pin.ID)
	if !it.doc.claimUID(id) {
		it.doc.log.Warnf("node id %s is in use, generating another for %s pin %s", id, it.id, pin.ID)
		id = it.doc.GenerateUID(id)
	}
	n := &Node{
		doc:      it.doc,
		id:       id,
		parent:   it,
		cid:      pin.ID,
		offsetX:  pin.X,
		offsetY:  pin.Y,
		x:        it.data.X + pin.X,
		y:        it.data.Y + pin.Y,
		visible:  it.visible,
		onCanvas: it.onCanvas,
	}
	it.nodes[pin.ID] = n
	it.doc.nodes[id] = n
	return n
}

// FlowContainer is a flowcode part that holds other flow parts. When
// collapsed its contents are hidden.
type FlowContainer struct {
	*Item
}

var _ document.ContainedVisibilityUpdater = (*FlowContainer)(nil)

// Expanded reports the container state. Containers are expanded unless the
// "expanded" property says otherwise.
func (fc *FlowContainer) Expanded() bool {
	expanded, ok := fc.data.DataBool["expanded"]
	return !ok || expanded
}

// UpdateContainedVisibility shows the items inside the container when it is
// visible and expanded, and hides them otherwise.
func (fc *FlowContainer) UpdateContainedVisibility() {
	show := fc.visible && fc.Expanded()
	for _, it := range fc.doc.items {
		if it.onCanvas && fc.doc.isDescendant(it, fc.id) {
			it.SetVisible(show)
		}
	}
}

func (d *Document) isDescendant(it *Item, ancestorID string) bool {
	seen := make(map[string]bool)
	for id := it.parentID; id != "" && !seen[id]; {
		if id == ancestorID {
			return true
		}
		seen[id] = true
		p, ok := d.items[id]
		if !ok {
			return false
		}
		id = p.parentID
	}
	return false
}
