package workspace

import (
	"slices"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
)

// Node is a connection point: a free junction, or a pin of an item.
type Node struct {
	doc  *Document
	id   string
	x, y int

	// parent is set for child nodes; offsets are relative to it.
	parent           *Item
	cid              string
	offsetX, offsetY int

	visible  bool
	onCanvas bool

	connectors []*Connector
}

var _ document.Node = (*Node)(nil)

func (n *Node) ID() string        { return n.id }
func (n *Node) IsChildNode() bool { return n.parent != nil }
func (n *Node) OnCanvas() bool    { return n.onCanvas }
func (n *Node) Visible() bool     { return n.visible }

// CID returns the pin's local id for child nodes.
func (n *Node) CID() string { return n.cid }

// ParentItem returns the owning item of a child node, or nil.
func (n *Node) ParentItem() document.Item {
	if n.parent == nil {
		return nil
	}
	return n.parent.outer
}

func (n *Node) NodeData() models.NodeData {
	return models.NodeData{X: n.x, Y: n.y}
}

// Move places a free node. Child nodes follow their item and ignore it.
func (n *Node) Move(x, y int) {
	if n.parent != nil {
		return
	}
	n.x, n.y = x, y
}

func (n *Node) SetVisible(visible bool) { n.visible = visible }
func (n *Node) DetachCanvas()           { n.onCanvas = false }

// NumConnectors returns how many connectors end on the node.
func (n *Node) NumConnectors() int { return len(n.connectors) }

// Connector joins two nodes. In circuit documents it is a wire, in flowcode
// documents a flow of control.
type Connector struct {
	doc        *Document
	id         string
	start, end *Node

	manualRoute bool
	route       []models.Point

	visible  bool
	onCanvas bool
}

var _ document.Connector = (*Connector)(nil)

func (c *Connector) ID() string     { return c.id }
func (c *Connector) OnCanvas() bool { return c.onCanvas }
func (c *Connector) Visible() bool  { return c.visible }

// Kind is "flow" in flowcode documents and "electronic" elsewhere.
func (c *Connector) Kind() string {
	if c.doc.kind == models.DocumentFlowcode {
		return "flow"
	}
	return "electronic"
}

func (c *Connector) StartNode() document.Node {
	if c.start == nil {
		return nil
	}
	return c.start
}

func (c *Connector) EndNode() document.Node {
	if c.end == nil {
		return nil
	}
	return c.end
}

// ConnectorData describes the connector's route and endpoints. Endpoints
// on child nodes are recorded by owning item and local id.
func (c *Connector) ConnectorData() models.ConnectorData {
	data := models.ConnectorData{
		ManualRoute: c.manualRoute,
		Route:       slices.Clone(c.route),
	}
	data.SetStart(endpoint(c.start))
	data.SetEnd(endpoint(c.end))
	return data
}

func endpoint(n *Node) models.Endpoint {
	switch {
	case n == nil:
		return models.Endpoint{}
	case n.parent != nil:
		return models.Endpoint{IsChild: true, CID: n.cid, Parent: n.parent.id}
	default:
		return models.Endpoint{NodeID: n.id}
	}
}

// RestoreFromConnectorData applies the route. Endpoints are fixed at
// creation.
func (c *Connector) RestoreFromConnectorData(data models.ConnectorData) {
	c.manualRoute = data.ManualRoute
	c.route = slices.Clone(data.Route)
}

func (c *Connector) SetVisible(visible bool) { c.visible = visible }
func (c *Connector) DetachCanvas()           { c.onCanvas = false }

// disconnect unhooks the connector from both nodes.
func (c *Connector) disconnect() {
	for _, n := range []*Node{c.start, c.end} {
		if n == nil {
			continue
		}
		n.connectors = slices.DeleteFunc(n.connectors, func(other *Connector) bool { return other == c })
	}
	c.start, c.end = nil, nil
}
