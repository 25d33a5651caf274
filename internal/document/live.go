package document

import "github.com/Physolia/ktechlab/internal/models"

// IDAuthority hands out ids that are unique within one live document.
type IDAuthority interface {
	// GenerateUID returns a unique id, using preferred as a hint.
	GenerateUID(preferred string) string
}

// Item is a placed object in a live document.
type Item interface {
	ID() string
	Type() string

	// Protected items are always present (e.g. the microcontroller of a
	// flowcode document). They are never captured nor removed by Restore.
	Protected() bool
	OnCanvas() bool

	ItemData() models.ItemData
	RestoreFromItemData(data models.ItemData)
	Move(x, y int)
	FinishedCreation()
	SetVisible(visible bool)
	DetachCanvas()
	SetParentItem(parent Item)

	// ChildNode returns the node owned by this item under the item-local id,
	// or nil.
	ChildNode(cid string) Node
}

// Node is a connection point in a live document.
type Node interface {
	ID() string
	IsChildNode() bool
	OnCanvas() bool
	NodeData() models.NodeData
	Move(x, y int)
	SetVisible(visible bool)
	DetachCanvas()
}

// Connector is a connection between two nodes in a live document.
type Connector interface {
	ID() string
	OnCanvas() bool
	StartNode() Node
	EndNode() Node
	ConnectorData() models.ConnectorData
	RestoreFromConnectorData(data models.ConnectorData)
	SetVisible(visible bool)
	DetachCanvas()
}

// NodeFactory builds the free node kind of one document type.
type NodeFactory interface {
	NewJunctionNode(id string, x, y int) (Node, error)
}

// ConnectorFactory builds the connector kind of one document type and
// registers it at both endpoints.
type ConnectorFactory interface {
	Connect(id string, start, end Node) (Connector, error)
}

// Graph is the node and connector capability of circuit and flowcode
// documents. Documents of other kinds return a nil Graph.
type Graph interface {
	NodeFactory
	ConnectorFactory

	Nodes() []Node
	Connectors() []Connector
	NodeWithID(id string) Node
	ConnectorWithID(id string) Connector

	// RemoveNode and RemoveConnector queue deletion until FlushDeleteList.
	RemoveNode(n Node)
	RemoveConnector(c Connector)

	SelectConnector(c Connector)

	// UnregisterUID drops a stale id reservation.
	UnregisterUID(id string)
}

// MicroSettings is the microcontroller configuration of a flowcode document.
type MicroSettings interface {
	SetMicroType(id string)
	RestoreFromMicroData(data models.MicroData)
	MicroData() models.MicroData
}

// Document is a live, mutable item document.
type Document interface {
	IDAuthority

	Kind() models.DocumentType
	Items() []Item
	ItemWithID(id string) Item

	// IsValidItem reports whether a freshly constructed item may live in
	// this document.
	IsValidItem(item Item) bool

	// RemoveItem queues deletion until FlushDeleteList.
	RemoveItem(item Item)
	FlushDeleteList()

	SelectItem(item Item)

	// Graph returns nil for documents without nodes and connectors.
	Graph() Graph

	// MicroSettings returns nil for documents without a microcontroller.
	MicroSettings() MicroSettings
}

// ContainedVisibilityUpdater is implemented by container items that derive
// the visibility of their children.
type ContainedVisibilityUpdater interface {
	UpdateContainedVisibility()
}

// ItemFactory constructs items by type string.
type ItemFactory interface {
	CreateItem(itemType string, doc Document, isNew bool, preferredID string, show bool) Item
}

// Subcircuit is a container item that turns an extracted subgraph into a
// black-box component. Adopted children are torn down with the container.
type Subcircuit interface {
	Item

	Document() Document
	SetNumExtCon(n int)
	SetExtConName(pin int, name string)
	AdoptItem(item Item)
	AdoptConnector(c Connector)
	AdoptNode(n Node)
	DoneSCInit()
}
