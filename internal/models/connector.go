package models

// ConnectorData is the persistable state of one connection.
//
// Each endpoint is either a free-standing node (NodeID) or a child node of an
// item (IsChild with CID and Parent). The IsChild flag selects which fields apply.
type ConnectorData struct {
	ManualRoute bool    `json:"manualRoute" msgpack:"manualRoute"`
	Route       []Point `json:"route,omitempty" msgpack:"route"`

	StartNodeIsChild bool   `json:"startNodeIsChild" msgpack:"startNodeIsChild"`
	StartNodeID      string `json:"startNodeId,omitempty" msgpack:"startNodeId"`
	StartNodeCID     string `json:"startNodeCid,omitempty" msgpack:"startNodeCid"`
	StartNodeParent  string `json:"startNodeParent,omitempty" msgpack:"startNodeParent"`

	EndNodeIsChild bool   `json:"endNodeIsChild" msgpack:"endNodeIsChild"`
	EndNodeID      string `json:"endNodeId,omitempty" msgpack:"endNodeId"`
	EndNodeCID     string `json:"endNodeCid,omitempty" msgpack:"endNodeCid"`
	EndNodeParent  string `json:"endNodeParent,omitempty" msgpack:"endNodeParent"`
}

// Endpoint is one end of a connector.
type Endpoint struct {
	IsChild bool
	NodeID  string
	CID     string
	Parent  string
}

// Start returns the start endpoint.
func (d ConnectorData) Start() Endpoint {
	return Endpoint{IsChild: d.StartNodeIsChild, NodeID: d.StartNodeID, CID: d.StartNodeCID, Parent: d.StartNodeParent}
}

// End returns the end endpoint.
func (d ConnectorData) End() Endpoint {
	return Endpoint{IsChild: d.EndNodeIsChild, NodeID: d.EndNodeID, CID: d.EndNodeCID, Parent: d.EndNodeParent}
}

// SetStart replaces the start endpoint, clearing the fields the
// representation does not use.
func (d *ConnectorData) SetStart(e Endpoint) {
	d.StartNodeIsChild = e.IsChild
	if e.IsChild {
		d.StartNodeID, d.StartNodeCID, d.StartNodeParent = "", e.CID, e.Parent
	} else {
		d.StartNodeID, d.StartNodeCID, d.StartNodeParent = e.NodeID, "", ""
	}
}

// SetEnd replaces the end endpoint.
func (d *ConnectorData) SetEnd(e Endpoint) {
	d.EndNodeIsChild = e.IsChild
	if e.IsChild {
		d.EndNodeID, d.EndNodeCID, d.EndNodeParent = "", e.CID, e.Parent
	} else {
		d.EndNodeID, d.EndNodeCID, d.EndNodeParent = e.NodeID, "", ""
	}
}

// Clone returns a copy with its own route slice.
func (d ConnectorData) Clone() ConnectorData {
	c := d
	c.Route = append([]Point(nil), d.Route...)
	return c
}

// NodeData is the persistable state of a free-standing node.
type NodeData struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}
