package document

// Capture resets the snapshot and fills it from the current state of a live
// document. Protected items, child nodes and anything detached from the
// canvas are left out; connectors missing an endpoint are skipped with a
// debug message.
func (d *Data) Capture(doc Document) {
	if doc == nil {
		return
	}

	d.Reset()

	d.AddItems(doc.Items())
	if g := doc.Graph(); g != nil {
		d.AddConnectors(g.Connectors())
		d.AddNodes(g.Nodes())
	}
	if ms := doc.MicroSettings(); ms != nil {
		d.SetMicroData(ms.MicroData())
	}

	d.Type = doc.Kind()
}

// AddItems adds the record of every persistable item in the list.
func (d *Data) AddItems(items []Item) {
	for _, item := range items {
		if item == nil || !item.OnCanvas() || item.Protected() {
			continue
		}
		d.AddItem(item.ID(), item.ItemData().Clone())
	}
}

// AddConnectors adds the record of every connector with both endpoints.
func (d *Data) AddConnectors(connectors []Connector) {
	for _, c := range connectors {
		if c == nil || !c.OnCanvas() {
			continue
		}
		if c.StartNode() == nil || c.EndNode() == nil {
			d.logger().Debugf("skipping connector %s: start=%v end=%v", c.ID(), c.StartNode() != nil, c.EndNode() != nil)
			continue
		}
		d.AddConnector(c.ID(), c.ConnectorData().Clone())
	}
}

// AddNodes adds the record of every free-standing node. Child nodes are
// captured through their owning item.
func (d *Data) AddNodes(nodes []Node) {
	for _, n := range nodes {
		if n == nil || !n.OnCanvas() || n.IsChildNode() {
			continue
		}
		d.AddNode(n.ID(), n.NodeData())
	}
}
