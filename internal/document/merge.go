package document

import "github.com/Physolia/ktechlab/internal/models"

// Report counts what a reconciliation did to the live document.
type Report struct {
	NodesCreated       int `json:"nodesCreated"`
	NodesFailed        int `json:"nodesFailed"`
	ItemsCreated       int `json:"itemsCreated"`
	ItemsFailed        int `json:"itemsFailed"`
	ItemsRestored      int `json:"itemsRestored"`
	ConnectorsCreated  int `json:"connectorsCreated"`
	ConnectorsSkipped  int `json:"connectorsSkipped"`
	ConnectorsRestored int `json:"connectorsRestored"`
	ItemsRemoved       int `json:"itemsRemoved"`
	NodesRemoved       int `json:"nodesRemoved"`
	ConnectorsRemoved  int `json:"connectorsRemoved"`
}

// Skipped is the number of entities that could not be materialized.
func (r Report) Skipped() int {
	return r.NodesFailed + r.ItemsFailed + r.ConnectorsSkipped
}

// Merge creates every entity of the snapshot missing from doc and restores
// the state of every entity present in both. It never deletes.
//
// Entities that cannot be built are logged and skipped; only a nil document
// is an error.
func (d *Data) Merge(doc Document, factory ItemFactory, selectNew bool) (Report, error) {
	var report Report
	if doc == nil {
		return report, ErrNilDocument
	}

	g := doc.Graph()
	if g != nil {
		d.mergeNodes(g, &report)
	}
	d.mergeItems(doc, factory, selectNew, &report)
	if g != nil {
		d.mergeConnectors(doc, g, selectNew, &report)
	}

	for _, item := range doc.Items() {
		if fc, ok := item.(ContainedVisibilityUpdater); ok {
			fc.UpdateContainedVisibility()
		}
	}

	return report, nil
}

func (d *Data) mergeNodes(g Graph, report *Report) {
	ids := d.NodeIDs()
	for _, id := range ids {
		if g.NodeWithID(id) != nil {
			continue
		}
		n := d.Nodes[id]
		if _, err := g.NewJunctionNode(id, n.X, n.Y); err != nil {
			d.logger().Errorf("unable to create node %s: %v", id, err)
			report.NodesFailed++
			continue
		}
		report.NodesCreated++
	}
	for _, id := range ids {
		if node := g.NodeWithID(id); node != nil {
			n := d.Nodes[id]
			node.Move(n.X, n.Y)
		}
	}
}

func (d *Data) mergeItems(doc Document, factory ItemFactory, selectNew bool, report *Report) {
	ids := d.ItemIDs()
	for _, id := range ids {
		data := d.Items[id]
		if data.Type == "" || doc.ItemWithID(id) != nil {
			continue
		}
		if factory == nil {
			d.logger().Errorf("cannot create item %s of type %q: %v", id, data.Type, ErrNoFactory)
			report.ItemsFailed++
			continue
		}

		item := factory.CreateItem(data.Type, doc, false, id, false)
		if item != nil && !doc.IsValidItem(item) {
			d.logger().Warnf("attempted to create invalid item with id: %s", id)
			doc.RemoveItem(item)
			doc.FlushDeleteList()
			item = nil
		}
		if item == nil {
			d.logger().Errorf("unable to create item %s of type %q", id, data.Type)
			report.ItemsFailed++
			continue
		}

		// Positioned before restore so a later reparent does not move it twice.
		item.Move(data.X, data.Y)
		report.ItemsCreated++
	}

	for _, id := range ids {
		item := doc.ItemWithID(id)
		if item == nil {
			continue
		}
		item.RestoreFromItemData(d.Items[id].Clone())
		item.FinishedCreation()
		if selectNew {
			doc.SelectItem(item)
		}
		item.SetVisible(true)
		report.ItemsRestored++
	}
}

func (d *Data) mergeConnectors(doc Document, g Graph, selectNew bool, report *Report) {
	ids := d.ConnectorIDs()
	for _, id := range ids {
		if g.ConnectorWithID(id) != nil {
			continue
		}
		data := d.Connectors[id]

		start := d.resolveEndpoint(doc, g, data.Start())
		end := d.resolveEndpoint(doc, g, data.End())
		if start == nil || end == nil {
			d.logger().Errorf("end and start nodes for connector %s do not both exist", id)
			report.ConnectorsSkipped++
			continue
		}

		// The id may still be reserved by the authority without a live
		// connector behind it.
		g.UnregisterUID(id)

		if _, err := g.Connect(id, start, end); err != nil {
			d.logger().Errorf("unable to create connector %s: %v", id, err)
			report.ConnectorsSkipped++
			continue
		}
		report.ConnectorsCreated++
	}

	for _, id := range ids {
		c := g.ConnectorWithID(id)
		if c == nil {
			continue
		}
		c.RestoreFromConnectorData(d.Connectors[id].Clone())
		if selectNew {
			g.SelectConnector(c)
		}
		report.ConnectorsRestored++
	}
}

func (d *Data) resolveEndpoint(doc Document, g Graph, ep models.Endpoint) Node {
	if !ep.IsChild {
		return g.NodeWithID(ep.NodeID)
	}
	parent := doc.ItemWithID(ep.Parent)
	if parent == nil {
		d.logger().Errorf("unable to find node parent with id: %s", ep.Parent)
		return nil
	}
	return parent.ChildNode(ep.CID)
}
