package document

import "github.com/Physolia/ktechlab/internal/models"

// RegenerateIDs gives every item, node and connector a fresh id from the
// authority and rewrites all references to match.
//
// All keys are collected before any reference is rewritten, since a parent
// or endpoint may point at an id later in key order. The empty id maps to
// itself. A reference to an id outside the snapshot becomes empty.
func (d *Data) RegenerateIDs(authority IDAuthority) {
	if authority == nil {
		return
	}

	replaced := map[string]string{"": ""}
	remap := func(old string) string {
		if id, ok := replaced[old]; ok {
			return id
		}
		id := authority.GenerateUID(old)
		replaced[old] = id
		return id
	}

	items := make(map[string]models.ItemData, len(d.Items))
	for _, id := range d.ItemIDs() {
		items[remap(id)] = d.Items[id]
	}
	nodes := make(map[string]models.NodeData, len(d.Nodes))
	for _, id := range d.NodeIDs() {
		nodes[remap(id)] = d.Nodes[id]
	}
	connectors := make(map[string]models.ConnectorData, len(d.Connectors))
	for _, id := range d.ConnectorIDs() {
		connectors[remap(id)] = d.Connectors[id]
	}

	lookup := func(kind, owner, ref string) string {
		id, ok := replaced[ref]
		if !ok {
			d.logger().Warnf("%s %s references unknown id %q", kind, owner, ref)
		}
		return id
	}

	for id, item := range items {
		item.ParentID = lookup("item", id, item.ParentID)
		items[id] = item
	}
	for id, c := range connectors {
		c.StartNodeParent = lookup("connector", id, c.StartNodeParent)
		c.EndNodeParent = lookup("connector", id, c.EndNodeParent)
		c.StartNodeID = lookup("connector", id, c.StartNodeID)
		c.EndNodeID = lookup("connector", id, c.EndNodeID)
		connectors[id] = c
	}

	d.Items = items
	d.Nodes = nodes
	d.Connectors = connectors
}
