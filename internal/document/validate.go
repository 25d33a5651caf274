package document

import "github.com/Physolia/ktechlab/internal/models"

// Validate lists references that do not resolve inside the snapshot. A
// self-contained snapshot returns nil.
func (d *Data) Validate() []Problem {
	var problems []Problem

	for _, id := range d.ItemIDs() {
		item := d.Items[id]
		if item.ParentID == "" {
			continue
		}
		if _, ok := d.Items[item.ParentID]; !ok {
			problems = append(problems, Problem{Kind: "item", ID: id, Field: "parent", Target: item.ParentID})
		}
	}

	for _, id := range d.ConnectorIDs() {
		c := d.Connectors[id]
		problems = d.validateEndpoint(problems, id, "start", c.Start())
		problems = d.validateEndpoint(problems, id, "end", c.End())
	}

	return problems
}

func (d *Data) validateEndpoint(problems []Problem, id, side string, ep models.Endpoint) []Problem {
	if ep.IsChild {
		if _, ok := d.Items[ep.Parent]; !ok {
			problems = append(problems, Problem{Kind: "connector", ID: id, Field: side + "-node-parent", Target: ep.Parent})
		}
		return problems
	}
	if _, ok := d.Nodes[ep.NodeID]; !ok {
		problems = append(problems, Problem{Kind: "connector", ID: id, Field: side + "-node-id", Target: ep.NodeID})
	}
	return problems
}
