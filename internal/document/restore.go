package document

// Restore replaces the whole content of doc with the snapshot: it applies
// the microcontroller settings, merges without selection, then deletes every
// live item, free node and connector the snapshot does not name. Deletions
// are flushed once at the end.
func (d *Data) Restore(doc Document, factory ItemFactory) (Report, error) {
	if doc == nil {
		return Report{}, ErrNilDocument
	}

	if ms := doc.MicroSettings(); ms != nil && !d.Micro.IsEmpty() {
		ms.SetMicroType(d.Micro.ID)
		ms.RestoreFromMicroData(d.Micro)
	}

	report, err := d.Merge(doc, factory, false)
	if err != nil {
		return report, err
	}

	for _, item := range doc.Items() {
		if item == nil {
			continue
		}
		if _, keep := d.Items[item.ID()]; keep {
			continue
		}
		if item.OnCanvas() && !item.Protected() {
			doc.RemoveItem(item)
			report.ItemsRemoved++
		}
	}

	if g := doc.Graph(); g != nil {
		for _, n := range g.Nodes() {
			if n == nil {
				continue
			}
			if _, keep := d.Nodes[n.ID()]; keep {
				continue
			}
			if n.OnCanvas() && !n.IsChildNode() {
				g.RemoveNode(n)
				report.NodesRemoved++
			}
		}
		for _, c := range g.Connectors() {
			if c == nil {
				continue
			}
			if _, keep := d.Connectors[c.ID()]; keep {
				continue
			}
			if c.OnCanvas() {
				g.RemoveConnector(c)
				report.ConnectorsRemoved++
			}
		}
	}

	doc.FlushDeleteList()
	return report, nil
}
