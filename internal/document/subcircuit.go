package document

import (
	"maps"
	"slices"
	"strconv"

	"github.com/Physolia/ktechlab/internal/models"
)

// ExternalConnectionType is the item type marking a future subcircuit pin.
const ExternalConnectionType = "ec/external_connection"

// ExternalPin is an external connection marker and the pin it becomes.
type ExternalPin struct {
	ItemID string `json:"itemId"`
	Pin    int    `json:"pin"`
	Name   string `json:"name"`
}

// AssignExternalPins numbers the markers of the given type. Markers are
// ordered by x; the first ceil(n/2) form the left side, numbered 0 upward by
// ascending y, and the rest form the right side, numbered n-1 downward by
// ascending y. Ties keep id order.
func AssignExternalPins(items map[string]models.ItemData, markerType string) []ExternalPin {
	var ids []string
	for _, id := range slices.Sorted(maps.Keys(items)) {
		if items[id].Type == markerType {
			ids = append(ids, id)
		}
	}

	slices.SortStableFunc(ids, func(a, b string) int { return items[a].X - items[b].X })

	n := len(ids)
	leftCount := n/2 + n%2
	left := slices.Clone(ids[:leftCount])
	right := slices.Clone(ids[leftCount:])
	byY := func(a, b string) int { return items[a].Y - items[b].Y }
	slices.SortStableFunc(left, byY)
	slices.SortStableFunc(right, byY)

	pins := make([]ExternalPin, 0, n)
	for i, id := range left {
		pins = append(pins, ExternalPin{ItemID: id, Pin: i, Name: items[id].DataString["name"]})
	}
	for i, id := range right {
		pins = append(pins, ExternalPin{ItemID: id, Pin: n - 1 - i, Name: items[id].DataString["name"]})
	}
	return pins
}

// ExtractSubcircuit materializes the snapshot inside a subcircuit container.
//
// Ids are regenerated against the container's document, external connection
// markers become numbered pins of the container, connectors that ended on a
// marker are rewired to the matching container pin, and the merged entities
// are hidden, detached from the canvas and adopted by the container.
func (d *Data) ExtractSubcircuit(sc Subcircuit, factory ItemFactory) ([]ExternalPin, Report, error) {
	if sc == nil || sc.Document() == nil {
		return nil, Report{}, ErrNilDocument
	}
	doc := sc.Document()
	g := doc.Graph()
	if g == nil {
		return nil, Report{}, ErrNoGraph
	}

	d.RegenerateIDs(doc)

	pins := AssignExternalPins(d.Items, ExternalConnectionType)
	sc.SetNumExtCon(len(pins))

	pinOf := make(map[string]int, len(pins))
	for _, p := range pins {
		pinOf[p.ItemID] = p.Pin
		sc.SetExtConName(p.Pin, p.Name)
		delete(d.Items, p.ItemID)
	}

	for id, c := range d.Connectors {
		if pin, ok := pinOf[c.StartNodeParent]; c.StartNodeIsChild && ok {
			c.StartNodeCID = strconv.Itoa(pin)
			c.StartNodeParent = sc.ID()
		}
		if pin, ok := pinOf[c.EndNodeParent]; c.EndNodeIsChild && ok {
			c.EndNodeCID = strconv.Itoa(pin)
			c.EndNodeParent = sc.ID()
		}
		d.Connectors[id] = c
	}

	report, err := d.Merge(doc, factory, false)
	if err != nil {
		return pins, report, err
	}

	for _, id := range d.ItemIDs() {
		item := doc.ItemWithID(id)
		if item == nil {
			continue
		}
		item.SetParentItem(sc)
		item.SetVisible(false)
		item.DetachCanvas()
		sc.AdoptItem(item)
	}
	for _, id := range d.ConnectorIDs() {
		c := g.ConnectorWithID(id)
		if c == nil {
			continue
		}
		c.SetVisible(false)
		c.DetachCanvas()
		sc.AdoptConnector(c)
	}
	for _, id := range d.NodeIDs() {
		n := g.NodeWithID(id)
		if n == nil {
			continue
		}
		n.SetVisible(false)
		n.DetachCanvas()
		sc.AdoptNode(n)
	}

	sc.DoneSCInit()
	return pins, report, nil
}
