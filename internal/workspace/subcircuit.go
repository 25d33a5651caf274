package workspace

import (
	"strconv"
	"strings"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/parser"
)

// Subcircuit pins sit on two columns either side of the body.
const (
	subcircuitPinX       = 24
	subcircuitPinSpacing = 16
)

// Item data keys holding what a container was built from.
const (
	NumExtConKey     = "numExtCon"
	ExtConNamePrefix = "extcon."
	ContentKey       = "content"

	maxExtCon = 1024
)

// Subcircuit is a container item whose pins come from the external
// connections of the circuit it was built from. Everything it adopted is
// deleted with it.
type Subcircuit struct {
	*Item

	names           []string
	content         string // document text the container was built from
	ownedItems      []*Item
	ownedConnectors []*Connector
	ownedNodes      []*Node
	ready           bool
}

var _ document.Subcircuit = (*Subcircuit)(nil)

// Document returns the document the container lives in.
func (sc *Subcircuit) Document() document.Document {
	return sc.doc
}

// SetNumExtCon rebuilds the container's pins as "0".."n-1". The first
// ceil(n/2) pins sit on the left from the top, the rest on the right from
// the bottom.
func (sc *Subcircuit) SetNumExtCon(n int) {
	old := make(map[string]*Node, len(sc.nodes))
	for cid, node := range sc.nodes {
		old[node.id] = node
		delete(sc.nodes, cid)
	}
	sc.doc.purge(nil, old, nil)

	sc.names = make([]string, n)
	left := n/2 + n%2
	for i := 0; i < n; i++ {
		pin := library.Pin{ID: strconv.Itoa(i)}
		if i < left {
			pin.X, pin.Y = -subcircuitPinX, i*subcircuitPinSpacing
		} else {
			pin.X, pin.Y = subcircuitPinX, (n-1-i)*subcircuitPinSpacing
		}
		sc.addChildNode(pin)
	}
}

// SetExtConName names a pin. Out of range pins are ignored.
func (sc *Subcircuit) SetExtConName(pin int, name string) {
	if pin < 0 || pin >= len(sc.names) {
		sc.doc.log.Warnf("subcircuit %s has no pin %d", sc.id, pin)
		return
	}
	sc.names[pin] = name
}

// ExtConNames returns the pin names by pin number.
func (sc *Subcircuit) ExtConNames() []string {
	return append([]string(nil), sc.names...)
}

func (sc *Subcircuit) AdoptItem(item document.Item) {
	if it, ok := sc.doc.items[item.ID()]; ok {
		sc.ownedItems = append(sc.ownedItems, it)
	}
}

func (sc *Subcircuit) AdoptConnector(c document.Connector) {
	if conn, ok := sc.doc.connectors[c.ID()]; ok {
		sc.ownedConnectors = append(sc.ownedConnectors, conn)
	}
}

func (sc *Subcircuit) AdoptNode(n document.Node) {
	if node, ok := sc.doc.nodes[n.ID()]; ok {
		sc.ownedNodes = append(sc.ownedNodes, node)
	}
}

// Owned returns the ids of adopted items, connectors and nodes.
func (sc *Subcircuit) Owned() (items, connectors, nodes []string) {
	for _, it := range sc.ownedItems {
		items = append(items, it.id)
	}
	for _, c := range sc.ownedConnectors {
		connectors = append(connectors, c.id)
	}
	for _, n := range sc.ownedNodes {
		nodes = append(nodes, n.id)
	}
	return items, connectors, nodes
}

// DoneSCInit marks the container as built.
func (sc *Subcircuit) DoneSCInit() {
	sc.ready = true
}

// Ready reports whether DoneSCInit has run.
func (sc *Subcircuit) Ready() bool {
	return sc.ready
}

// Extract builds the container from data: external connection markers
// become pins and everything else is merged into the document, hidden and
// adopted. The text of data is kept in the container's item data so a
// restored container can be built again.
func (sc *Subcircuit) Extract(data *document.Data, factory document.ItemFactory) ([]document.ExternalPin, document.Report, error) {
	text, err := parser.Marshal(data)
	if err != nil {
		return nil, document.Report{}, err
	}

	data.RegenerateIDs(scopedIDs(sc.id))
	pins, report, err := data.ExtractSubcircuit(sc, factory)
	if err != nil {
		return pins, report, err
	}
	sc.content = string(text)
	return pins, report, nil
}

// ItemData returns the container record along with its pin count, pin names
// and content.
func (sc *Subcircuit) ItemData() models.ItemData {
	data := sc.Item.ItemData()
	if len(sc.names) > 0 {
		data.DataNumber[NumExtConKey] = float64(len(sc.names))
		for i, name := range sc.names {
			data.DataString[ExtConNamePrefix+strconv.Itoa(i)] = name
		}
	}
	if sc.content != "" {
		data.DataString[ContentKey] = sc.content
	}
	return data
}

// RestoreFromItemData applies a record to the container. A container that
// has not been built yet is built from the recorded content, or given the
// recorded pins when there is no content.
func (sc *Subcircuit) RestoreFromItemData(data models.ItemData) {
	data = data.Clone()
	content := data.DataString[ContentKey]
	n := int(data.DataNumber[NumExtConKey])
	names := make(map[int]string)
	for k, v := range data.DataString {
		if !strings.HasPrefix(k, ExtConNamePrefix) {
			continue
		}
		if i, err := strconv.Atoi(k[len(ExtConNamePrefix):]); err == nil {
			names[i] = v
			delete(data.DataString, k)
		}
	}
	delete(data.DataString, ContentKey)
	delete(data.DataNumber, NumExtConKey)

	sc.Item.RestoreFromItemData(data)
	if sc.ready {
		for i, name := range names {
			if i >= 0 && i < len(sc.names) {
				sc.names[i] = name
			}
		}
		return
	}

	if content != "" {
		err := sc.rebuild(content)
		if err == nil {
			return
		}
		sc.doc.log.Errorf("subcircuit %s: could not rebuild content: %v", sc.id, err)
	}

	if n <= 0 {
		return
	}
	if n > maxExtCon {
		sc.doc.log.Warnf("subcircuit %s: %d pins is more than %d", sc.id, n, maxExtCon)
		n = maxExtCon
	}
	sc.SetNumExtCon(n)
	for i, name := range names {
		if i < n {
			sc.SetExtConName(i, name)
		}
	}
	sc.DoneSCInit()
}

func (sc *Subcircuit) rebuild(content string) error {
	data, err := parser.Unmarshal([]byte(content), sc.doc.log)
	if err != nil {
		return err
	}
	_, report, err := sc.Extract(data, NewFactory(sc.doc.lib))
	if err != nil {
		return err
	}
	if report.Skipped() > 0 {
		sc.doc.log.Warnf("subcircuit %s: %d entities could not be rebuilt", sc.id, report.Skipped())
	}
	return nil
}

// scopedIDs hands out ids under a container's name so that the entities of
// a container never take an id the rest of the document may still claim.
// Reservation is left to the document's own authority.
type scopedIDs string

func (s scopedIDs) GenerateUID(preferred string) string {
	// "__" would end the hint at the container name.
	return strings.ReplaceAll(string(s), "__", "_") + "." + preferred
}
