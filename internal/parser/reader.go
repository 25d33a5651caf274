package parser

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/models"
)

// Defaults for attributes missing from document text.
const (
	DefaultPosition = 120
	DefaultSize     = 120

	supportedRevision = 1
)

// Unmarshal parses document text into a snapshot.
func Unmarshal(text []byte, log logging.Logger) (*document.Data, error) {
	return FromXML(bytes.NewReader(text), log)
}

// FromXML parses document text into a snapshot.
//
// Text that is not a well-formed tree fails with *ParseError. Inside a
// well-formed tree, unknown tags, elements without an id and values that do
// not parse are logged and dropped or defaulted, and references that do not
// resolve are logged; the parse still succeeds.
func FromXML(r io.Reader, log logging.Logger) (*document.Data, error) {
	var root element
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, &ParseError{Err: err}
	}

	p := &reader{log: logging.OrDiscard(log)}
	p.data = document.New(models.ParseDocumentType(attrOr(&root, "type", "none")))
	p.data.SetLogger(p.log)

	if root.tag() != "document" {
		p.log.Warnf("unexpected root element %q", root.tag())
	}
	if rev, ok := root.attr("revision"); ok {
		if n, err := strconv.Atoi(rev); err != nil || n > supportedRevision {
			p.log.Warnf("document revision %q is newer than supported revision %s", rev, document.Revision)
		}
	}

	for i := range root.Children {
		child := &root.Children[i]
		switch child.tag() {
		case "item":
			p.item(child)
		case "node":
			p.node(child)
		case "connector":
			p.connector(child)
		case "micro", "pic-settings":
			p.micro(child)
		case "code":
			// no longer used
		default:
			p.log.Warnf("unrecognised element tag name: %s", child.tag())
		}
	}

	for _, problem := range p.data.Validate() {
		p.log.Warnf("%s", problem)
	}
	return p.data, nil
}

type reader struct {
	data *document.Data
	log  logging.Logger
}

func (p *reader) id(e *element) (string, bool) {
	id, ok := e.attr("id")
	if !ok || id == "" {
		p.log.Errorf("could not find id in %s element", e.tag())
		return "", false
	}
	return id, true
}

func (p *reader) item(e *element) (string, bool) {
	id, ok := p.id(e)
	if !ok {
		return "", false
	}

	item := models.NewItemData()
	item.Type = attrOr(e, "type", "")
	item.X = p.intAttr(e, "x", DefaultPosition)
	item.Y = p.intAttr(e, "y", DefaultPosition)
	item.Z = p.intAttr(e, "z", -1)

	if e.hasAttr("width") && e.hasAttr("height") {
		item.SetSize = true
		item.Size = models.Rect{
			X:      p.intAttr(e, "offset-x", 0),
			Y:      p.intAttr(e, "offset-y", 0),
			Width:  p.intAttr(e, "width", DefaultSize),
			Height: p.intAttr(e, "height", DefaultSize),
		}
	}

	item.AngleDegrees = p.intAttr(e, "angle", 0)
	item.Flipped = p.boolAttr(e, "flip", false)
	item.Orientation = p.intAttr(e, "orientation", -1)
	item.ParentID = attrOr(e, "parent", "")

	var nested []string
	for i := range e.Children {
		child := &e.Children[i]
		switch child.tag() {
		case "item":
			// Older files nest child items inside their parent.
			if childID, ok := p.item(child); ok {
				nested = append(nested, childID)
			}
		case "data":
			p.property(id, &item, child)
		case "button":
			if bid, ok := child.attr("id"); ok {
				item.ButtonMap[bid] = p.boolAttr(child, "state", false)
			}
		case "slider":
			if sid, ok := child.attr("id"); ok {
				item.SliderMap[sid] = p.intAttr(child, "value", 0)
			}
		case "child-node":
			// 0.1 file format, nothing to read
		default:
			p.log.Errorf("unrecognised element tag name: %s", child.tag())
		}
	}

	p.data.AddItem(id, item)
	for _, childID := range nested {
		child := p.data.Items[childID]
		child.ParentID = id
		p.data.Items[childID] = child
	}
	return id, true
}

func (p *reader) property(itemID string, item *models.ItemData, e *element) {
	dataID, ok := e.attr("id")
	if !ok {
		return
	}
	dataType := attrOr(e, "type", "")
	value := attrOr(e, "value", "")

	switch dataType {
	case "string", "multiline":
		item.DataString[dataID] = value
	case "number":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			p.log.Warnf("item %s: invalid number %q for %s", itemID, value, dataID)
		}
		item.DataNumber[dataID] = f
	case "color":
		c, err := ParseColor(value)
		if err != nil {
			p.log.Warnf("item %s: %v", itemID, err)
		}
		item.DataColor[dataID] = c
	case "raw":
		item.DataRaw[dataID] = DecodeHex(value)
	case "bool":
		item.DataBool[dataID] = parseFlag(value)
	default:
		p.log.Errorf("unknown data type of %q with id %q", dataType, dataID)
	}
}

func (p *reader) node(e *element) {
	id, ok := p.id(e)
	if !ok {
		return
	}
	p.data.AddNode(id, models.NodeData{
		X: p.intAttr(e, "x", DefaultPosition),
		Y: p.intAttr(e, "y", DefaultPosition),
	})
}

func (p *reader) connector(e *element) {
	id, ok := p.id(e)
	if !ok {
		return
	}

	var c models.ConnectorData
	c.ManualRoute = attrOr(e, "manual-route", "0") == "1"
	c.Route = p.parseRoute(id, attrOr(e, "route", ""))

	c.StartNodeIsChild = p.intAttr(e, "start-node-is-child", 0) != 0
	if c.StartNodeIsChild {
		c.StartNodeCID = attrOr(e, "start-node-cid", "")
		c.StartNodeParent = attrOr(e, "start-node-parent", "")
	} else {
		c.StartNodeID = attrOr(e, "start-node-id", "")
	}

	c.EndNodeIsChild = p.intAttr(e, "end-node-is-child", 0) != 0
	if c.EndNodeIsChild {
		c.EndNodeCID = attrOr(e, "end-node-cid", "")
		c.EndNodeParent = attrOr(e, "end-node-parent", "")
	} else {
		c.EndNodeID = attrOr(e, "end-node-id", "")
	}

	p.data.AddConnector(id, c)
}

// parseRoute reads "x,y,x,y," into points. A trailing unpaired value is dropped.
func (p *reader) parseRoute(connectorID, route string) []models.Point {
	var values []int
	for _, field := range strings.Split(route, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			p.log.Warnf("connector %s: invalid route coordinate %q", connectorID, field)
		}
		values = append(values, v)
	}

	var points []models.Point
	for i := 0; i+1 < len(values); i += 2 {
		points = append(points, models.Point{X: values[i], Y: values[i+1]})
	}
	return points
}

func (p *reader) micro(e *element) {
	id, ok := e.attr("id")
	if !ok {
		id, ok = e.attr("pic")
	}
	if !ok {
		p.log.Errorf("could not find id in %s element", e.tag())
		return
	}

	m := models.NewMicroData()
	m.ID = id

	for i := range e.Children {
		child := &e.Children[i]
		switch child.tag() {
		case "pinmap":
			mapID := attrOr(child, "id", "")
			typeName := attrOr(child, "type", "")
			if mapID == "" || typeName == "" {
				continue
			}
			m.PinMappings[mapID] = models.PinMapping{
				Type: models.ParsePinMappingType(typeName),
				Pins: strings.Fields(attrOr(child, "map", "")),
			}
		case "pin":
			pinID := attrOr(child, "id", "")
			if pinID == "" {
				continue
			}
			var pin models.PinData
			if attrOr(child, "type", "input") != "input" {
				pin.Type = models.PinOutput
			}
			if attrOr(child, "state", "off") != "off" {
				pin.State = models.PinOn
			}
			m.PinMap[pinID] = pin
		case "variable":
			name, ok := child.attr("name")
			if !ok {
				p.log.Warnf("variable without a name in %s element", e.tag())
				continue
			}
			m.VariableMap[name] = attrOr(child, "value", "")
		default:
			p.log.Errorf("unrecognised element tag name: %s", child.tag())
		}
	}

	p.data.SetMicroData(m)
}

func (p *reader) intAttr(e *element, name string, def int) int {
	s, ok := e.attr(name)
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		p.log.Warnf("%s element: invalid integer %q for %s", e.tag(), s, name)
		return def
	}
	return v
}

func (p *reader) boolAttr(e *element, name string, def bool) bool {
	s, ok := e.attr(name)
	if !ok {
		return def
	}
	return parseFlag(s)
}

// parseFlag reads "1"/"0" (and "true"/"false"); any other non-zero integer is true.
func parseFlag(s string) bool {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	n, err := strconv.Atoi(s)
	return err == nil && n != 0
}

func attrOr(e *element, name, def string) string {
	if v, ok := e.attr(name); ok {
		return v
	}
	return def
}
