package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
)

const docTypeDirective = "<!DOCTYPE KTechlab>\n"

// Marshal renders a snapshot as document text.
func Marshal(data *document.Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToXML(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToXML writes a snapshot as document text. Output is deterministic: every
// keyed collection is written in id order.
func ToXML(w io.Writer, data *document.Data) error {
	root := newElement("document")
	root.set("type", data.TypeString())
	root.set("revision", data.Revision())

	for _, id := range data.ItemIDs() {
		root.add(itemElement(id, data.Items[id]))
	}
	for _, id := range data.ConnectorIDs() {
		root.add(connectorElement(id, data.Connectors[id]))
	}
	for _, id := range data.NodeIDs() {
		root.add(nodeElement(id, data.Nodes[id]))
	}
	if data.Type == models.DocumentFlowcode {
		root.add(microElement(data.Micro))
	}

	out, err := xml.MarshalIndent(root, "", " ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if _, err := io.WriteString(w, xml.Header+docTypeDirective); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

func itemElement(id string, item models.ItemData) element {
	e := newElement("item")
	e.set("id", id)
	e.set("type", item.Type)
	e.setInt("x", item.X)
	e.setInt("y", item.Y)
	if item.Z != -1 {
		e.setInt("z", item.Z)
	}
	if item.SetSize {
		e.setInt("offset-x", item.Size.X)
		e.setInt("offset-y", item.Size.Y)
		e.setInt("width", item.Size.Width)
		e.setInt("height", item.Size.Height)
	}

	if item.HasOrientation() {
		e.setInt("orientation", item.Orientation)
	} else {
		e.setInt("angle", item.AngleDegrees)
		e.setBool("flip", item.Flipped)
	}

	if item.ParentID != "" {
		e.set("parent", item.ParentID)
	}

	for _, k := range slices.Sorted(maps.Keys(item.DataString)) {
		e.add(dataElement(k, "string", item.DataString[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(item.DataNumber)) {
		e.add(dataElement(k, "number", strconv.FormatFloat(item.DataNumber[k], 'g', -1, 64)))
	}
	for _, k := range slices.Sorted(maps.Keys(item.DataColor)) {
		e.add(dataElement(k, "color", FormatColor(item.DataColor[k])))
	}
	for _, k := range slices.Sorted(maps.Keys(item.DataRaw)) {
		e.add(dataElement(k, "raw", EncodeBits(item.DataRaw[k])))
	}
	for _, k := range slices.Sorted(maps.Keys(item.DataBool)) {
		v := "0"
		if item.DataBool[k] {
			v = "1"
		}
		e.add(dataElement(k, "bool", v))
	}

	for _, k := range slices.Sorted(maps.Keys(item.ButtonMap)) {
		b := newElement("button")
		b.set("id", k)
		b.setBool("state", item.ButtonMap[k])
		e.add(b)
	}
	for _, k := range slices.Sorted(maps.Keys(item.SliderMap)) {
		s := newElement("slider")
		s.set("id", k)
		s.setInt("value", item.SliderMap[k])
		e.add(s)
	}

	return e
}

func dataElement(id, dataType, value string) element {
	e := newElement("data")
	e.set("id", id)
	e.set("type", dataType)
	e.set("value", value)
	return e
}

func connectorElement(id string, c models.ConnectorData) element {
	e := newElement("connector")
	e.set("id", id)
	e.setBool("manual-route", c.ManualRoute)
	e.set("route", formatRoute(c.Route))

	e.setBool("start-node-is-child", c.StartNodeIsChild)
	if c.StartNodeIsChild {
		e.set("start-node-cid", c.StartNodeCID)
		e.set("start-node-parent", c.StartNodeParent)
	} else {
		e.set("start-node-id", c.StartNodeID)
	}

	e.setBool("end-node-is-child", c.EndNodeIsChild)
	if c.EndNodeIsChild {
		e.set("end-node-cid", c.EndNodeCID)
		e.set("end-node-parent", c.EndNodeParent)
	} else {
		e.set("end-node-id", c.EndNodeID)
	}

	return e
}

// formatRoute flattens points into "x,y,x,y," form.
func formatRoute(route []models.Point) string {
	var sb strings.Builder
	for _, p := range route {
		sb.WriteString(strconv.Itoa(p.X))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(p.Y))
		sb.WriteByte(',')
	}
	return sb.String()
}

func nodeElement(id string, n models.NodeData) element {
	e := newElement("node")
	e.set("id", id)
	e.setInt("x", n.X)
	e.setInt("y", n.Y)
	return e
}

func microElement(m models.MicroData) element {
	e := newElement("micro")
	e.set("id", m.ID)

	for _, k := range slices.Sorted(maps.Keys(m.PinMappings)) {
		pm := m.PinMappings[k]
		c := newElement("pinmap")
		c.set("id", k)
		c.set("type", pm.Type.String())
		c.set("map", strings.Join(pm.Pins, " "))
		e.add(c)
	}

	for _, k := range slices.Sorted(maps.Keys(m.PinMap)) {
		pin := m.PinMap[k]
		c := newElement("pin")
		c.set("id", k)
		if pin.Type == models.PinInput {
			c.set("type", "input")
		} else {
			c.set("type", "output")
		}
		if pin.State == models.PinOff {
			c.set("state", "off")
		} else {
			c.set("state", "on")
		}
		e.add(c)
	}

	for _, k := range slices.Sorted(maps.Keys(m.VariableMap)) {
		c := newElement("variable")
		c.set("name", k)
		c.set("value", m.VariableMap[k])
		e.add(c)
	}

	return e
}
