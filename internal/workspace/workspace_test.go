package workspace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDoc(t *testing.T, kind models.DocumentType) (*Document, *Factory) {
	t.Helper()
	lib, err := library.Default()
	require.NoError(t, err)
	return New(kind, lib, nil), NewFactory(lib)
}

func TestGenerateUID(t *testing.T) {
	d, _ := testDoc(t, models.DocumentCircuit)

	assert.Equal(t, "resistor", d.GenerateUID("Resistor"))
	assert.Equal(t, "resistor__1", d.GenerateUID("resistor"))
	assert.Equal(t, "resistor__2", d.GenerateUID("resistor__1"))
	assert.Equal(t, "led", d.GenerateUID("  LED__7 "))

	anon := d.GenerateUID("")
	_, err := uuid.Parse(anon)
	assert.NoError(t, err)
	assert.NotEqual(t, anon, d.GenerateUID("__"))

	d.UnregisterUID("resistor")
	assert.Equal(t, "resistor", d.GenerateUID("resistor"))
}

func TestCreateItemIDs(t *testing.T) {
	d, f := testDoc(t, models.DocumentCircuit)

	a := f.CreateItem("ec/resistor", d, true, "", true)
	b := f.CreateItem("ec/resistor", d, true, "", true)
	assert.Equal(t, "resistor", a.ID())
	assert.Equal(t, "resistor__1", b.ID())

	// A reserved id without a live owner is claimed as is.
	reserved := d.GenerateUID("r9")
	c := f.CreateItem("ec/resistor", d, false, reserved, false)
	assert.Equal(t, "r9", c.ID())

	// A live id is never reused.
	dup := f.CreateItem("ec/resistor", d, false, "r9", false)
	assert.NotEqual(t, "r9", dup.ID())

	assert.Nil(t, f.CreateItem("ec/warp_core", d, false, "x", false))
	assert.Nil(t, f.CreateItem("ec/resistor", nil, false, "x", false))
}

func TestChildNodesFollowItem(t *testing.T) {
	d, f := testDoc(t, models.DocumentCircuit)
	r := f.CreateItem("ec/resistor", d, false, "r1", true)

	n1 := d.NodeWithID("r1-n1")
	require.NotNil(t, n1)
	assert.True(t, n1.IsChildNode())
	assert.Same(t, n1.(*Node), r.ChildNode("n1").(*Node))
	assert.Nil(t, r.ChildNode("n9"))

	r.Move(100, 50)
	assert.Equal(t, models.NodeData{X: 84, Y: 50}, n1.NodeData())

	n1.Move(0, 0)
	assert.Equal(t, models.NodeData{X: 84, Y: 50}, n1.NodeData(), "child nodes only move with their item")
}

func TestConnectErrors(t *testing.T) {
	d, _ := testDoc(t, models.DocumentCircuit)
	other, _ := testDoc(t, models.DocumentCircuit)

	a, err := d.NewJunctionNode("a", 0, 0)
	require.NoError(t, err)
	b, err := d.NewJunctionNode("b", 8, 0)
	require.NoError(t, err)
	x, err := other.NewJunctionNode("x", 0, 0)
	require.NoError(t, err)

	_, err = d.NewJunctionNode("a", 1, 1)
	assert.ErrorIs(t, err, ErrIDInUse)

	_, err = d.Connect("c", a, x)
	assert.ErrorIs(t, err, ErrForeignNode)
	_, err = d.Connect("c", a, a)
	assert.ErrorIs(t, err, ErrSelfConnection)

	c, err := d.Connect("", a, b)
	require.NoError(t, err)
	assert.Equal(t, "connector", c.ID())
	assert.Equal(t, "electronic", c.(*Connector).Kind())

	_, err = d.Connect("connector", a, b)
	assert.ErrorIs(t, err, ErrIDInUse)

	data := c.ConnectorData()
	assert.Equal(t, models.Endpoint{NodeID: "a"}, data.Start())
	assert.Equal(t, models.Endpoint{NodeID: "b"}, data.End())
}

func TestFlushDeleteListCascades(t *testing.T) {
	d, f := testDoc(t, models.DocumentCircuit)
	box := f.CreateItem("dp/rectangle", d, false, "box", true)
	label := f.CreateItem("dp/text", d, false, "label", true)
	label.SetParentItem(box)
	r := f.CreateItem("ec/resistor", d, false, "r1", true)
	j, err := d.NewJunctionNode("j", 0, 0)
	require.NoError(t, err)
	w, err := d.Connect("w", r.ChildNode("n1"), j)
	require.NoError(t, err)
	d.SelectConnector(w)

	d.RemoveItem(box)
	assert.NotNil(t, d.ItemWithID("box"), "removal waits for the flush")
	d.FlushDeleteList()
	assert.Nil(t, d.ItemWithID("box"))
	assert.Nil(t, d.ItemWithID("label"), "children go with their parent")

	d.RemoveNode(j)
	d.FlushDeleteList()
	assert.Nil(t, d.ConnectorWithID("w"))
	assert.Empty(t, d.Selection())
	assert.Zero(t, r.ChildNode("n1").(*Node).NumConnectors())

	d.RemoveItem(r)
	d.FlushDeleteList()
	assert.Empty(t, d.Items())
	assert.Empty(t, d.Nodes())

	// Released ids are handed out again.
	assert.Equal(t, "r1", d.GenerateUID("r1"))
}

func TestSetParentItemRejectsCycles(t *testing.T) {
	d, f := testDoc(t, models.DocumentFlowcode)
	outer := f.CreateItem("flow/while", d, false, "outer", true)
	inner := f.CreateItem("flow/while", d, false, "inner", true)
	inner.SetParentItem(outer)
	outer.SetParentItem(inner)

	assert.Equal(t, "outer", inner.ItemData().ParentID)
	assert.Equal(t, "", outer.ItemData().ParentID)

	inner.SetParentItem(nil)
	assert.Equal(t, "", inner.ItemData().ParentID)
}

func TestIsValidItem(t *testing.T) {
	d, f := testDoc(t, models.DocumentFlowcode)

	start := f.CreateItem("flow/start", d, true, "", true)
	assert.True(t, d.IsValidItem(start))
	second := f.CreateItem("flow/start", d, true, "", true)
	assert.False(t, d.IsValidItem(second))

	assert.False(t, d.IsValidItem(f.CreateItem("ec/resistor", d, true, "", true)))
	assert.True(t, d.IsValidItem(f.CreateItem("dp/text", d, true, "", true)))
}

func TestDocumentCapabilities(t *testing.T) {
	circuit, _ := testDoc(t, models.DocumentCircuit)
	assert.NotNil(t, circuit.Graph())
	assert.Nil(t, circuit.MicroSettings())
	assert.Empty(t, circuit.Items())

	mech, _ := testDoc(t, models.DocumentMechanics)
	assert.Nil(t, mech.Graph())

	flow, _ := testDoc(t, models.DocumentFlowcode)
	require.NotNil(t, flow.MicroSettings())
	micro := flow.ItemWithID("microcontroller")
	require.NotNil(t, micro)
	assert.True(t, micro.Protected())
}

func TestMicroSettings(t *testing.T) {
	m := &MicroSettings{data: models.NewMicroData()}
	m.SetMicroType("P16F84")

	data := models.NewMicroData()
	data.ID = "P16F84"
	data.PinMap["RA0"] = models.PinData{Type: models.PinOutput}
	data.PinMappings["lcd"] = models.PinMapping{Type: models.PinMappingSevenSegment, Pins: []string{"RB0"}}
	m.RestoreFromMicroData(data)

	data.PinMappings["lcd"].Pins[0] = "changed"
	assert.Equal(t, "RB0", m.MicroData().PinMappings["lcd"].Pins[0])

	m.SetMicroType("P16F84")
	assert.Len(t, m.MicroData().PinMap, 1, "same chip keeps its settings")

	m.SetMicroType("P16F628")
	assert.Empty(t, m.MicroData().PinMap)
	assert.Equal(t, "P16F628", m.MicroData().ID)
}

func TestSubcircuitPins(t *testing.T) {
	d, f := testDoc(t, models.DocumentCircuit)
	sc := f.CreateItem("ec/subcircuit", d, false, "sc", true).(*Subcircuit)
	sc.Move(100, 100)

	sc.SetNumExtCon(3)
	for cid, want := range map[string]models.NodeData{
		"0": {X: 76, Y: 100},
		"1": {X: 76, Y: 116},
		"2": {X: 124, Y: 100},
	} {
		n := sc.ChildNode(cid)
		require.NotNil(t, n, cid)
		assert.Equal(t, want, n.NodeData(), cid)
	}

	j, err := d.NewJunctionNode("j", 0, 0)
	require.NoError(t, err)
	_, err = d.Connect("w", sc.ChildNode("2"), j)
	require.NoError(t, err)

	sc.SetNumExtCon(1)
	assert.Nil(t, sc.ChildNode("2"))
	assert.Nil(t, d.NodeWithID("sc-2"))
	assert.Nil(t, d.ConnectorWithID("w"), "connectors on dropped pins are deleted")

	sc.SetExtConName(0, "in")
	sc.SetExtConName(4, "ignored")
	assert.Equal(t, []string{"in"}, sc.ExtConNames())
}

func TestSubcircuitItemDataRebuilds(t *testing.T) {
	d, f := testDoc(t, models.DocumentCircuit)
	sc := f.CreateItem("ec/subcircuit", d, true, "", true).(*Subcircuit)
	sc.Move(100, 100)
	pins, _, err := sc.Extract(testutil.Buffer(), f)
	require.NoError(t, err)
	require.Len(t, pins, 2)

	data := sc.ItemData()
	assert.EqualValues(t, 2, data.DataNumber[NumExtConKey])
	assert.Equal(t, "in", data.DataString["extcon.0"])
	assert.Equal(t, "out", data.DataString["extcon.1"])
	assert.Contains(t, data.DataString[ContentKey], `type="ec/resistor"`)

	other, _ := testDoc(t, models.DocumentCircuit)
	rebuilt := f.CreateItem("ec/subcircuit", other, false, sc.ID(), true).(*Subcircuit)
	rebuilt.RestoreFromItemData(data)

	assert.True(t, rebuilt.Ready())
	assert.Equal(t, []string{"in", "out"}, rebuilt.ExtConNames())
	require.NotNil(t, rebuilt.ChildNode("0"))
	assert.Equal(t, models.NodeData{X: 76, Y: 100}, rebuilt.ChildNode("0").NodeData())
	items, connectors, _ := rebuilt.Owned()
	require.Len(t, items, 1)
	assert.Len(t, connectors, 2)
	assert.True(t, strings.HasPrefix(items[0], sc.ID()+"."), items[0])
	assert.Equal(t, data.DataString[ContentKey], rebuilt.ItemData().DataString[ContentKey])

	// Restoring a built container only updates it.
	data.X = 200
	rebuilt.RestoreFromItemData(data)
	items, _, _ = rebuilt.Owned()
	assert.Len(t, items, 1)
	assert.Equal(t, models.NodeData{X: 176, Y: 100}, rebuilt.ChildNode("0").NodeData())
}

func TestSubcircuitPinsWithoutContent(t *testing.T) {
	var logs bytes.Buffer
	lib, err := library.Default()
	require.NoError(t, err)
	d := New(models.DocumentCircuit, lib, logging.NewWithOutput("", "debug", &logs))
	f := NewFactory(lib)

	sc := f.CreateItem("ec/subcircuit", d, false, "sc", true).(*Subcircuit)
	rec := models.NewItemData()
	rec.DataNumber[NumExtConKey] = 3
	rec.DataString["extcon.2"] = "vcc"
	rec.DataString[ContentKey] = "<document><item"
	sc.RestoreFromItemData(rec)

	assert.Contains(t, logs.String(), "could not rebuild")
	assert.True(t, sc.Ready())
	assert.Equal(t, []string{"", "", "vcc"}, sc.ExtConNames())
	assert.NotNil(t, sc.ChildNode("2"))

	data := sc.ItemData()
	assert.EqualValues(t, 3, data.DataNumber[NumExtConKey])
	assert.Equal(t, "vcc", data.DataString["extcon.2"])
	assert.NotContains(t, data.DataString, ContentKey)
}

func TestChildNodeIDInUse(t *testing.T) {
	d, f := testDoc(t, models.DocumentCircuit)
	j, err := d.NewJunctionNode("r1-n1", 8, 8)
	require.NoError(t, err)

	r := f.CreateItem("ec/resistor", d, false, "r1", true)
	require.NotNil(t, r)
	child := r.ChildNode("n1")
	require.NotNil(t, child)
	assert.NotEqual(t, "r1-n1", child.ID())
	assert.True(t, child.IsChildNode())

	assert.Same(t, j, d.NodeWithID("r1-n1"), "the free node keeps its id")
	assert.Same(t, child, d.NodeWithID(child.ID()))
	assert.Equal(t, models.NodeData{X: 8, Y: 8}, d.NodeWithID("r1-n1").NodeData())
}

func TestRestoreWithMissingParent(t *testing.T) {
	var logs bytes.Buffer
	lib, err := library.Default()
	require.NoError(t, err)
	d := New(models.DocumentCircuit, lib, logging.NewWithOutput("", "debug", &logs))
	r := NewFactory(lib).CreateItem("ec/resistor", d, false, "a", true)

	rec := models.NewItemData()
	rec.ParentID = "ghost"
	r.RestoreFromItemData(rec)

	assert.Empty(t, r.(*Item).ParentID())
	assert.Contains(t, logs.String(), "ghost")
	assert.Contains(t, logs.String(), "does not exist")
}
