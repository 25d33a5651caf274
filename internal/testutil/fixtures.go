package testutil

import (
	"context"
	"sync"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
)

// Divider returns a circuit of two resistors joined at a junction node.
//
//	r1.n2 --w1-- j1 --w2-- r2.n1
func Divider() *document.Data {
	d := document.New(models.DocumentCircuit)

	r1 := models.NewItemData()
	r1.Type = "ec/resistor"
	r1.X, r1.Y = 16, 32
	r1.DataNumber["resistance"] = 1000
	d.AddItem("r1", r1)

	r2 := models.NewItemData()
	r2.Type = "ec/resistor"
	r2.X, r2.Y = 96, 32
	r2.DataNumber["resistance"] = 2200
	d.AddItem("r2", r2)

	d.AddNode("j1", models.NodeData{X: 56, Y: 64})

	var w1, w2 models.ConnectorData
	w1.SetStart(models.Endpoint{IsChild: true, Parent: "r1", CID: "n2"})
	w1.SetEnd(models.Endpoint{NodeID: "j1"})
	w2.SetStart(models.Endpoint{NodeID: "j1"})
	w2.SetEnd(models.Endpoint{IsChild: true, Parent: "r2", CID: "n1"})
	d.AddConnector("w1", w1)
	d.AddConnector("w2", w2)
	return d
}

// Buffer returns a circuit fragment with a resistor between two external
// connections, ready to be extracted into a subcircuit.
func Buffer() *document.Data {
	d := document.New(models.DocumentCircuit)
	for _, ext := range []struct {
		id   string
		x    int
		name string
	}{{"in", 0, "in"}, {"out", 64, "out"}} {
		item := models.NewItemData()
		item.Type = document.ExternalConnectionType
		item.X, item.Y = ext.x, 0
		item.DataString["name"] = ext.name
		d.AddItem(ext.id, item)
	}

	r := models.NewItemData()
	r.Type = "ec/resistor"
	r.X, r.Y = 32, 0
	d.AddItem("r", r)

	var a, b models.ConnectorData
	a.SetStart(models.Endpoint{IsChild: true, Parent: "in", CID: "p1"})
	a.SetEnd(models.Endpoint{IsChild: true, Parent: "r", CID: "n1"})
	b.SetStart(models.Endpoint{IsChild: true, Parent: "r", CID: "n2"})
	b.SetEnd(models.Endpoint{IsChild: true, Parent: "out", CID: "p1"})
	d.AddConnector("a", a)
	d.AddConnector("b", b)
	return d
}

// MockIndexer records catalog calls.
type MockIndexer struct {
	mu       sync.Mutex
	Recorded map[string]string // id -> name
	Removed  []string
}

func NewMockIndexer() *MockIndexer {
	return &MockIndexer{Recorded: make(map[string]string)}
}

func (m *MockIndexer) Record(_ context.Context, id, name string, _ *document.Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Recorded[id] = name
	return nil
}

func (m *MockIndexer) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Recorded, id)
	m.Removed = append(m.Removed, id)
	return nil
}
