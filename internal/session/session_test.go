package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/history"
	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/parser"
	"github.com/Physolia/ktechlab/internal/storage"
	"github.com/Physolia/ktechlab/internal/testutil"
	"github.com/Physolia/ktechlab/internal/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mgr     *Manager
	store   *testutil.MockStorage
	indexer *testutil.MockIndexer
	root    string // transfer root
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	lib, err := library.Default()
	require.NoError(t, err)
	f := fixture{store: testutil.NewMockStorage(), indexer: testutil.NewMockIndexer(), root: t.TempDir()}
	opts.Catalog = f.indexer
	if opts.Transfer == nil {
		opts.Transfer = storage.NewTransfer(storage.TransferOptions{Root: f.root, TempDir: t.TempDir()})
	}
	f.mgr = NewManager(f.store, lib, opts)
	return f
}

func TestCreateRejectsUntypedDocument(t *testing.T) {
	f := newFixture(t, Options{})
	_, err := f.mgr.Create(models.DocumentNone, "x")
	assert.ErrorIs(t, err, ErrNoKind)
}

func TestOpenStoredDocument(t *testing.T) {
	f := newFixture(t, Options{})
	info, err := f.store.Save("divider", testutil.Divider())
	require.NoError(t, err)

	s, err := f.mgr.Open(info.ID)
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, models.DocumentCircuit, snap.Type)
	assert.Equal(t, []string{"r1", "r2"}, snap.ItemIDs())
	assert.Equal(t, []string{"j1"}, snap.NodeIDs())
	assert.Equal(t, []string{"w1", "w2"}, snap.ConnectorIDs())

	got := s.Info()
	assert.Equal(t, info.ID, got.DocumentID)
	assert.Equal(t, "divider", got.Name)
	assert.False(t, got.Modified)
	assert.False(t, got.CanUndo)

	_, err = f.mgr.Open("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOpenUntypedDocument(t *testing.T) {
	f := newFixture(t, Options{})
	f.store.AddFile("legacy", "legacy", []byte(`<document></document>`))

	_, err := f.mgr.Open("legacy")
	assert.ErrorIs(t, err, ErrNoKind)

	f.store.AddFile("named", "blink.flowcode", []byte(`<document><item id="d1" type="flow/delay"/></document>`))
	s, err := f.mgr.Open("named")
	require.NoError(t, err)
	assert.Equal(t, "flowcode", s.Info().DocType)
	assert.Equal(t, []string{"d1"}, s.Snapshot().ItemIDs())
}

func TestPasteUndoRedo(t *testing.T) {
	f := newFixture(t, Options{})
	s, err := f.mgr.Create(models.DocumentCircuit, "new")
	require.NoError(t, err)

	report, err := s.Paste(testutil.Divider())
	require.NoError(t, err)
	assert.Equal(t, 2, report.ItemsCreated)
	assert.Equal(t, 2, report.ConnectorsCreated)
	assert.Zero(t, report.Skipped())
	assert.NotEmpty(t, s.Document().Selection())

	// A second paste never collides with the first.
	_, err = s.Paste(testutil.Divider())
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Items, 4)
	assert.Len(t, s.Snapshot().Connectors, 4)

	_, err = s.Undo()
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Items, 2)

	_, err = s.Undo()
	require.NoError(t, err)
	assert.True(t, s.Snapshot().IsEmpty())

	_, err = s.Undo()
	assert.ErrorIs(t, err, history.ErrNothingToUndo)

	_, err = s.Redo()
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Len(t, snap.Items, 2)
	assert.Len(t, snap.Connectors, 2)
	assert.Len(t, snap.Nodes, 1)
	assert.True(t, s.Info().CanRedo)
}

func TestReplace(t *testing.T) {
	f := newFixture(t, Options{})
	info, err := f.store.Save("divider", testutil.Divider())
	require.NoError(t, err)
	s, err := f.mgr.Open(info.ID)
	require.NoError(t, err)

	replacement := document.New(models.DocumentCircuit)
	led := models.NewItemData()
	led.Type = "ec/led"
	replacement.AddItem("led1", led)

	report, err := s.Replace(replacement)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ItemsRemoved)
	assert.Equal(t, []string{"led1"}, s.Snapshot().ItemIDs())
	assert.True(t, s.Info().Modified)
}

func TestTranslateAndSave(t *testing.T) {
	f := newFixture(t, Options{})
	info, err := f.store.Save("divider", testutil.Divider())
	require.NoError(t, err)
	s, err := f.mgr.Open(info.ID)
	require.NoError(t, err)

	_, err = s.Translate(8, 16)
	require.NoError(t, err)

	saved, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, info.ID, saved.ID)
	assert.False(t, s.Info().Modified)
	assert.Equal(t, "divider", f.indexer.Recorded[info.ID])

	stored, err := f.store.Read(info.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, stored.Items["r1"].X)
	assert.Equal(t, 48, stored.Items["r1"].Y)
	assert.Equal(t, 64, stored.Nodes["j1"].X)
	assert.Equal(t, 80, stored.Nodes["j1"].Y)
}

func TestSaveNewDocument(t *testing.T) {
	f := newFixture(t, Options{})
	s, err := f.mgr.Create(models.DocumentCircuit, "fresh")
	require.NoError(t, err)
	_, err = s.Paste(testutil.Divider())
	require.NoError(t, err)

	info, err := s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, info.ID, s.Info().DocumentID)
	assert.Equal(t, 1, f.store.GetFileCount())

	// Saving again updates the same document.
	_, err = s.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.GetFileCount())
}

func TestOpenLocationAndSaveBack(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	path := filepath.Join(f.root, "divider.circuit")
	tr := storage.NewTransfer(storage.TransferOptions{Root: f.root})
	require.NoError(t, storage.SaveDocument(ctx, tr, path, testutil.Divider()))

	s, err := f.mgr.OpenLocation(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "divider.circuit", s.Info().Name)
	assert.Equal(t, path, s.Info().Location)

	_, err = s.Translate(-8, 0)
	require.NoError(t, err)
	_, err = s.Save(ctx)
	require.NoError(t, err)
	assert.Zero(t, f.store.GetFileCount(), "location documents bypass the store")

	back, err := storage.LoadDocument(ctx, tr, path)
	require.NoError(t, err)
	assert.Equal(t, 8, back.Items["r1"].X)

	copyPath := filepath.Join(f.root, "copy.circuit")
	require.NoError(t, s.SaveTo(ctx, copyPath))
	copied, err := storage.LoadDocument(ctx, tr, copyPath)
	require.NoError(t, err)
	assert.Equal(t, back.ItemIDs(), copied.ItemIDs())
}

func TestInsertSubcircuit(t *testing.T) {
	f := newFixture(t, Options{})
	s, err := f.mgr.Create(models.DocumentCircuit, "host")
	require.NoError(t, err)

	pins, report, err := s.InsertSubcircuit(testutil.Buffer(), 100, 100)
	require.NoError(t, err)
	require.Len(t, pins, 2)
	assert.Equal(t, "in", pins[0].Name)
	assert.Equal(t, "out", pins[1].Name)
	assert.Equal(t, 1, report.ItemsCreated)

	snap := s.Snapshot()
	require.Len(t, snap.Items, 1, "extracted content stays inside the container")
	for _, item := range snap.Items {
		assert.Equal(t, library.SubcircuitType, item.Type)
		assert.Equal(t, 100, item.X)
		assert.Equal(t, 100, item.Y)
	}
	assert.Empty(t, snap.Connectors)
}

func TestInsertSubcircuitWrongKind(t *testing.T) {
	f := newFixture(t, Options{})

	mech, err := f.mgr.Create(models.DocumentMechanics, "mech")
	require.NoError(t, err)
	_, _, err = mech.InsertSubcircuit(testutil.Buffer(), 0, 0)
	assert.ErrorIs(t, err, document.ErrNoGraph)

	flow, err := f.mgr.Create(models.DocumentFlowcode, "flow")
	require.NoError(t, err)
	_, _, err = flow.InsertSubcircuit(testutil.Buffer(), 0, 0)
	assert.ErrorIs(t, err, ErrNoSubcircuits)
	assert.Empty(t, flow.Snapshot().Items)

	info := flow.Info()
	assert.False(t, info.CanUndo, "a refused insert leaves no undo step")
	assert.False(t, info.Modified)
}

func subcircuitOf(t *testing.T, s *Session) *workspace.Subcircuit {
	t.Helper()
	for _, item := range s.Document().Items() {
		if sc, ok := item.(*workspace.Subcircuit); ok {
			return sc
		}
	}
	t.Fatal("no subcircuit in document")
	return nil
}

// insertWiredSubcircuit inserts the buffer as a subcircuit and wires its
// first pin to a junction node.
func insertWiredSubcircuit(t *testing.T, s *Session) *workspace.Subcircuit {
	t.Helper()
	_, _, err := s.InsertSubcircuit(testutil.Buffer(), 100, 100)
	require.NoError(t, err)

	sc := subcircuitOf(t, s)
	doc := s.Document()
	j, err := doc.NewJunctionNode("j1", 40, 100)
	require.NoError(t, err)
	_, err = doc.Connect("wire", sc.ChildNode("0"), j)
	require.NoError(t, err)
	return sc
}

func assertWiredSubcircuit(t *testing.T, s *Session, scID string) {
	t.Helper()
	snap := s.Snapshot()
	require.Contains(t, snap.Connectors, "wire")
	wire := snap.Connectors["wire"]
	assert.True(t, wire.StartNodeIsChild)
	assert.Equal(t, scID, wire.StartNodeParent)
	assert.Equal(t, "0", wire.StartNodeCID)
	assert.Equal(t, "j1", wire.EndNodeID)

	sc := subcircuitOf(t, s)
	assert.Equal(t, scID, sc.ID())
	assert.Equal(t, []string{"in", "out"}, sc.ExtConNames())
	assert.NotNil(t, sc.ChildNode("1"))
	items, connectors, _ := sc.Owned()
	assert.Len(t, items, 1, "the resistor between the pins")
	assert.Len(t, connectors, 2)
}

func TestSubcircuitSurvivesSaveAndOpen(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	s, err := f.mgr.Create(models.DocumentCircuit, "host.circuit")
	require.NoError(t, err)
	sc := insertWiredSubcircuit(t, s)

	info, err := s.Save(ctx)
	require.NoError(t, err)
	saved, err := f.store.GetFileData(info.ID)
	require.NoError(t, err)
	assert.Contains(t, string(saved), `id="numExtCon"`)
	assert.Contains(t, string(saved), `id="extcon.0" type="string" value="in"`)

	reopened, err := f.mgr.Open(info.ID)
	require.NoError(t, err)
	assertWiredSubcircuit(t, reopened, sc.ID())

	before := s.Snapshot().Items[sc.ID()]
	after := reopened.Snapshot().Items[sc.ID()]
	assert.Equal(t, before.DataString[workspace.ContentKey], after.DataString[workspace.ContentKey])
	assert.EqualValues(t, 2, after.DataNumber[workspace.NumExtConKey])
}

func TestSubcircuitSurvivesUndoRedo(t *testing.T) {
	f := newFixture(t, Options{})
	s, err := f.mgr.Create(models.DocumentCircuit, "host.circuit")
	require.NoError(t, err)
	sc := insertWiredSubcircuit(t, s)
	scID := sc.ID()

	_, err = s.Translate(8, 0)
	require.NoError(t, err)

	// Back past the insert, then forward again to the wired container.
	_, err = s.Undo()
	require.NoError(t, err)
	_, err = s.Undo()
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().Items)
	assert.Empty(t, s.Document().Items(), "adopted content goes with the container")

	report, err := s.Redo()
	require.NoError(t, err)
	assert.Zero(t, report.ConnectorsSkipped)
	assertWiredSubcircuit(t, s, scID)
}

func TestExport(t *testing.T) {
	f := newFixture(t, Options{})
	info, err := f.store.Save("divider", testutil.Divider())
	require.NoError(t, err)
	s, err := f.mgr.Open(info.ID)
	require.NoError(t, err)

	b, err := s.Export()
	require.NoError(t, err)
	got, err := history.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, got.ItemIDs())

	text, err := parser.Marshal(got)
	require.NoError(t, err)
	want, err := parser.Marshal(s.Snapshot())
	require.NoError(t, err)
	assert.Equal(t, string(want), string(text))
}

func TestManagerLifecycle(t *testing.T) {
	f := newFixture(t, Options{MaxSessions: 2})

	a, err := f.mgr.Create(models.DocumentCircuit, "a")
	require.NoError(t, err)
	b, err := f.mgr.Create(models.DocumentFlowcode, "b")
	require.NoError(t, err)
	_, err = f.mgr.Create(models.DocumentCircuit, "c")
	assert.ErrorIs(t, err, ErrTooManySessions)

	list := f.mgr.List()
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, []string{list[0].ID, list[1].ID})

	got, err := f.mgr.Get(a.ID)
	require.NoError(t, err)
	assert.Same(t, a, got)

	require.NoError(t, f.mgr.Close(a.ID))
	_, err = f.mgr.Get(a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.mgr.Close(a.ID), ErrNotFound)
}

func TestCleanupOldSessions(t *testing.T) {
	f := newFixture(t, Options{})
	idle, err := f.mgr.Create(models.DocumentCircuit, "idle")
	require.NoError(t, err)
	active, err := f.mgr.Create(models.DocumentCircuit, "active")
	require.NoError(t, err)

	idle.used = time.Now().Add(-2 * time.Hour)

	assert.Equal(t, 1, f.mgr.CleanupOldSessions(time.Hour))
	_, err = f.mgr.Get(idle.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.mgr.Get(active.ID)
	assert.NoError(t, err)
}

func TestDocumentStoreAndDelete(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	info, err := f.mgr.StoreDocument(ctx, "divider", testutil.Divider())
	require.NoError(t, err)
	assert.Equal(t, "divider", f.indexer.Recorded[info.ID])

	require.NoError(t, f.mgr.DeleteDocument(ctx, info.ID))
	assert.Equal(t, []string{info.ID}, f.indexer.Removed)
	assert.ErrorIs(t, f.mgr.DeleteDocument(ctx, info.ID), storage.ErrNotFound)
}
