// manager_test.go - Tests for the document store
package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDoc(ids ...string) *document.Data {
	d := document.New(models.DocumentCircuit)
	for _, id := range ids {
		item := models.NewItemData()
		item.Type = "ec/resistor"
		item.DataNumber["resistance"] = 330
		d.AddItem(id, item)
	}
	return d
}

func createTestStore(t *testing.T) (*FileStore, hackpadfs.FS) {
	t.Helper()
	fs, err := mem.NewFS()
	require.NoError(t, err)
	store, err := NewFileStore(fs, nil)
	require.NoError(t, err)
	return store, fs
}

func TestFileStoreSaveAndRead(t *testing.T) {
	store, fs := createTestStore(t)

	info, err := store.Save("divider.circuit", sampleDoc("r1", "r2"))
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "divider.circuit", info.Name)
	assert.Equal(t, "circuit", info.DocType)
	assert.Equal(t, "1", info.Revision)
	assert.Positive(t, info.Size)
	assert.WithinDuration(t, time.Now(), info.SavedAt, time.Minute)

	text, err := hackpadfs.ReadFile(fs, "documents/"+info.ID+".ktl")
	require.NoError(t, err)
	assert.Contains(t, string(text), `<document type="circuit"`)

	got, err := store.Read(info.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1", "r2"}, got.ItemIDs())
	assert.Equal(t, 330.0, got.Items["r1"].DataNumber["resistance"])
}

func TestFileStoreUpdate(t *testing.T) {
	store, _ := createTestStore(t)
	info, err := store.Save("a", sampleDoc("r1"))
	require.NoError(t, err)

	updated, err := store.Update(info.ID, sampleDoc("r1", "r2", "r3"))
	require.NoError(t, err)
	assert.Equal(t, info.ID, updated.ID)

	got, err := store.Read(info.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)

	_, err = store.Update("missing", sampleDoc())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileStoreListAndDelete(t *testing.T) {
	store, _ := createTestStore(t)

	var ids []string
	for _, name := range []string{"one", "two", "three"} {
		info, err := store.Save(name, sampleDoc())
		require.NoError(t, err)
		ids = append(ids, info.ID)
		time.Sleep(2 * time.Millisecond)
	}

	list, err := store.List(2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "three", list[0].Name, "newest first")

	all, err := store.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.Delete(ids[0]))
	_, err = store.Get(ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Read(ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ids[0]), ErrNotFound)
}

func TestFileStoreReopen(t *testing.T) {
	store, fs := createTestStore(t)
	kept, err := store.Save("kept", sampleDoc("r1"))
	require.NoError(t, err)
	lost, err := store.Save("lost", sampleDoc())
	require.NoError(t, err)

	// A document file removed behind the store's back is dropped on reopen.
	require.NoError(t, hackpadfs.Remove(fs, "documents/"+lost.ID+".ktl"))

	reopened, err := NewFileStore(fs, nil)
	require.NoError(t, err)

	info, err := reopened.Get(kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", info.Name)
	assert.Equal(t, "circuit", info.DocType)
	_, err = reopened.Get(lost.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreBadIndex(t *testing.T) {
	fs, err := mem.NewFS()
	require.NoError(t, err)
	require.NoError(t, hackpadfs.WriteFullFile(fs, "index.yaml", []byte("documents: {broken"), 0644))

	_, err = NewFileStore(fs, nil)
	assert.Error(t, err)
}

func TestLocalFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalFileStore(dir, nil)
	require.NoError(t, err)

	info, err := store.Save("local", sampleDoc("r1"))
	require.NoError(t, err)

	reopened, err := NewLocalFileStore(dir, nil)
	require.NoError(t, err)
	got, err := reopened.Read(info.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, got.ItemIDs())
}
