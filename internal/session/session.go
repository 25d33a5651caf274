package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/history"
	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/storage"
	"github.com/Physolia/ktechlab/internal/workspace"
)

// Info is the externally visible state of a session.
type Info struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId,omitempty"`
	Location   string    `json:"location,omitempty"`
	Name       string    `json:"name"`
	DocType    string    `json:"docType"`
	Items      int       `json:"items"`
	Connectors int       `json:"connectors"`
	Nodes      int       `json:"nodes"`
	Modified   bool      `json:"modified"`
	CanUndo    bool      `json:"canUndo"`
	CanRedo    bool      `json:"canRedo"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsed   time.Time `json:"lastUsed"`
}

// Session is one live document being edited. Every operation holds the
// session lock, so edits are applied one at a time.
type Session struct {
	ID string

	mu       sync.Mutex
	mgr      *Manager
	kind     models.DocumentType
	name     string
	docID    string
	location string
	doc      *workspace.Document
	factory  *workspace.Factory
	history  *history.Stack
	modified bool

	createdAt time.Time
	usedMu    sync.Mutex
	used      time.Time
}

func (m *Manager) newSession(kind models.DocumentType, name string) *Session {
	now := time.Now()
	return &Session{
		ID:        newID(),
		mgr:       m,
		kind:      kind,
		name:      name,
		doc:       workspace.New(kind, m.lib, m.log),
		factory:   workspace.NewFactory(m.lib),
		history:   history.New(m.depth),
		createdAt: now,
		used:      now,
	}
}

func (s *Session) touch() {
	s.usedMu.Lock()
	s.used = time.Now()
	s.usedMu.Unlock()
}

func (s *Session) lastUsed() time.Time {
	s.usedMu.Lock()
	defer s.usedMu.Unlock()
	return s.used
}

// Info returns the current state of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	return Info{
		ID:         s.ID,
		DocumentID: s.docID,
		Location:   s.location,
		Name:       s.name,
		DocType:    s.kind.String(),
		Items:      len(snap.Items),
		Connectors: len(snap.Connectors),
		Nodes:      len(snap.Nodes),
		Modified:   s.modified,
		CanUndo:    s.history.CanUndo(),
		CanRedo:    s.history.CanRedo(),
		CreatedAt:  s.createdAt,
		LastUsed:   s.lastUsed(),
	}
}

// Document returns the live document. Callers must not use it
// concurrently with session operations.
func (s *Session) Document() *workspace.Document {
	return s.doc
}

func (s *Session) snapshot() *document.Data {
	d := document.New(s.kind)
	d.SetLogger(s.mgr.log)
	d.Capture(s.doc)
	return d
}

// Snapshot captures the current document.
func (s *Session) Snapshot() *document.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Export captures the current document as msgpack.
func (s *Session) Export() ([]byte, error) {
	return history.Encode(s.Snapshot())
}

// checkpoint records the current state for undo.
func (s *Session) checkpoint() error {
	return s.commit(s.snapshot())
}

// commit records an earlier state for undo.
func (s *Session) commit(before *document.Data) error {
	if err := s.history.Push(before); err != nil {
		return fmt.Errorf("failed to record undo step: %w", err)
	}
	s.modified = true
	return nil
}

// Replace restores data as the whole content of the document.
func (s *Session) Replace(data *document.Data) (document.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkpoint(); err != nil {
		return document.Report{}, err
	}
	data.SetLogger(s.mgr.log)
	return data.Restore(s.doc, s.factory)
}

// Paste merges a copy of data into the document under fresh ids and
// selects what was added.
func (s *Session) Paste(data *document.Data) (document.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkpoint(); err != nil {
		return document.Report{}, err
	}
	data.SetLogger(s.mgr.log)
	data.RegenerateIDs(s.doc)
	s.doc.ClearSelection()
	return data.Merge(s.doc, s.factory, true)
}

// InsertSubcircuit places a new subcircuit container at x, y and extracts
// data into it.
func (s *Session) InsertSubcircuit(data *document.Data, x, y int) ([]document.ExternalPin, document.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.Graph() == nil {
		return nil, document.Report{}, document.ErrNoGraph
	}

	before := s.snapshot()
	item := s.factory.CreateItem(library.SubcircuitType, s.doc, true, "", true)
	sc, ok := item.(*workspace.Subcircuit)
	if !ok || !s.doc.IsValidItem(item) {
		s.discard(item)
		return nil, document.Report{}, fmt.Errorf("%w: %s", ErrNoSubcircuits, s.kind)
	}
	if err := s.commit(before); err != nil {
		s.discard(item)
		return nil, document.Report{}, err
	}

	sc.Move(x, y)
	data.SetLogger(s.mgr.log)
	pins, report, err := sc.Extract(data, s.factory)
	if err != nil {
		return nil, report, err
	}
	sc.FinishedCreation()
	return pins, report, nil
}

func (s *Session) discard(item document.Item) {
	if item != nil {
		s.doc.RemoveItem(item)
		s.doc.FlushDeleteList()
	}
}

// Translate shifts the whole content of the document.
func (s *Session) Translate(dx, dy int) (document.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkpoint(); err != nil {
		return document.Report{}, err
	}
	snap := s.snapshot()
	snap.TranslateContents(dx, dy)
	return snap.Restore(s.doc, s.factory)
}

// Undo reverts the last edit.
func (s *Session) Undo() (document.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, err := s.history.Undo(s.snapshot())
	if err != nil {
		return document.Report{}, err
	}
	s.modified = true
	return s.restore(prev)
}

// Redo reapplies the last undone edit.
func (s *Session) Redo() (document.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.history.Redo(s.snapshot())
	if err != nil {
		return document.Report{}, err
	}
	s.modified = true
	return s.restore(next)
}

func (s *Session) restore(data *document.Data) (document.Report, error) {
	data.SetLogger(s.mgr.log)
	return data.Restore(s.doc, s.factory)
}

// Save writes the document back where it came from: its location when it
// was opened from one, the store otherwise. A new document is added to the
// store on first save.
func (s *Session) Save(ctx context.Context) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if s.location != "" {
		if err := s.saveTo(ctx, s.location, snap); err != nil {
			return nil, err
		}
		s.modified = false
		return &models.FileInfo{Name: s.name, SavedAt: time.Now(), DocType: snap.TypeString(), Revision: snap.Revision()}, nil
	}

	var (
		info *models.FileInfo
		err  error
	)
	if s.docID != "" {
		info, err = s.mgr.store.Update(s.docID, snap)
	} else {
		info, err = s.mgr.store.Save(s.name, snap)
	}
	if err != nil {
		return nil, err
	}
	s.docID = info.ID
	s.modified = false
	s.mgr.record(ctx, info, snap)
	return info, nil
}

// SaveTo writes the document to a local path or remote URL. The session
// keeps its own save target.
func (s *Session) SaveTo(ctx context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveTo(ctx, location, s.snapshot())
}

func (s *Session) saveTo(ctx context.Context, location string, snap *document.Data) error {
	if s.mgr.transfer == nil {
		return ErrNoTransfer
	}
	return storage.SaveDocument(ctx, s.mgr.transfer, location, snap)
}
