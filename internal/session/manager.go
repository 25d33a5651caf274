// Package session keeps live editing sessions: a workspace document per
// session with its undo history, loaded from and saved to the document
// store or a transfer location.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/library"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/parser"
	"github.com/Physolia/ktechlab/internal/storage"
	"github.com/google/uuid"
)

// DefaultMaxSessions limits concurrent sessions when none is configured.
const DefaultMaxSessions = 32

// SessionKeepAliveWindow protects recently used sessions from cleanup.
const SessionKeepAliveWindow = 5 * time.Minute

var (
	ErrNotFound        = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
	ErrNoKind          = errors.New("document has no type")
	ErrNoTransfer      = errors.New("no transfer configured")
	ErrNoSubcircuits   = errors.New("document cannot hold subcircuits")
)

// Indexer records saved documents. *catalog.Catalog satisfies it.
type Indexer interface {
	Record(ctx context.Context, id, name string, data *document.Data) error
	Remove(ctx context.Context, id string) error
}

// Options configures a Manager.
type Options struct {
	Catalog      Indexer           // optional
	Transfer     *storage.Transfer // needed for OpenLocation and SaveTo
	HistoryDepth int
	MaxSessions  int
	Log          logging.Logger
}

// Manager handles open editing sessions.
type Manager struct {
	sessions map[string]*Session
	mu       sync.RWMutex

	store    storage.Store
	lib      *library.Library
	catalog  Indexer
	transfer *storage.Transfer
	depth    int
	limit    int
	log      logging.Logger
}

// NewManager creates a session manager on top of a document store.
func NewManager(store storage.Store, lib *library.Library, opts Options) *Manager {
	limit := opts.MaxSessions
	if limit <= 0 {
		limit = DefaultMaxSessions
	}
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		lib:      lib,
		catalog:  opts.Catalog,
		transfer: opts.Transfer,
		depth:    opts.HistoryDepth,
		limit:    limit,
		log:      logging.OrDiscard(opts.Log),
	}
}

// Create opens a session on a new empty document.
func (m *Manager) Create(kind models.DocumentType, name string) (*Session, error) {
	if kind == models.DocumentNone {
		return nil, ErrNoKind
	}
	s := m.newSession(kind, name)
	if err := m.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens a session on a stored document.
func (m *Manager) Open(docID string) (*Session, error) {
	info, err := m.store.Get(docID)
	if err != nil {
		return nil, err
	}
	data, err := m.store.Read(docID)
	if err != nil {
		return nil, err
	}
	s, err := m.openData(info.Name, data)
	if err != nil {
		return nil, err
	}
	s.docID = docID
	return s, nil
}

// OpenLocation opens a session on a document loaded from a local path or
// remote URL. Save writes it back to the same location.
func (m *Manager) OpenLocation(ctx context.Context, location string) (*Session, error) {
	if m.transfer == nil {
		return nil, ErrNoTransfer
	}
	data, err := storage.LoadDocument(ctx, m.transfer, location)
	if err != nil {
		return nil, err
	}
	s, err := m.openData(locationName(location), data)
	if err != nil {
		return nil, err
	}
	s.location = location
	return s, nil
}

func (m *Manager) openData(name string, data *document.Data) (*Session, error) {
	if data.Type == models.DocumentNone {
		// Older files carry no type; the file extension names it.
		data.Type = parser.KindForPath(name)
		if data.Type == models.DocumentNone {
			return nil, ErrNoKind
		}
		m.log.Warnf("document %q has no type, using %s from its name", name, data.Type)
	}
	s := m.newSession(data.Type, name)
	report, err := data.Restore(s.doc, s.factory)
	if err != nil {
		return nil, err
	}
	if n := report.Skipped(); n > 0 {
		m.log.Warnf("session %s: %d entities could not be restored", shortID(s.ID), n)
	}
	if err := m.add(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.limit {
		return fmt.Errorf("%w (limit %d)", ErrTooManySessions, m.limit)
	}
	m.sessions[s.ID] = s
	m.log.Infof("opened session %s (%s, %s)", shortID(s.ID), s.kind, s.name)
	return nil
}

// Get returns a session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.touch()
	return s, nil
}

// List returns the state of every open session, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Close discards a session without saving.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.sessions, id)
	m.log.Infof("closed session %s", shortID(id))
	return nil
}

// CleanupOldSessions closes sessions unused for longer than maxAge, but
// keeps sessions used within SessionKeepAliveWindow. It returns the number
// of sessions closed.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	keepAliveCutoff := time.Now().Add(-SessionKeepAliveWindow)

	closed := 0
	for id, s := range m.sessions {
		last := s.lastUsed()
		if last.After(keepAliveCutoff) || !last.Before(cutoff) {
			continue
		}
		delete(m.sessions, id)
		closed++
		m.log.Infof("cleaned up idle session %s (last used %s ago)", shortID(id), time.Since(last).Round(time.Second))
	}
	return closed
}

// DeleteDocument removes a stored document and its catalog record.
func (m *Manager) DeleteDocument(ctx context.Context, docID string) error {
	if err := m.store.Delete(docID); err != nil {
		return err
	}
	if m.catalog != nil {
		if err := m.catalog.Remove(ctx, docID); err != nil {
			m.log.Warnf("catalog remove %s: %v", shortID(docID), err)
		}
	}
	return nil
}

// StoreDocument saves data as a new stored document and records it in the
// catalog.
func (m *Manager) StoreDocument(ctx context.Context, name string, data *document.Data) (*models.FileInfo, error) {
	info, err := m.store.Save(name, data)
	if err != nil {
		return nil, err
	}
	m.record(ctx, info, data)
	return info, nil
}

func (m *Manager) record(ctx context.Context, info *models.FileInfo, data *document.Data) {
	if m.catalog == nil {
		return
	}
	if err := m.catalog.Record(ctx, info.ID, info.Name, data); err != nil {
		m.log.Warnf("catalog record %s: %v", shortID(info.ID), err)
	}
}

// locationName is the file name of a path or URL.
func locationName(location string) string {
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return path.Base(u.Path)
	}
	return filepath.Base(location)
}

// shortID truncates an id for logging.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func newID() string {
	return uuid.New().String()
}
