// Package storage keeps saved documents and moves document files between
// the service and local or remote locations.
package storage

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/parser"
	"github.com/google/uuid"
	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"gopkg.in/yaml.v3"
)

const (
	documentsDir = "documents"
	indexFile    = "index.yaml"
	fileExt      = ".ktl"
)

// ErrNotFound is returned for unknown document ids.
var ErrNotFound = errors.New("document not found")

// Store defines the interface for document storage.
type Store interface {
	Save(name string, data *document.Data) (*models.FileInfo, error)
	Update(id string, data *document.Data) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Read(id string) (*document.Data, error)
}

// FileStore implements Store on a hackpadfs file system. Documents are kept
// as document text under documents/ and their metadata in index.yaml.
type FileStore struct {
	mu    sync.RWMutex
	fs    hackpadfs.FS
	files map[string]*models.FileInfo
	log   logging.Logger
}

type index struct {
	Documents []*models.FileInfo `yaml:"documents"`
}

// NewFileStore opens a store on fsys, loading an existing index.
func NewFileStore(fsys hackpadfs.FS, log logging.Logger) (*FileStore, error) {
	if err := hackpadfs.MkdirAll(fsys, documentsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating documents directory: %w", err)
	}

	s := &FileStore{
		fs:    fsys,
		files: make(map[string]*models.FileInfo),
		log:   logging.OrDiscard(log),
	}

	content, err := hackpadfs.ReadFile(fsys, indexFile)
	switch {
	case errors.Is(err, hackpadfs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("reading index: %w", err)
	}

	var idx index
	if err := yaml.Unmarshal(content, &idx); err != nil {
		return nil, fmt.Errorf("parsing index: %w", err)
	}
	for _, info := range idx.Documents {
		if info == nil || info.ID == "" {
			continue
		}
		if _, err := hackpadfs.Stat(fsys, s.pathOf(info.ID)); err != nil {
			s.log.Warnf("dropping index entry %s: %v", info.ID, err)
			continue
		}
		s.files[info.ID] = info
	}
	return s, nil
}

// NewLocalFileStore opens a store in a directory of the local file system.
func NewLocalFileStore(dir string, log logging.Logger) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	root := osfs.NewFS()
	p, err := root.FromOSPath(abs)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	if err := hackpadfs.MkdirAll(root, p, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	sub, err := root.Sub(p)
	if err != nil {
		return nil, fmt.Errorf("opening store directory: %w", err)
	}
	return NewFileStore(sub, log)
}

func (s *FileStore) pathOf(id string) string {
	return path.Join(documentsDir, id+fileExt)
}

// Save stores a new document under a fresh id.
func (s *FileStore) Save(name string, data *document.Data) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := &models.FileInfo{ID: uuid.New().String(), Name: name}
	if err := s.write(info, data); err != nil {
		return nil, err
	}
	s.files[info.ID] = info
	if err := s.writeIndex(); err != nil {
		delete(s.files, info.ID)
		_ = hackpadfs.Remove(s.fs, s.pathOf(info.ID))
		return nil, err
	}
	return info, nil
}

// Update replaces the content of a stored document.
func (s *FileStore) Update(id string, data *document.Data) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := s.write(info, data); err != nil {
		return nil, err
	}
	if err := s.writeIndex(); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *FileStore) write(info *models.FileInfo, data *document.Data) error {
	text, err := parser.Marshal(data)
	if err != nil {
		return err
	}
	if err := hackpadfs.WriteFullFile(s.fs, s.pathOf(info.ID), text, 0644); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	info.Size = int64(len(text))
	info.SavedAt = time.Now()
	info.DocType = data.TypeString()
	info.Revision = data.Revision()
	return nil
}

func (s *FileStore) writeIndex() error {
	idx := index{Documents: s.sorted()}
	out, err := yaml.Marshal(&idx)
	if err != nil {
		return fmt.Errorf("encoding index: %w", err)
	}
	if err := hackpadfs.WriteFullFile(s.fs, indexFile, out, 0644); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// sorted returns every document, newest first.
func (s *FileStore) sorted() []*models.FileInfo {
	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].SavedAt.Equal(list[j].SavedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].SavedAt.After(list[j].SavedAt)
	})
	return list
}

// Get retrieves document metadata by ID.
func (s *FileStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return info, nil
}

// List returns the most recently saved documents. A limit of zero or less
// returns all of them.
func (s *FileStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.sorted()
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete removes a document.
func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := hackpadfs.Remove(s.fs, s.pathOf(id)); err != nil && !errors.Is(err, hackpadfs.ErrNotExist) {
		return fmt.Errorf("deleting document: %w", err)
	}
	delete(s.files, id)
	return s.writeIndex()
}

// Read parses a stored document.
func (s *FileStore) Read(id string) (*document.Data, error) {
	s.mu.RLock()
	_, ok := s.files[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	text, err := hackpadfs.ReadFile(s.fs, s.pathOf(id))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return parser.Unmarshal(text, s.log)
}
