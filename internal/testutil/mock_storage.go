// mock_storage.go - Mock storage implementation for testing
package testutil

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/parser"
	"github.com/Physolia/ktechlab/internal/storage"
)

// MockStorage implements storage.Store in memory. Documents are kept as
// serialized text so callers never share state with the store.
type MockStorage struct {
	files    map[string]*models.FileInfo
	fileData map[string][]byte
	nextID   int
	mu       sync.RWMutex

	// SaveErr, when set, is returned by Save and Update.
	SaveErr error
}

var _ storage.Store = (*MockStorage)(nil)

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		files:    make(map[string]*models.FileInfo),
		fileData: make(map[string][]byte),
	}
}

func (m *MockStorage) Save(name string, data *document.Data) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	m.nextID++
	info := &models.FileInfo{ID: fmt.Sprintf("doc-%d", m.nextID), Name: name}
	if err := m.put(info, data); err != nil {
		return nil, err
	}
	return info, nil
}

func (m *MockStorage) Update(id string, data *document.Data) (*models.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return nil, m.SaveErr
	}
	info, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	if err := m.put(info, data); err != nil {
		return nil, err
	}
	return info, nil
}

func (m *MockStorage) put(info *models.FileInfo, data *document.Data) error {
	text, err := parser.Marshal(data)
	if err != nil {
		return err
	}
	info.Size = int64(len(text))
	info.SavedAt = time.Now()
	info.DocType = data.TypeString()
	info.Revision = data.Revision()
	m.files[info.ID] = info
	m.fileData[info.ID] = text
	return nil
}

func (m *MockStorage) Get(id string) (*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, ok := m.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return info, nil
}

func (m *MockStorage) List(limit int) ([]*models.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(m.files))
	for _, info := range m.files {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *MockStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	delete(m.files, id)
	delete(m.fileData, id)
	return nil
}

func (m *MockStorage) Read(id string) (*document.Data, error) {
	text, err := m.GetFileData(id)
	if err != nil {
		return nil, err
	}
	return parser.Unmarshal(text, nil)
}

// AddFile stores raw document text under a fixed id.
func (m *MockStorage) AddFile(id, name string, text []byte) *models.FileInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	info := &models.FileInfo{ID: id, Name: name, Size: int64(len(text)), SavedAt: time.Now()}
	m.files[id] = info
	m.fileData[id] = text
	return info
}

// GetFileData returns the stored text of a document.
func (m *MockStorage) GetFileData(id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	text, ok := m.fileData[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return text, nil
}

// GetFileCount returns the number of stored documents.
func (m *MockStorage) GetFileCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.files)
}
