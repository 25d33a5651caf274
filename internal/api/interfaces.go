// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/Physolia/ktechlab/internal/catalog"
	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/session"
	"github.com/labstack/echo/v4"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// DocumentHandler handles stored document operations
type DocumentHandler interface {
	HandleUploadDocument(c echo.Context) error
	HandleListDocuments(c echo.Context) error
	HandleGetDocument(c echo.Context) error
	HandleGetDocumentContent(c echo.Context) error
	HandleDeleteDocument(c echo.Context) error
	HandleDocumentUsage(c echo.Context) error
	HandleListCatalog(c echo.Context) error
}

// SessionHandler handles editing session operations
type SessionHandler interface {
	HandleOpenSession(c echo.Context) error
	HandleListSessions(c echo.Context) error
	HandleGetSession(c echo.Context) error
	HandleCloseSession(c echo.Context) error
	HandleGetSessionDocument(c echo.Context) error
	HandleReplaceSessionDocument(c echo.Context) error
	HandleExportMsgpack(c echo.Context) error
	HandleMerge(c echo.Context) error
	HandleInsertSubcircuit(c echo.Context) error
	HandleTranslate(c echo.Context) error
	HandleUndo(c echo.Context) error
	HandleRedo(c echo.Context) error
	HandleSave(c echo.Context) error
}

// SessionManager defines the interface for session management
// This allows mocking in tests
type SessionManager interface {
	Create(kind models.DocumentType, name string) (*session.Session, error)
	Open(docID string) (*session.Session, error)
	OpenLocation(ctx context.Context, location string) (*session.Session, error)
	Get(id string) (*session.Session, error)
	List() []session.Info
	Close(id string) error
	StoreDocument(ctx context.Context, name string, data *document.Data) (*models.FileInfo, error)
	DeleteDocument(ctx context.Context, docID string) error
}

// Catalog answers document index queries.
type Catalog interface {
	List(ctx context.Context, limit int) ([]catalog.Entry, error)
	DocumentsUsing(ctx context.Context, itemType string) ([]catalog.Usage, error)
}

var (
	_ SessionManager = (*session.Manager)(nil)
	_ Catalog        = (*catalog.Catalog)(nil)
)
