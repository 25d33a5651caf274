// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/storage"
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store      storage.Store
	SessionMgr SessionManager
	Catalog    Catalog // optional
	Log        logging.Logger
	Version    string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Documents DocumentHandler
	Sessions  SessionHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.SessionMgr),
		Documents: NewDocumentHandler(deps.Store, deps.SessionMgr, deps.Catalog, deps.Log),
		Sessions:  NewSessionHandler(deps.SessionMgr, deps.Log),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Stored documents
	docGroup := e.Group("/api/documents")
	docGroup.GET("", handlers.Documents.HandleListDocuments)
	docGroup.POST("", handlers.Documents.HandleUploadDocument)
	docGroup.GET("/usage", handlers.Documents.HandleDocumentUsage)
	docGroup.GET("/catalog", handlers.Documents.HandleListCatalog)
	docGroup.GET("/:id", handlers.Documents.HandleGetDocument)
	docGroup.GET("/:id/content", handlers.Documents.HandleGetDocumentContent)
	docGroup.DELETE("/:id", handlers.Documents.HandleDeleteDocument)

	// Editing sessions
	sessionGroup := e.Group("/api/sessions")
	sessionGroup.GET("", handlers.Sessions.HandleListSessions)
	sessionGroup.POST("", handlers.Sessions.HandleOpenSession)
	sessionGroup.GET("/:id", handlers.Sessions.HandleGetSession)
	sessionGroup.DELETE("/:id", handlers.Sessions.HandleCloseSession)
	sessionGroup.GET("/:id/document", handlers.Sessions.HandleGetSessionDocument)
	sessionGroup.PUT("/:id/document", handlers.Sessions.HandleReplaceSessionDocument)
	sessionGroup.GET("/:id/snapshot/msgpack", handlers.Sessions.HandleExportMsgpack)
	sessionGroup.POST("/:id/merge", handlers.Sessions.HandleMerge)
	sessionGroup.POST("/:id/subcircuit", handlers.Sessions.HandleInsertSubcircuit)
	sessionGroup.POST("/:id/translate", handlers.Sessions.HandleTranslate)
	sessionGroup.POST("/:id/undo", handlers.Sessions.HandleUndo)
	sessionGroup.POST("/:id/redo", handlers.Sessions.HandleRedo)
	sessionGroup.POST("/:id/save", handlers.Sessions.HandleSave)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, showErrorDetails bool, log logging.Logger) {
	e.HTTPErrorHandler = NewErrorHandler(showErrorDetails, log)
}
