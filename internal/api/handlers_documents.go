// handlers_documents.go - Stored document handlers
package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/parser"
	"github.com/Physolia/ktechlab/internal/storage"
	"github.com/labstack/echo/v4"
)

// MIMEDocument is the content type of document text.
const MIMEDocument = echo.MIMEApplicationXMLCharsetUTF8

// DocumentHandlerImpl implements the DocumentHandler interface
type DocumentHandlerImpl struct {
	store    storage.Store
	sessions SessionManager
	catalog  Catalog
	log      logging.Logger
}

// NewDocumentHandler creates a new document handler. catalog may be nil.
func NewDocumentHandler(store storage.Store, sessions SessionManager, catalog Catalog, log logging.Logger) DocumentHandler {
	return &DocumentHandlerImpl{
		store:    store,
		sessions: sessions,
		catalog:  catalog,
		log:      logging.OrDiscard(log),
	}
}

// readDocument parses the request body as document text.
func readDocument(c echo.Context, log logging.Logger) (*document.Data, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, NewBadRequestError("failed to read body", err)
	}
	if len(body) == 0 {
		return nil, NewValidationError("body")
	}
	return parser.Unmarshal(body, log)
}

// HandleUploadDocument stores a new document. The body is either document
// text with the name in the "name" query parameter, or JSON with name and
// content fields.
func (h *DocumentHandlerImpl) HandleUploadDocument(c echo.Context) error {
	var (
		name string
		data *document.Data
		err  error
	)
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req struct {
			Name    string `json:"name"`
			Content string `json:"content"`
		}
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid JSON body", err)
		}
		if req.Content == "" {
			return NewValidationError("content")
		}
		name = req.Name
		data, err = parser.Unmarshal([]byte(req.Content), h.log)
	} else {
		name = c.QueryParam("name")
		data, err = readDocument(c, h.log)
	}
	if err != nil {
		return FromError(err)
	}
	if name == "" {
		return NewValidationError("name")
	}

	info, err := h.sessions.StoreDocument(c.Request().Context(), name, data)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusCreated, info)
}

// HandleListDocuments returns stored documents, newest first.
func (h *DocumentHandlerImpl) HandleListDocuments(c echo.Context) error {
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	files, err := h.store.List(limit)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetDocument returns the metadata of a stored document.
func (h *DocumentHandlerImpl) HandleGetDocument(c echo.Context) error {
	info, err := h.store.Get(c.Param("id"))
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleGetDocumentContent returns a stored document as document text.
func (h *DocumentHandlerImpl) HandleGetDocumentContent(c echo.Context) error {
	data, err := h.store.Read(c.Param("id"))
	if err != nil {
		return FromError(err)
	}
	text, err := parser.Marshal(data)
	if err != nil {
		return FromError(err)
	}
	return c.Blob(http.StatusOK, MIMEDocument, text)
}

// HandleDeleteDocument removes a stored document.
func (h *DocumentHandlerImpl) HandleDeleteDocument(c echo.Context) error {
	if err := h.sessions.DeleteDocument(c.Request().Context(), c.Param("id")); err != nil {
		return FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleDocumentUsage lists the stored documents using an item type.
func (h *DocumentHandlerImpl) HandleDocumentUsage(c echo.Context) error {
	if h.catalog == nil {
		return NewServiceUnavailableError("document catalog is disabled")
	}
	itemType := c.QueryParam("type")
	if itemType == "" {
		return NewValidationError("type")
	}
	usage, err := h.catalog.DocumentsUsing(c.Request().Context(), itemType)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"type":      itemType,
		"documents": usage,
	})
}

// HandleListCatalog returns the catalog records of stored documents.
func (h *DocumentHandlerImpl) HandleListCatalog(c echo.Context) error {
	if h.catalog == nil {
		return NewServiceUnavailableError("document catalog is disabled")
	}
	entries, err := h.catalog.List(c.Request().Context(), 0)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, entries)
}
