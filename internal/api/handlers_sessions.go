// handlers_sessions.go - Editing session handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/logging"
	"github.com/Physolia/ktechlab/internal/models"
	"github.com/Physolia/ktechlab/internal/parser"
	"github.com/Physolia/ktechlab/internal/session"
	"github.com/labstack/echo/v4"
)

// SessionHandlerImpl implements the SessionHandler interface
type SessionHandlerImpl struct {
	sessions SessionManager
	log      logging.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionManager, log logging.Logger) SessionHandler {
	return &SessionHandlerImpl{
		sessions: sessions,
		log:      logging.OrDiscard(log),
	}
}

type openRequest struct {
	DocumentID string `json:"documentId"`
	Location   string `json:"location"`
	Kind       string `json:"kind"`
	Name       string `json:"name"`
}

type reportResponse struct {
	Session session.Info    `json:"session"`
	Report  document.Report `json:"report"`
}

func (h *SessionHandlerImpl) session(c echo.Context) (*session.Session, error) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		return nil, FromError(err)
	}
	return s, nil
}

func (h *SessionHandlerImpl) respondReport(c echo.Context, s *session.Session, report document.Report, err error) error {
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, reportResponse{Session: s.Info(), Report: report})
}

// HandleOpenSession opens a session on a stored document, a location, or a
// new empty document of the requested kind.
func (h *SessionHandlerImpl) HandleOpenSession(c echo.Context) error {
	var req openRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}

	var (
		s   *session.Session
		err error
	)
	switch {
	case req.DocumentID != "":
		s, err = h.sessions.Open(req.DocumentID)
	case req.Location != "":
		s, err = h.sessions.OpenLocation(c.Request().Context(), req.Location)
	case req.Kind != "":
		kind := models.ParseDocumentType(req.Kind)
		if kind == models.DocumentNone {
			return NewValidationError("kind")
		}
		name := req.Name
		if name == "" {
			name = "untitled" + parser.ExtFor(kind)
		}
		s, err = h.sessions.Create(kind, name)
	default:
		return NewBadRequestError("one of documentId, location or kind is required", nil)
	}
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusCreated, s.Info())
}

// HandleListSessions returns every open session.
func (h *SessionHandlerImpl) HandleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.sessions.List())
}

// HandleGetSession returns the state of a session.
func (h *SessionHandlerImpl) HandleGetSession(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Info())
}

// HandleCloseSession discards a session without saving.
func (h *SessionHandlerImpl) HandleCloseSession(c echo.Context) error {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		return FromError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetSessionDocument returns the current document as document text.
func (h *SessionHandlerImpl) HandleGetSessionDocument(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	text, err := parser.Marshal(s.Snapshot())
	if err != nil {
		return FromError(err)
	}
	return c.Blob(http.StatusOK, MIMEDocument, text)
}

// HandleReplaceSessionDocument restores the body as the whole document.
func (h *SessionHandlerImpl) HandleReplaceSessionDocument(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	data, err := readDocument(c, h.log)
	if err != nil {
		return FromError(err)
	}
	report, err := s.Replace(data)
	return h.respondReport(c, s, report, err)
}

// HandleExportMsgpack returns the current document as msgpack.
func (h *SessionHandlerImpl) HandleExportMsgpack(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	b, err := s.Export()
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", b)
}

// HandleMerge pastes the body into the document under fresh ids.
func (h *SessionHandlerImpl) HandleMerge(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	data, err := readDocument(c, h.log)
	if err != nil {
		return FromError(err)
	}
	report, err := s.Paste(data)
	return h.respondReport(c, s, report, err)
}

// HandleInsertSubcircuit extracts the body into a new subcircuit placed at
// the x and y query parameters.
func (h *SessionHandlerImpl) HandleInsertSubcircuit(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	x, err := intQuery(c, "x")
	if err != nil {
		return err
	}
	y, err := intQuery(c, "y")
	if err != nil {
		return err
	}
	data, err := readDocument(c, h.log)
	if err != nil {
		return FromError(err)
	}

	pins, report, err := s.InsertSubcircuit(data, x, y)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"session": s.Info(),
		"report":  report,
		"pins":    pins,
	})
}

// HandleTranslate shifts the whole document.
func (h *SessionHandlerImpl) HandleTranslate(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req struct {
		DX int `json:"dx"`
		DY int `json:"dy"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	report, err := s.Translate(req.DX, req.DY)
	return h.respondReport(c, s, report, err)
}

// HandleUndo reverts the last edit.
func (h *SessionHandlerImpl) HandleUndo(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	report, err := s.Undo()
	return h.respondReport(c, s, report, err)
}

// HandleRedo reapplies the last undone edit.
func (h *SessionHandlerImpl) HandleRedo(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	report, err := s.Redo()
	return h.respondReport(c, s, report, err)
}

// HandleSave saves the document where it came from, or to the location in
// the optional JSON body.
func (h *SessionHandlerImpl) HandleSave(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return err
	}
	var req struct {
		Location string `json:"location"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid JSON body", err)
		}
	}

	ctx := c.Request().Context()
	if req.Location != "" {
		if err := s.SaveTo(ctx, req.Location); err != nil {
			return FromError(err)
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"session": s.Info(), "location": req.Location})
	}

	info, err := s.Save(ctx)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"session": s.Info(), "file": info})
}

func intQuery(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewValidationError(name)
	}
	return n, nil
}
