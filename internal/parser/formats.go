package parser

import (
	"path"
	"strings"

	"github.com/Physolia/ktechlab/internal/models"
)

// Format is the file naming of one document kind.
type Format struct {
	Kind models.DocumentType
	Ext  string
	MIME string
}

var formats = []Format{
	{Kind: models.DocumentCircuit, Ext: ".circuit", MIME: "application/x-circuit"},
	{Kind: models.DocumentFlowcode, Ext: ".flowcode", MIME: "application/x-flowcode"},
	{Kind: models.DocumentMechanics, Ext: ".mechanics", MIME: "application/x-mechanics"},
}

// Formats returns the known document formats.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

// KindForPath detects the document kind from a file name or URL path.
// Unknown extensions give DocumentNone.
func KindForPath(name string) models.DocumentType {
	ext := strings.ToLower(path.Ext(name))
	for _, f := range formats {
		if f.Ext == ext {
			return f.Kind
		}
	}
	return models.DocumentNone
}

// ExtFor returns the file extension of a document kind, or "".
func ExtFor(kind models.DocumentType) string {
	for _, f := range formats {
		if f.Kind == kind {
			return f.Ext
		}
	}
	return ""
}
