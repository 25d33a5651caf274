package models

import "time"

// FileInfo represents metadata about a stored document file.
type FileInfo struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Size     int64     `json:"size" yaml:"size"`
	SavedAt  time.Time `json:"savedAt" yaml:"saved_at"`
	DocType  string    `json:"docType,omitempty" yaml:"doc_type,omitempty"`
	Revision string    `json:"revision,omitempty" yaml:"revision,omitempty"`
}
