// Package models contains the persistable records of a schematic document.
package models

// DocumentType tags which kind of item document a snapshot describes.
type DocumentType int

const (
	DocumentNone DocumentType = iota
	DocumentCircuit
	DocumentFlowcode
	DocumentMechanics
)

// String returns the tag written to the root element of a saved document.
func (t DocumentType) String() string {
	switch t {
	case DocumentCircuit:
		return "circuit"
	case DocumentFlowcode:
		return "flowcode"
	case DocumentMechanics:
		return "mechanics"
	default:
		return "none"
	}
}

// HasGraph reports whether documents of this type carry nodes and connectors.
func (t DocumentType) HasGraph() bool {
	return t == DocumentCircuit || t == DocumentFlowcode
}

// ParseDocumentType maps a root type attribute back to a DocumentType.
// Unknown strings map to DocumentNone.
func ParseDocumentType(s string) DocumentType {
	switch s {
	case "circuit":
		return DocumentCircuit
	case "flowcode":
		return DocumentFlowcode
	case "mechanics":
		return DocumentMechanics
	default:
		return DocumentNone
	}
}
