package parser

import "fmt"

// ParseError reports document text that is not a well-formed tree. Nothing
// is loaded when it is returned.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("could not parse document: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
