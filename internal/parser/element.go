package parser

import (
	"encoding/xml"
	"strconv"
)

// element is one node of the attributed tree. Children and attributes keep
// document order.
type element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []element  `xml:",any"`
}

func newElement(tag string) element {
	return element{XMLName: xml.Name{Local: tag}}
}

func (e *element) tag() string {
	return e.XMLName.Local
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) hasAttr(name string) bool {
	_, ok := e.attr(name)
	return ok
}

func (e *element) set(name, value string) {
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: name}, Value: value})
}

func (e *element) setInt(name string, v int) {
	e.set(name, strconv.Itoa(v))
}

func (e *element) setBool(name string, v bool) {
	if v {
		e.set(name, "1")
	} else {
		e.set(name, "0")
	}
}

func (e *element) add(child element) {
	e.Children = append(e.Children, child)
}
