package models

import "fmt"

// Point is an integer 2D coordinate.
type Point struct {
	X int `json:"x" msgpack:"x"`
	Y int `json:"y" msgpack:"y"`
}

// Rect is an item's size rectangle, offset relative to the item position.
type Rect struct {
	X      int `json:"x" msgpack:"x"`
	Y      int `json:"y" msgpack:"y"`
	Width  int `json:"width" msgpack:"width"`
	Height int `json:"height" msgpack:"height"`
}

// Color is an RGB color value.
type Color struct {
	R uint8 `json:"r" msgpack:"r"`
	G uint8 `json:"g" msgpack:"g"`
	B uint8 `json:"b" msgpack:"b"`
}

// Name returns the canonical "#rrggbb" form.
func (c Color) Name() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
