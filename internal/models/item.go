package models

// ItemData is the persistable state of one placed item.
//
// Orientation >= 0 means the orientation was set by a flow part and
// supersedes AngleDegrees/Flipped. When Orientation is -1 the angle and
// flip govern instead.
type ItemData struct {
	Type         string `json:"type" msgpack:"type"`
	X            int    `json:"x" msgpack:"x"`
	Y            int    `json:"y" msgpack:"y"`
	Z            int    `json:"z" msgpack:"z"`
	SetSize      bool   `json:"setSize" msgpack:"setSize"`
	Size         Rect   `json:"size" msgpack:"size"`
	AngleDegrees int    `json:"angle" msgpack:"angle"`
	Flipped      bool   `json:"flipped" msgpack:"flipped"`
	Orientation  int    `json:"orientation" msgpack:"orientation"`
	ParentID     string `json:"parentId,omitempty" msgpack:"parentId"`

	DataString map[string]string  `json:"dataString,omitempty" msgpack:"dataString"`
	DataNumber map[string]float64 `json:"dataNumber,omitempty" msgpack:"dataNumber"`
	DataColor  map[string]Color   `json:"dataColor,omitempty" msgpack:"dataColor"`
	DataRaw    map[string][]bool  `json:"dataRaw,omitempty" msgpack:"dataRaw"`
	DataBool   map[string]bool    `json:"dataBool,omitempty" msgpack:"dataBool"`

	// UI affordance state, persisted alongside the item.
	ButtonMap map[string]bool `json:"buttons,omitempty" msgpack:"buttons"`
	SliderMap map[string]int  `json:"sliders,omitempty" msgpack:"sliders"`
}

// NewItemData returns an ItemData with the default sentinels applied.
func NewItemData() ItemData {
	return ItemData{
		Z:           -1,
		Orientation: -1,
		DataString:  make(map[string]string),
		DataNumber:  make(map[string]float64),
		DataColor:   make(map[string]Color),
		DataRaw:     make(map[string][]bool),
		DataBool:    make(map[string]bool),
		ButtonMap:   make(map[string]bool),
		SliderMap:   make(map[string]int),
	}
}

// HasOrientation reports whether Orientation is authoritative over angle and flip.
func (d ItemData) HasOrientation() bool {
	return d.Orientation >= 0
}

// Clone returns a deep copy so that snapshots never share maps with live items.
func (d ItemData) Clone() ItemData {
	c := d
	c.DataString = make(map[string]string, len(d.DataString))
	for k, v := range d.DataString {
		c.DataString[k] = v
	}
	c.DataNumber = make(map[string]float64, len(d.DataNumber))
	for k, v := range d.DataNumber {
		c.DataNumber[k] = v
	}
	c.DataColor = make(map[string]Color, len(d.DataColor))
	for k, v := range d.DataColor {
		c.DataColor[k] = v
	}
	c.DataRaw = make(map[string][]bool, len(d.DataRaw))
	for k, v := range d.DataRaw {
		c.DataRaw[k] = append([]bool(nil), v...)
	}
	c.DataBool = make(map[string]bool, len(d.DataBool))
	for k, v := range d.DataBool {
		c.DataBool[k] = v
	}
	c.ButtonMap = make(map[string]bool, len(d.ButtonMap))
	for k, v := range d.ButtonMap {
		c.ButtonMap[k] = v
	}
	c.SliderMap = make(map[string]int, len(d.SliderMap))
	for k, v := range d.SliderMap {
		c.SliderMap[k] = v
	}
	return c
}
