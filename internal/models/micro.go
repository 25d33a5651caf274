package models

// PinType is the configured direction of a microcontroller pin.
type PinType int

const (
	PinInput PinType = iota
	PinOutput
)

// PinState is the configured level of a microcontroller pin.
type PinState int

const (
	PinOff PinState = iota
	PinOn
)

// PinData is one pin's configured state. The zero value is input/off.
type PinData struct {
	Type  PinType  `json:"type" msgpack:"type"`
	State PinState `json:"state" msgpack:"state"`
}

// PinMappingType is the kind of peripheral a group of pins drives.
type PinMappingType int

const (
	PinMappingInvalid PinMappingType = iota
	PinMappingSevenSegment
	PinMappingKeypad4x3
	PinMappingKeypad4x4
)

// String returns the type name used in saved files; Invalid maps to "".
func (t PinMappingType) String() string {
	switch t {
	case PinMappingSevenSegment:
		return "sevensegment"
	case PinMappingKeypad4x3:
		return "keypad_4x3"
	case PinMappingKeypad4x4:
		return "keypad_4x4"
	default:
		return ""
	}
}

// ParsePinMappingType is the inverse of String. Unknown names are Invalid.
func ParsePinMappingType(s string) PinMappingType {
	switch s {
	case "sevensegment":
		return PinMappingSevenSegment
	case "keypad_4x3":
		return PinMappingKeypad4x3
	case "keypad_4x4":
		return PinMappingKeypad4x4
	default:
		return PinMappingInvalid
	}
}

// PinMapping assigns an ordered list of pins to a peripheral.
type PinMapping struct {
	Type PinMappingType `json:"type" msgpack:"type"`
	Pins []string       `json:"pins" msgpack:"pins"`
}

// MicroData is the microcontroller side document of a flowcode document.
type MicroData struct {
	ID          string                `json:"id" msgpack:"id"`
	PinMappings map[string]PinMapping `json:"pinMappings,omitempty" msgpack:"pinMappings"`
	PinMap      map[string]PinData    `json:"pins,omitempty" msgpack:"pins"`
	VariableMap map[string]string     `json:"variables,omitempty" msgpack:"variables"`
}

// NewMicroData returns an empty MicroData.
func NewMicroData() MicroData {
	return MicroData{
		PinMappings: make(map[string]PinMapping),
		PinMap:      make(map[string]PinData),
		VariableMap: make(map[string]string),
	}
}

// Reset clears every field.
func (m *MicroData) Reset() {
	*m = NewMicroData()
}

// IsEmpty reports whether no microcontroller has been chosen.
func (m MicroData) IsEmpty() bool {
	return m.ID == ""
}
