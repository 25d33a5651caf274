package workspace

import (
	"maps"
	"slices"

	"github.com/Physolia/ktechlab/internal/document"
	"github.com/Physolia/ktechlab/internal/models"
)

// MicroSettings holds the microcontroller configuration of a flowcode
// document.
type MicroSettings struct {
	data models.MicroData
}

var _ document.MicroSettings = (*MicroSettings)(nil)

// SetMicroType selects the microcontroller. Choosing a different one drops
// the pin, mapping and variable settings of the old one.
func (m *MicroSettings) SetMicroType(id string) {
	if id == m.data.ID {
		return
	}
	m.data = models.NewMicroData()
	m.data.ID = id
}

func (m *MicroSettings) RestoreFromMicroData(data models.MicroData) {
	m.data = cloneMicro(data)
}

func (m *MicroSettings) MicroData() models.MicroData {
	return cloneMicro(m.data)
}

func cloneMicro(m models.MicroData) models.MicroData {
	out := models.NewMicroData()
	out.ID = m.ID
	for k, v := range m.PinMappings {
		v.Pins = slices.Clone(v.Pins)
		out.PinMappings[k] = v
	}
	maps.Copy(out.PinMap, m.PinMap)
	maps.Copy(out.VariableMap, m.VariableMap)
	return out
}
