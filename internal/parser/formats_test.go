package parser

import (
	"testing"

	"github.com/Physolia/ktechlab/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestKindForPath(t *testing.T) {
	tests := []struct {
		name string
		want models.DocumentType
	}{
		{"divider.circuit", models.DocumentCircuit},
		{"/home/user/Blink.FlowCode", models.DocumentFlowcode},
		{"robot.mechanics", models.DocumentMechanics},
		{"notes.txt", models.DocumentNone},
		{"circuit", models.DocumentNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindForPath(tt.name))
		})
	}
}

func TestExtFor(t *testing.T) {
	for _, f := range Formats() {
		assert.Equal(t, f.Ext, ExtFor(f.Kind))
		assert.Equal(t, f.Kind, KindForPath("x"+f.Ext))
	}
	assert.Empty(t, ExtFor(models.DocumentNone))
}
