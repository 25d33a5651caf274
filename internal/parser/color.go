package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Physolia/ktechlab/internal/models"
)

var namedColors = map[string]models.Color{
	"black":   {R: 0, G: 0, B: 0},
	"white":   {R: 255, G: 255, B: 255},
	"red":     {R: 255, G: 0, B: 0},
	"green":   {R: 0, G: 128, B: 0},
	"lime":    {R: 0, G: 255, B: 0},
	"blue":    {R: 0, G: 0, B: 255},
	"yellow":  {R: 255, G: 255, B: 0},
	"cyan":    {R: 0, G: 255, B: 255},
	"magenta": {R: 255, G: 0, B: 255},
	"gray":    {R: 128, G: 128, B: 128},
	"grey":    {R: 128, G: 128, B: 128},
	"orange":  {R: 255, G: 165, B: 0},
}

// FormatColor returns the canonical "#rrggbb" name of a color.
func FormatColor(c models.Color) string {
	return c.Name()
}

// ParseColor reads "#rgb", "#rrggbb" or a basic color name.
func ParseColor(s string) (models.Color, error) {
	s = strings.TrimSpace(s)
	if c, ok := namedColors[strings.ToLower(s)]; ok {
		return c, nil
	}
	if !strings.HasPrefix(s, "#") {
		return models.Color{}, fmt.Errorf("invalid color %q", s)
	}

	hex := s[1:]
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return models.Color{}, fmt.Errorf("invalid color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return models.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return models.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}
