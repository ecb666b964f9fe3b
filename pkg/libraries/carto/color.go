package carto

import (
	"fmt"
	"golang.org/x/image/colornames"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Color is a non-premultiplied RGBA colour.
type Color struct {
	R, G, B, A uint8
}

func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b, A: 255}
}

func RGBA(r, g, b, a uint8) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// MustParseColor is like ParseColor but panics on error.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseColor accepts CSS colour names, "#rgb", "#rrggbb", "#rrggbbaa",
// "rgb(r,g,b)" and "rgba(r,g,b,a)" where a is between 0 and 1.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))

	switch {
	case s == "transparent":
		return Color{}, nil
	case strings.HasPrefix(s, "#"):
		return parseHexColor(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunctionalColor(s[len("rgba("):len(s)-1], true)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunctionalColor(s[len("rgb("):len(s)-1], false)
	}

	named, ok := colornames.Map[s]
	if !ok {
		return Color{}, fmt.Errorf("unknown color %q", s)
	}
	return Color{R: named.R, G: named.G, B: named.B, A: named.A}, nil
}

func parseHexColor(hex string) (Color, error) {
	if len(hex) == 3 || len(hex) == 4 {
		expanded := make([]byte, 0, len(hex)*2)
		for i := 0; i < len(hex); i++ {
			expanded = append(expanded, hex[i], hex[i])
		}
		hex = string(expanded)
	}

	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid hex color %q", hex)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	if len(hex) == 6 {
		return Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunctionalColor(body string, withAlpha bool) (Color, error) {
	parts := strings.Split(body, ",")
	if (withAlpha && len(parts) != 4) || (!withAlpha && len(parts) != 3) {
		return Color{}, fmt.Errorf("invalid color arguments %q", body)
	}

	var channels [3]uint8
	for i := 0; i < 3; i++ {
		part := strings.TrimSpace(parts[i])
		var v float64
		var err error
		if strings.HasSuffix(part, "%") {
			v, err = strconv.ParseFloat(strings.TrimSuffix(part, "%"), 64)
			v = v * 255 / 100
		} else {
			v, err = strconv.ParseFloat(part, 64)
		}
		if err != nil {
			return Color{}, fmt.Errorf("invalid color channel %q: %w", part, err)
		}
		channels[i] = clampByte(v)
	}

	alpha := uint8(255)
	if withAlpha {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return Color{}, fmt.Errorf("invalid alpha %q: %w", parts[3], err)
		}
		alpha = clampByte(a * 255)
	}

	return Color{R: channels[0], G: channels[1], B: channels[2], A: alpha}, nil
}

func clampByte(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}

// WithOpacity scales the alpha channel by opacity.
func (c Color) WithOpacity(opacity float64) Color {
	c.A = clampByte(float64(c.A) * opacity)
	return c
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}.RGBA()
}

func (c Color) String() string {
	if c.A == 255 {
		return fmt.Sprintf("rgb(%d,%d,%d)", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%.3g)", c.R, c.G, c.B, float64(c.A)/255)
}
