package carto

import (
	"context"
	"errors"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/projection"
	"github.com/paulmach/orb"
	"math"
)

var (
	ErrInvalidExtent = errors.New("invalid map extent")
	ErrNoExtent      = errors.New("map extent not set")
	ErrUnknownStyle  = errors.New("unknown style")
)

// Standardized rendering pixel size of 0.28mm, used for scale denominators.
const pixelSize = 0.00028

const metersPerDegree = 6378137 * 2 * math.Pi / 360

type Layer struct {
	Name       string
	SRS        string
	Datasource Datasource
	Styles     []string
	Active     bool
	// Layers outside [MinScaleDenominator, MaxScaleDenominator) are skipped.
	// Zero values disable the limit.
	MinScaleDenominator float64
	MaxScaleDenominator float64
}

func NewLayer(name, srs string) *Layer {
	if srs == "" {
		srs = projection.WGS84String
	}
	return &Layer{
		Name:   name,
		SRS:    srs,
		Active: true,
	}
}

func (l *Layer) AddStyle(name string) *Layer {
	l.Styles = append(l.Styles, name)
	return l
}

func (l *Layer) visible(scaleDenominator float64) bool {
	if !l.Active {
		return false
	}
	if l.MinScaleDenominator > 0 && scaleDenominator < l.MinScaleDenominator {
		return false
	}
	if l.MaxScaleDenominator > 0 && scaleDenominator >= l.MaxScaleDenominator {
		return false
	}
	return true
}

// Map is a canvas of a fixed pixel size showing a set of layers in a
// projection.
type Map struct {
	Width      int
	Height     int
	SRS        string
	Background *Color
	// BufferSize extends the queried area by this many pixels on every side,
	// so symbols crossing the map edge are not cut off.
	BufferSize int
	Layers     []*Layer

	styles    map[string]*Style
	extent    orb.Bound
	hasExtent bool
}

func NewMap(width, height int, srs string) *Map {
	if srs == "" {
		srs = projection.WGS84String
	}
	return &Map{
		Width:  width,
		Height: height,
		SRS:    srs,
		styles: map[string]*Style{},
	}
}

func (m *Map) SetBackground(c Color) {
	m.Background = &c
}

func (m *Map) AppendStyle(name string, style *Style) {
	if m.styles == nil {
		m.styles = map[string]*Style{}
	}
	m.styles[name] = style
}

func (m *Map) Style(name string) (*Style, bool) {
	s, ok := m.styles[name]
	return s, ok
}

func (m *Map) StyleCount() int {
	return len(m.styles)
}

func (m *Map) AddLayer(l *Layer) {
	m.Layers = append(m.Layers, l)
}

func (m *Map) Extent() (orb.Bound, bool) {
	return m.extent, m.hasExtent
}

// ZoomToBox sets the visible extent. The box grows along one axis so that
// its aspect ratio matches the canvas; the center is kept.
func (m *Map) ZoomToBox(box orb.Bound) error {
	width := box.Max[0] - box.Min[0]
	height := box.Max[1] - box.Min[1]
	if !(width > 0) || !(height > 0) || m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidExtent, box)
	}

	canvasRatio := float64(m.Width) / float64(m.Height)
	boxRatio := width / height

	center := box.Center()
	if boxRatio > canvasRatio {
		height = width / canvasRatio
	} else if boxRatio < canvasRatio {
		width = height * canvasRatio
	}

	m.extent = orb.Bound{
		Min: orb.Point{center[0] - width/2, center[1] - height/2},
		Max: orb.Point{center[0] + width/2, center[1] + height/2},
	}
	m.hasExtent = true
	return nil
}

// ZoomAll zooms to the union of all active layer envelopes.
func (m *Map) ZoomAll(ctx context.Context) error {
	var total orb.Bound
	found := false

	for _, layer := range m.Layers {
		if !layer.Active || layer.Datasource == nil {
			continue
		}

		envelope, err := layer.Datasource.Envelope(ctx)
		if err != nil {
			return fmt.Errorf("failed to read envelope of layer %s: %w", layer.Name, err)
		}
		if envelope == (orb.Bound{}) {
			continue
		}

		tr, err := projection.NewTransformer(layer.SRS, m.SRS)
		if err != nil {
			return fmt.Errorf("failed to project layer %s: %w", layer.Name, err)
		}

		projected, err := tr.ForwardBound(envelope)
		tr.Close()
		if err != nil {
			return fmt.Errorf("failed to project envelope of layer %s: %w", layer.Name, err)
		}

		if !found {
			total = projected
			found = true
			continue
		}
		total = total.Union(projected)
	}

	if !found {
		return fmt.Errorf("%w: no layer has data", ErrInvalidExtent)
	}

	return m.ZoomToBox(total)
}

// Scale is the number of map units per pixel.
func (m *Map) Scale() float64 {
	if !m.hasExtent || m.Width == 0 {
		return 0
	}
	return (m.extent.Max[0] - m.extent.Min[0]) / float64(m.Width)
}

func (m *Map) ScaleDenominator() float64 {
	denominator := m.Scale() / pixelSize
	if projection.IsGeographic(m.SRS) {
		denominator *= metersPerDegree
	}
	return denominator
}

// bufferedExtent returns the extent grown by BufferSize pixels.
func (m *Map) bufferedExtent() orb.Bound {
	pad := float64(m.BufferSize) * m.Scale()
	return m.extent.Pad(pad)
}
