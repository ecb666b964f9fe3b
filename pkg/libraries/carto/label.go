package carto

import (
	"fmt"
	"github.com/golang/freetype/truetype"
	"github.com/paulmach/orb"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"sync"
)

var (
	labelFontOnce sync.Once
	labelFont     *truetype.Font
	labelFontErr  error
)

// fontFace returns a face of the bundled Go Regular font. Faces keep a glyph
// cache and are not safe for concurrent use, so they are cached per render.
func (r *renderer) fontFace(size float64) (font.Face, error) {
	if face, ok := r.faces[size]; ok {
		return face, nil
	}

	labelFontOnce.Do(func() {
		labelFont, labelFontErr = truetype.Parse(goregular.TTF)
	})
	if labelFontErr != nil {
		return nil, fmt.Errorf("failed to parse label font: %w", labelFontErr)
	}

	face := truetype.NewFace(labelFont, &truetype.Options{Size: size})
	r.faces[size] = face
	return face, nil
}

type placement struct {
	allowOverlap    bool
	avoidEdges      bool
	minimumPadding  float64
	minimumDistance float64
}

// labelCollector tracks the boxes occupied by labels and markers.
type labelCollector struct {
	canvas orb.Bound
	boxes  []orb.Bound
}

func newLabelCollector(width, height int) *labelCollector {
	return &labelCollector{
		canvas: orb.Bound{Max: orb.Point{float64(width), float64(height)}},
	}
}

// place reports whether box may be drawn and, if so, records it.
func (c *labelCollector) place(box orb.Bound, p placement) bool {
	if p.avoidEdges && !within(box.Pad(p.minimumPadding), c.canvas) {
		return false
	}

	if !p.allowOverlap {
		padded := box.Pad(p.minimumDistance)
		for _, other := range c.boxes {
			if padded.Intersects(other) {
				return false
			}
		}
	}

	c.boxes = append(c.boxes, box)
	return true
}

func within(inner, outer orb.Bound) bool {
	return inner.Min[0] >= outer.Min[0] && inner.Min[1] >= outer.Min[1] &&
		inner.Max[0] <= outer.Max[0] && inner.Max[1] <= outer.Max[1]
}
