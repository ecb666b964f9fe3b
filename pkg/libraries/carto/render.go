package carto

import (
	"context"
	"fmt"
	"github.com/fogleman/gg"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/expression"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/projection"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/clip"
	"github.com/paulmach/orb/project"
	"golang.org/x/image/font"
	"math"
)

// renderFeature is a feature whose geometry has been reprojected, clipped
// and converted to pixel coordinates.
type renderFeature struct {
	attrs    expression.Attributes
	geometry orb.Geometry
}

type renderer struct {
	dc               *gg.Context
	m                *Map
	scaleDenominator float64
	labels           *labelCollector
	faces            map[float64]font.Face
}

// Render draws the map at its current extent. Layers are drawn in order;
// within a layer each style is applied to every feature in turn.
func Render(ctx context.Context, m *Map) (*Image, error) {
	if !m.hasExtent {
		return nil, ErrNoExtent
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas size %dx%d", ErrInvalidExtent, m.Width, m.Height)
	}

	scaleDenominator := m.ScaleDenominator()

	dc := gg.NewContext(m.Width, m.Height)
	if m.Background != nil {
		dc.SetColor(*m.Background)
		dc.Clear()
	}

	r := &renderer{
		dc:               dc,
		m:                m,
		scaleDenominator: scaleDenominator,
		labels:           newLabelCollector(m.Width, m.Height),
		faces:            map[float64]font.Face{},
	}

	for _, layer := range m.Layers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if !layer.visible(scaleDenominator) || layer.Datasource == nil {
			continue
		}

		if err := r.renderLayer(ctx, layer); err != nil {
			return nil, fmt.Errorf("failed to render layer %s: %w", layer.Name, err)
		}
	}

	return &Image{img: dc.Image()}, nil
}

func (r *renderer) renderLayer(ctx context.Context, layer *Layer) error {
	styles := make([]*Style, 0, len(layer.Styles))
	for _, name := range layer.Styles {
		style, ok := r.m.styles[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownStyle, name)
		}
		styles = append(styles, style)
	}
	if len(styles) == 0 {
		return nil
	}

	tr, err := projection.NewTransformer(layer.SRS, r.m.SRS)
	if err != nil {
		return err
	}
	defer tr.Close()

	extent := r.m.bufferedExtent()

	query := Query{}
	if bound, err := tr.Reverse().ForwardBound(extent); err == nil {
		query.Bound = bound
	}

	features, err := layer.Datasource.Features(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to query datasource: %w", err)
	}

	prepared := r.prepare(features, tr, extent)
	for _, style := range styles {
		r.renderStyle(style, prepared)
	}

	return nil
}

func (r *renderer) prepare(features []*Feature, tr *projection.Transformer, extent orb.Bound) []*renderFeature {
	view := r.m.extent
	sx := float64(r.m.Width) / (view.Max[0] - view.Min[0])
	sy := float64(r.m.Height) / (view.Max[1] - view.Min[1])
	toPixel := func(p orb.Point) orb.Point {
		return orb.Point{(p[0] - view.Min[0]) * sx, (view.Max[1] - p[1]) * sy}
	}

	result := make([]*renderFeature, 0, len(features))
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}

		g := orb.Clone(f.Geometry)
		if !tr.IsIdentity() {
			g = project.Geometry(g, tr.Projection())
		}

		bound := g.Bound()
		if hasNaN(bound.Min) || hasNaN(bound.Max) || !bound.Intersects(extent) {
			continue
		}

		g = clip.Geometry(extent, g)
		if g == nil {
			continue
		}

		result = append(result, &renderFeature{
			attrs:    f.Attributes,
			geometry: project.Geometry(g, toPixel),
		})
	}

	return result
}

func hasNaN(p orb.Point) bool {
	return math.IsNaN(p[0]) || math.IsNaN(p[1])
}

func (r *renderer) renderStyle(style *Style, features []*renderFeature) {
	opacity := style.Opacity
	if opacity == 0 {
		opacity = 1
	}

	var rules, elseRules []*Rule
	for _, rule := range style.Rules {
		if !rule.active(r.scaleDenominator) {
			continue
		}
		if rule.ElseFilter {
			elseRules = append(elseRules, rule)
		} else {
			rules = append(rules, rule)
		}
	}

	for _, f := range features {
		matched := false
		for _, rule := range rules {
			if !rule.matches(f.attrs) {
				continue
			}

			matched = true
			for _, sym := range rule.Symbolizers {
				sym.symbolize(r, f, opacity)
			}

			if style.FilterMode == FilterModeFirst {
				break
			}
		}

		if matched {
			continue
		}

		for _, rule := range elseRules {
			for _, sym := range rule.Symbolizers {
				sym.symbolize(r, f, opacity)
			}
		}
	}
}

func (s *PolygonSymbolizer) symbolize(r *renderer, f *renderFeature, opacity float64) {
	polygons := polygonsOf(f.geometry, nil)
	if len(polygons) == 0 {
		return
	}

	dc := r.dc
	dc.SetFillRule(gg.FillRuleEvenOdd)
	dc.SetColor(s.Fill.WithOpacity(s.FillOpacity * opacity))

	for _, polygon := range polygons {
		for _, ring := range polygon {
			r.addPath(ring, true, s.Smooth)
		}
		dc.Fill()
	}
}

func (s *LineSymbolizer) symbolize(r *renderer, f *renderFeature, opacity float64) {
	paths := pathsOf(f.geometry, nil)
	if len(paths) == 0 {
		return
	}

	dc := r.dc
	dc.SetLineWidth(s.StrokeWidth)
	dc.SetColor(s.Stroke.WithOpacity(s.StrokeOpacity * opacity))

	switch s.LineCap {
	case RoundCap:
		dc.SetLineCap(gg.LineCapRound)
	case SquareCap:
		dc.SetLineCap(gg.LineCapSquare)
	default:
		dc.SetLineCap(gg.LineCapButt)
	}

	switch s.LineJoin {
	case RoundJoin:
		dc.SetLineJoin(gg.LineJoinRound)
	default:
		dc.SetLineJoin(gg.LineJoinBevel)
	}

	dc.SetDash(s.DashArray...)
	defer dc.SetDash()

	for _, p := range paths {
		r.addPath(p.points, p.closed, s.Smooth)
	}
	dc.Stroke()
}

func (s *MarkersSymbolizer) symbolize(r *renderer, f *renderFeature, opacity float64) {
	dc := r.dc
	rx, ry := s.Width/2, s.Height/2

	for _, p := range anchorsOf(f.geometry, nil) {
		box := orb.Bound{Min: orb.Point{p[0] - rx, p[1] - ry}, Max: orb.Point{p[0] + rx, p[1] + ry}}
		if !r.labels.place(box, placement{allowOverlap: s.AllowOverlap}) {
			continue
		}

		dc.DrawEllipse(p[0], p[1], rx, ry)
		dc.SetColor(s.Fill.WithOpacity(s.Opacity * opacity))
		if s.StrokeWidth <= 0 {
			dc.Fill()
			continue
		}

		dc.FillPreserve()
		dc.SetLineWidth(s.StrokeWidth)
		dc.SetColor(s.Stroke.WithOpacity(s.Opacity * opacity))
		dc.Stroke()
	}
}

func (s *TextSymbolizer) symbolize(r *renderer, f *renderFeature, opacity float64) {
	if s.Name == nil {
		return
	}

	text := s.Name.Text(f.attrs)
	if text == "" {
		return
	}

	face, err := r.fontFace(s.Size)
	if err != nil {
		return
	}

	dc := r.dc
	dc.SetFontFace(face)
	w, h := dc.MeasureString(text)

	for _, p := range anchorsOf(f.geometry, nil) {
		x, y := p[0]+s.Dx, p[1]+s.Dy
		box := orb.Bound{
			Min: orb.Point{x - w/2 - s.HaloRadius, y - h/2 - s.HaloRadius},
			Max: orb.Point{x + w/2 + s.HaloRadius, y + h/2 + s.HaloRadius},
		}

		ok := r.labels.place(box, placement{
			allowOverlap:    s.AllowOverlap,
			avoidEdges:      s.AvoidEdges,
			minimumPadding:  s.MinimumPadding,
			minimumDistance: s.MinimumDistance,
		})
		if !ok {
			continue
		}

		textOpacity := s.Opacity * opacity
		if s.HaloRadius > 0 {
			dc.SetColor(s.HaloFill.WithOpacity(textOpacity))
			const steps = 16
			for i := 0; i < steps; i++ {
				angle := 2 * math.Pi * float64(i) / steps
				dc.DrawStringAnchored(text, x+math.Cos(angle)*s.HaloRadius, y+math.Sin(angle)*s.HaloRadius, 0.5, 0.5)
			}
		}

		dc.SetColor(s.Fill.WithOpacity(textOpacity))
		dc.DrawStringAnchored(text, x, y, 0.5, 0.5)
	}
}

// addPath appends one subpath. With smooth > 0 every corner is replaced by
// a quadratic curve whose end points sit smooth/2 of the way along the
// adjacent segments.
func (r *renderer) addPath(points []orb.Point, closed bool, smooth float64) {
	if closed && len(points) > 1 && points[0] == points[len(points)-1] {
		points = points[:len(points)-1]
	}
	if len(points) < 2 {
		return
	}

	dc := r.dc
	dc.NewSubPath()

	if smooth <= 0 || len(points) < 3 {
		dc.MoveTo(points[0][0], points[0][1])
		for _, p := range points[1:] {
			dc.LineTo(p[0], p[1])
		}
		if closed {
			dc.ClosePath()
		}
		return
	}

	t := math.Min(smooth, 1) / 2
	corner := func(prev, cur, next orb.Point) (orb.Point, orb.Point) {
		return orb.Point{cur[0] + (prev[0]-cur[0])*t, cur[1] + (prev[1]-cur[1])*t},
			orb.Point{cur[0] + (next[0]-cur[0])*t, cur[1] + (next[1]-cur[1])*t}
	}

	n := len(points)
	if closed {
		for i := 0; i < n; i++ {
			a, b := corner(points[(i-1+n)%n], points[i], points[(i+1)%n])
			if i == 0 {
				dc.MoveTo(a[0], a[1])
			} else {
				dc.LineTo(a[0], a[1])
			}
			dc.QuadraticTo(points[i][0], points[i][1], b[0], b[1])
		}
		dc.ClosePath()
		return
	}

	dc.MoveTo(points[0][0], points[0][1])
	for i := 1; i < n-1; i++ {
		a, b := corner(points[i-1], points[i], points[i+1])
		dc.LineTo(a[0], a[1])
		dc.QuadraticTo(points[i][0], points[i][1], b[0], b[1])
	}
	dc.LineTo(points[n-1][0], points[n-1][1])
}
