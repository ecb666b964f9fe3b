package carto

import (
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/expression"
	"math"
	"strings"
)

type FilterMode int

const (
	// FilterModeAll applies every matching rule.
	FilterModeAll FilterMode = iota
	// FilterModeFirst stops after the first matching rule.
	FilterModeFirst
)

func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterModeAll, nil
	case "first":
		return FilterModeFirst, nil
	default:
		return FilterModeAll, fmt.Errorf("unknown filter-mode %q", s)
	}
}

type Style struct {
	Rules      []*Rule
	FilterMode FilterMode
	// Opacity is applied to every symbolizer of the style. Zero means opaque.
	Opacity float64
}

func NewStyle() *Style {
	return &Style{}
}

func (s *Style) AddRule(r *Rule) *Style {
	s.Rules = append(s.Rules, r)
	return s
}

// Rule pairs an optional filter with the symbolizers drawn for matching
// features. A rule with ElseFilter set only applies to features that no
// other rule of the style matched.
type Rule struct {
	Name                string
	Filter              *expression.Expression
	ElseFilter          bool
	MinScaleDenominator float64
	MaxScaleDenominator float64
	Symbolizers         []Symbolizer
}

func NewRule() *Rule {
	return &Rule{MaxScaleDenominator: math.Inf(1)}
}

// SetFilter compiles and attaches a filter expression.
func (r *Rule) SetFilter(source string) error {
	expr, err := expression.Compile(source)
	if err != nil {
		return err
	}
	r.Filter = expr
	return nil
}

func (r *Rule) Append(s Symbolizer) *Rule {
	r.Symbolizers = append(r.Symbolizers, s)
	return r
}

func (r *Rule) active(scaleDenominator float64) bool {
	max := r.MaxScaleDenominator
	if max == 0 {
		max = math.Inf(1)
	}
	return scaleDenominator >= r.MinScaleDenominator && scaleDenominator < max
}

func (r *Rule) matches(attrs expression.Attributes) bool {
	return r.Filter == nil || r.Filter.Match(attrs)
}

type LineCap int

const (
	ButtCap LineCap = iota
	RoundCap
	SquareCap
)

func ParseLineCap(s string) (LineCap, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "butt":
		return ButtCap, nil
	case "round":
		return RoundCap, nil
	case "square":
		return SquareCap, nil
	default:
		return ButtCap, fmt.Errorf("unknown stroke-linecap %q", s)
	}
}

type LineJoin int

const (
	MiterJoin LineJoin = iota
	RoundJoin
	BevelJoin
)

func ParseLineJoin(s string) (LineJoin, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "miter", "miter-revert":
		return MiterJoin, nil
	case "round":
		return RoundJoin, nil
	case "bevel":
		return BevelJoin, nil
	default:
		return MiterJoin, fmt.Errorf("unknown stroke-linejoin %q", s)
	}
}

// Symbolizer draws one feature. The set of symbolizers is closed.
type Symbolizer interface {
	symbolize(r *renderer, f *renderFeature, opacity float64)
}

type PolygonSymbolizer struct {
	Fill        Color
	FillOpacity float64
	// Smooth rounds corners, from 0 (none) to 1 (full).
	Smooth float64
}

func NewPolygonSymbolizer() *PolygonSymbolizer {
	return &PolygonSymbolizer{Fill: RGB(128, 128, 128), FillOpacity: 1}
}

type LineSymbolizer struct {
	Stroke        Color
	StrokeWidth   float64
	StrokeOpacity float64
	LineCap       LineCap
	LineJoin      LineJoin
	DashArray     []float64
	Smooth        float64
}

func NewLineSymbolizer() *LineSymbolizer {
	return &LineSymbolizer{Stroke: RGB(0, 0, 0), StrokeWidth: 1, StrokeOpacity: 1}
}

// ParseDashArray parses "8 4 2 2" or "8,4,2,2".
func ParseDashArray(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, nil
	}

	dashes := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseFloat(f)
		if err != nil {
			return nil, fmt.Errorf("invalid stroke-dasharray %q: %w", s, err)
		}
		dashes = append(dashes, v)
	}
	return dashes, nil
}

type TextSymbolizer struct {
	Name            *expression.Expression
	Size            float64
	Fill            Color
	HaloFill        Color
	HaloRadius      float64
	Dx, Dy          float64
	AllowOverlap    bool
	AvoidEdges      bool
	MinimumPadding  float64
	MinimumDistance float64
	Opacity         float64
}

func NewTextSymbolizer(name string) (*TextSymbolizer, error) {
	expr, err := expression.Compile(name)
	if err != nil {
		return nil, err
	}

	return &TextSymbolizer{
		Name:     expr,
		Size:     10,
		Fill:     RGB(0, 0, 0),
		HaloFill: RGB(255, 255, 255),
		Opacity:  1,
	}, nil
}

type MarkersSymbolizer struct {
	Fill         Color
	Stroke       Color
	StrokeWidth  float64
	Width        float64
	Height       float64
	Opacity      float64
	AllowOverlap bool
}

func NewMarkersSymbolizer() *MarkersSymbolizer {
	return &MarkersSymbolizer{
		Fill:        RGB(0, 0, 255),
		Stroke:      RGB(255, 255, 255),
		StrokeWidth: 0.5,
		Width:       10,
		Height:      10,
		Opacity:     1,
	}
}
