package projection

import (
	"fmt"
	"github.com/paulmach/orb"
	"github.com/twpayne/go-proj/v10"
	"math"
)

// Transformer converts coordinates from one coordinate reference system to
// another. Close releases the PROJ object.
type Transformer struct {
	pj      *proj.PJ
	inverse bool
}

// NewTransformer builds a Transformer from src to dst. Coordinates are in
// longitude, latitude order for geographic systems.
func NewTransformer(src, dst string) (*Transformer, error) {
	src, dst = Normalize(src), Normalize(dst)
	if src == dst || (IsGeographic(src) && IsGeographic(dst)) {
		return &Transformer{}, nil
	}

	pj, err := proj.NewCRSToCRS(src, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create transformation from %q to %q: %w", src, dst, err)
	}
	defer pj.Destroy()

	normalized, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("failed to normalize transformation from %q to %q: %w", src, dst, err)
	}

	return &Transformer{pj: normalized}, nil
}

func (t *Transformer) IsIdentity() bool {
	return t.pj == nil
}

func (t *Transformer) Close() {
	if t.pj != nil && !t.inverse {
		t.pj.Destroy()
	}
}

func (t *Transformer) Forward(p orb.Point) (orb.Point, error) {
	if t.pj == nil {
		return p, nil
	}

	var (
		coord proj.Coord
		err   error
	)
	if t.inverse {
		coord, err = t.pj.Inverse(proj.NewCoord(p[0], p[1], 0, 0))
	} else {
		coord, err = t.pj.Forward(proj.NewCoord(p[0], p[1], 0, 0))
	}
	if err != nil {
		return orb.Point{math.NaN(), math.NaN()}, err
	}

	x, y := coord.X(), coord.Y()
	if math.IsInf(x, 0) || math.IsInf(y, 0) {
		return orb.Point{math.NaN(), math.NaN()}, fmt.Errorf("failed to project %v", p)
	}
	return orb.Point{x, y}, nil
}

func (t *Transformer) Backward(p orb.Point) (orb.Point, error) {
	return t.Reverse().Forward(p)
}

// Reverse shares the PROJ object of t; only t must be closed.
func (t *Transformer) Reverse() *Transformer {
	return &Transformer{pj: t.pj, inverse: !t.inverse}
}

// Projection returns an orb.Projection. Points that cannot be projected
// become NaN and are dropped by the renderer.
func (t *Transformer) Projection() orb.Projection {
	return func(p orb.Point) orb.Point {
		out, _ := t.Forward(p)
		return out
	}
}

// ForwardBound projects a bound by sampling its edges, so the result
// contains the whole source area even under curved projections.
func (t *Transformer) ForwardBound(b orb.Bound) (orb.Bound, error) {
	if t.pj == nil {
		return b, nil
	}

	const steps = 16

	var result orb.Bound
	first := true
	for i := 0; i <= steps; i++ {
		f := float64(i) / steps
		x := b.Min[0] + (b.Max[0]-b.Min[0])*f
		y := b.Min[1] + (b.Max[1]-b.Min[1])*f

		for _, p := range []orb.Point{{x, b.Min[1]}, {x, b.Max[1]}, {b.Min[0], y}, {b.Max[0], y}} {
			out, err := t.Forward(p)
			if err != nil || math.IsNaN(out[0]) || math.IsNaN(out[1]) {
				continue
			}

			if first {
				result = out.Bound()
				first = false
				continue
			}
			result = result.Extend(out)
		}
	}

	if first {
		return orb.Bound{}, fmt.Errorf("failed to project bound %v", b)
	}

	return result, nil
}
