package carto

import (
	"context"
	"errors"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/expression"
	"github.com/paulmach/orb"
	"sort"
	"strconv"
	"strings"
	"sync"
)

var ErrUnknownDatasourceType = errors.New("unknown datasource type")

type Feature struct {
	ID         int64
	Geometry   orb.Geometry
	Attributes expression.Attributes
}

// NewFeature normalises attribute values so that filter comparisons against
// numeric literals work regardless of the integer width the source used.
func NewFeature(id int64, geometry orb.Geometry, attrs map[string]any) *Feature {
	normalized := make(expression.Attributes, len(attrs))
	for k, v := range attrs {
		normalized[k] = normalizeValue(v)
	}

	return &Feature{
		ID:         id,
		Geometry:   geometry,
		Attributes: normalized,
	}
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int8:
		return float64(t)
	case int16:
		return float64(t)
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	case uint:
		return float64(t)
	case uint8:
		return float64(t)
	case uint16:
		return float64(t)
	case uint32:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	default:
		return v
	}
}

// Query restricts the features a datasource returns. Bound is expressed in
// the layer's spatial reference; an empty bound means no restriction.
type Query struct {
	Bound orb.Bound
}

func (q Query) Unbounded() bool {
	return q.Bound == (orb.Bound{}) || q.Bound.IsEmpty()
}

type Datasource interface {
	Features(ctx context.Context, query Query) ([]*Feature, error)
	Envelope(ctx context.Context) (orb.Bound, error)
}

// Parameters are the key/value pairs configuring a datasource, as found in
// the Datasource element of a style document.
type Parameters map[string]string

func (p Parameters) String(key, fallback string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return fallback
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "yes", "1":
		return true, nil
	case "false", "off", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

type DatasourceFactory func(params Parameters) (Datasource, error)

// DatasourceRegistry resolves the "type" parameter of a datasource
// definition to a factory.
type DatasourceRegistry struct {
	mu        sync.RWMutex
	factories map[string]DatasourceFactory
}

func NewDatasourceRegistry() *DatasourceRegistry {
	return &DatasourceRegistry{
		factories: map[string]DatasourceFactory{},
	}
}

func (r *DatasourceRegistry) Register(kind string, factory DatasourceFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

func (r *DatasourceRegistry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		types = append(types, kind)
	}
	sort.Strings(types)
	return types
}

func (r *DatasourceRegistry) Create(params Parameters) (Datasource, error) {
	kind := params["type"]

	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatasourceType, kind)
	}

	ds, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s datasource: %w", kind, err)
	}
	return ds, nil
}

// MemoryDatasource serves a fixed set of features.
type MemoryDatasource struct {
	features []*Feature
}

func NewMemoryDatasource(features ...*Feature) *MemoryDatasource {
	return &MemoryDatasource{features: features}
}

func (m *MemoryDatasource) Add(f *Feature) {
	m.features = append(m.features, f)
}

func (m *MemoryDatasource) Features(ctx context.Context, query Query) ([]*Feature, error) {
	return FilterByBound(m.features, query), nil
}

func (m *MemoryDatasource) Envelope(ctx context.Context) (orb.Bound, error) {
	return EnvelopeOf(m.features), nil
}

// FilterByBound returns the features whose geometry bound intersects the query.
func FilterByBound(features []*Feature, query Query) []*Feature {
	if query.Unbounded() {
		return features
	}

	result := make([]*Feature, 0, len(features))
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		if f.Geometry.Bound().Intersects(query.Bound) {
			result = append(result, f)
		}
	}
	return result
}

func EnvelopeOf(features []*Feature) orb.Bound {
	var bound orb.Bound
	first := true
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		if first {
			bound = f.Geometry.Bound()
			first = false
			continue
		}
		bound = bound.Union(f.Geometry.Bound())
	}
	return bound
}
