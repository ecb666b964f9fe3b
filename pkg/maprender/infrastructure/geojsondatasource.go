package infrastructure

import (
	"context"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"os"
)

var _ carto.Datasource = (*GeoJSONDatasource)(nil)

type GeoJSONDatasource struct {
	features []*carto.Feature
	envelope orb.Bound
}

// NewGeoJSONDatasource reads the FeatureCollection in the "file" parameter.
func NewGeoJSONDatasource(params carto.Parameters) (*GeoJSONDatasource, error) {
	path := params.String("file", "")
	if path == "" {
		return nil, fmt.Errorf("geojson datasource requires a file parameter")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson file %s: %w", path, err)
	}

	return newGeoJSONDatasource(fc), nil
}

func newGeoJSONDatasource(fc *geojson.FeatureCollection) *GeoJSONDatasource {
	ds := &GeoJSONDatasource{
		features: make([]*carto.Feature, 0, len(fc.Features)),
	}

	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		ds.features = append(ds.features, carto.NewFeature(int64(i+1), f.Geometry, f.Properties))
	}

	ds.envelope = carto.EnvelopeOf(ds.features)
	return ds
}

func (g *GeoJSONDatasource) Features(ctx context.Context, query carto.Query) ([]*carto.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return carto.FilterByBound(g.features, query), nil
}

func (g *GeoJSONDatasource) Envelope(ctx context.Context) (orb.Bound, error) {
	return g.envelope, nil
}
