package infrastructure

import (
	"compress/bzip2"
	"context"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmgeojson"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"io"
	"os"
	"runtime"
	"strings"
)

var _ carto.Datasource = (*OsmDatasource)(nil)

// OsmDatasource turns an OSM dump into features. Tags become attributes,
// alongside osm_id and osm_type.
type OsmDatasource struct {
	features []*carto.Feature
	envelope orb.Bound
}

func NewOsmDatasource(ctx context.Context, params carto.Parameters) (*OsmDatasource, error) {
	path := params.String("file", "")
	if path == "" {
		return nil, fmt.Errorf("osm datasource requires a file parameter")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open osm dump file: %w", err)
	}
	defer f.Close()

	scanner, err := newOsmScanner(ctx, path, f)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	data := &osm.OSM{}
	for scanner.Scan() {
		switch obj := scanner.Object().(type) {
		case *osm.Node:
			data.Nodes = append(data.Nodes, obj)
		case *osm.Way:
			data.Ways = append(data.Ways, obj)
		case *osm.Relation:
			data.Relations = append(data.Relations, obj)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read osm dump file: %w", err)
	}

	fc, err := osmgeojson.Convert(data, osmgeojson.NoMeta(true), osmgeojson.NoRelationMembership(true))
	if err != nil {
		return nil, fmt.Errorf("failed to convert osm data: %w", err)
	}

	ds := &OsmDatasource{}
	for i, feature := range fc.Features {
		if feature.Geometry == nil {
			continue
		}

		attrs := map[string]any{}
		if tags, ok := feature.Properties["tags"].(map[string]string); ok {
			for k, v := range tags {
				attrs[k] = v
			}
		}
		if v, ok := feature.Properties["type"]; ok {
			attrs["osm_type"] = v
		}
		if v, ok := feature.Properties["id"]; ok {
			attrs["osm_id"] = v
		}

		ds.features = append(ds.features, carto.NewFeature(int64(i+1), feature.Geometry, attrs))
	}

	ds.envelope = carto.EnvelopeOf(ds.features)
	return ds, nil
}

// newOsmScanner picks the decoder from the file suffix.
func newOsmScanner(ctx context.Context, path string, r io.Reader) (osm.Scanner, error) {
	switch {
	case strings.HasSuffix(path, ".osm.pbf"):
		return osmpbf.New(ctx, r, runtime.GOMAXPROCS(-1)), nil
	case strings.HasSuffix(path, ".osm.bz2"):
		return osmxml.New(ctx, bzip2.NewReader(r)), nil
	case strings.HasSuffix(path, ".osm"):
		return osmxml.New(ctx, r), nil
	default:
		return nil, fmt.Errorf("osm dump file must either be a '.osm'-XML, a '.osm.bz2'-compressed-XML or a '.osm.pbf'-protobuf file")
	}
}

func (o *OsmDatasource) Features(ctx context.Context, query carto.Query) ([]*carto.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return carto.FilterByBound(o.features, query), nil
}

func (o *OsmDatasource) Envelope(ctx context.Context) (orb.Bound, error) {
	return o.envelope, nil
}
