package infrastructure

import (
	"context"
	"fmt"
	"github.com/jonas-p/go-shp"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulmach/orb"
	"os"
	"strconv"
	"strings"
)

var _ carto.Datasource = (*ShapefileDatasource)(nil)

// ShapefileDatasource serves the records of an ESRI shapefile. The "file"
// parameter may omit the .shp extension.
type ShapefileDatasource struct {
	path     string
	features []*carto.Feature
	envelope orb.Bound
}

func NewShapefileDatasource(params carto.Parameters) (*ShapefileDatasource, error) {
	path := params.String("file", "")
	if path == "" {
		return nil, fmt.Errorf("shape datasource requires a file parameter")
	}
	if !strings.HasSuffix(strings.ToLower(path), ".shp") {
		path += ".shp"
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	// go-shp ignores a missing attribute table
	if _, err := os.Stat(path[:len(path)-len(".shp")] + ".dbf"); err != nil {
		return nil, fmt.Errorf("failed to open shapefile attributes: %w", err)
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer reader.Close()

	ds := &ShapefileDatasource{path: path}
	fields := reader.Fields()

	for reader.Next() {
		row, shape := reader.Shape()

		geometry := shapeGeometry(shape)
		if geometry == nil {
			continue
		}

		attrs := make(map[string]any, len(fields))
		for i, field := range fields {
			attrs[field.String()] = fieldValue(field, reader.ReadAttribute(row, i))
		}

		ds.features = append(ds.features, carto.NewFeature(int64(row+1), geometry, attrs))
	}

	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile %s: %w", path, err)
	}

	ds.envelope = carto.EnvelopeOf(ds.features)
	return ds, nil
}

func (s *ShapefileDatasource) Features(ctx context.Context, query carto.Query) ([]*carto.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return carto.FilterByBound(s.features, query), nil
}

func (s *ShapefileDatasource) Envelope(ctx context.Context) (orb.Bound, error) {
	return s.envelope, nil
}

func fieldValue(field shp.Field, raw string) any {
	raw = strings.TrimSpace(strings.Trim(raw, "\x00"))

	switch field.Fieldtype {
	case 'N', 'F':
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		return v
	case 'L':
		switch strings.ToUpper(raw) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		}
		return nil
	default:
		return raw
	}
}

func shapeGeometry(shape shp.Shape) orb.Geometry {
	switch s := shape.(type) {
	case *shp.Point:
		return orb.Point{s.X, s.Y}
	case *shp.PointZ:
		return orb.Point{s.X, s.Y}
	case *shp.PointM:
		return orb.Point{s.X, s.Y}
	case *shp.MultiPoint:
		return multiPoint(s.Points)
	case *shp.MultiPointZ:
		return multiPoint(s.Points)
	case *shp.PolyLine:
		return lines(s.Parts, s.Points)
	case *shp.PolyLineZ:
		return lines(s.Parts, s.Points)
	case *shp.PolyLineM:
		return lines(s.Parts, s.Points)
	case *shp.Polygon:
		return polygons(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygons(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygons(s.Parts, s.Points)
	}
	return nil
}

func multiPoint(points []shp.Point) orb.MultiPoint {
	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

// parts splits the flat point list of a record at the part offsets.
func parts(offsets []int32, points []shp.Point) [][]orb.Point {
	result := make([][]orb.Point, 0, len(offsets))
	for i, start := range offsets {
		end := int32(len(points))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start < 0 || start > end || end > int32(len(points)) {
			continue
		}

		part := make([]orb.Point, 0, end-start)
		for _, p := range points[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		result = append(result, part)
	}
	return result
}

func lines(offsets []int32, points []shp.Point) orb.Geometry {
	split := parts(offsets, points)
	if len(split) == 1 {
		return orb.LineString(split[0])
	}

	mls := make(orb.MultiLineString, len(split))
	for i, part := range split {
		mls[i] = part
	}
	return mls
}

// polygons groups rings into polygons. Shapefile outer rings run clockwise,
// holes counter-clockwise and follow their outer ring.
func polygons(offsets []int32, points []shp.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for _, part := range parts(offsets, points) {
		ring := orb.Ring(part)
		if len(ring) < 3 {
			continue
		}

		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}

	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	default:
		return mp
	}
}
