// Package fixtures writes small datasets for tests.
package fixtures

import (
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"os"
	"path/filepath"
	"testing"
)

type Row struct {
	Geometry orb.Geometry
	Values   []any
}

// WriteShapefile writes rows to base.shp with its .shx and .dbf siblings.
// Polygons and lines become POLYGON or POLYLINE records, points POINT.
func WriteShapefile(t testing.TB, base string, fields []shp.Field, rows []Row) {
	t.Helper()

	if len(rows) == 0 {
		t.Fatal("fixtures: no rows")
	}

	var shapeType shp.ShapeType
	switch rows[0].Geometry.(type) {
	case orb.Polygon:
		shapeType = shp.POLYGON
	case orb.LineString:
		shapeType = shp.POLYLINE
	case orb.Point:
		shapeType = shp.POINT
	default:
		t.Fatalf("fixtures: unsupported geometry %T", rows[0].Geometry)
	}

	w, err := shp.Create(base+".shp", shapeType)
	if err != nil {
		t.Fatal(err)
	}

	w.SetFields(fields)

	for _, r := range rows {
		var row int32
		switch g := r.Geometry.(type) {
		case orb.Polygon:
			polygon := shp.Polygon(*shp.NewPolyLine(shpParts(g)))
			row = w.Write(&polygon)
		case orb.LineString:
			row = w.Write(shp.NewPolyLine([][]shp.Point{shpPoints(g)}))
		case orb.Point:
			row = w.Write(&shp.Point{X: g[0], Y: g[1]})
		}

		for i, v := range r.Values {
			if err := w.WriteAttribute(int(row), i, v); err != nil {
				t.Fatal(err)
			}
		}
	}
	w.Close()

	// go-shp names the attribute table base+"dbf"
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		t.Fatal(err)
	}
}

func shpParts(polygon orb.Polygon) [][]shp.Point {
	parts := make([][]shp.Point, 0, len(polygon))
	for _, ring := range polygon {
		parts = append(parts, shpPoints(ring))
	}
	return parts
}

func shpPoints(points []orb.Point) []shp.Point {
	result := make([]shp.Point, len(points))
	for i, p := range points {
		result[i] = shp.Point{X: p[0], Y: p[1]}
	}
	return result
}

// Box returns a clockwise ring, the outer ring orientation of shapefiles.
func Box(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{{
		{minX, minY}, {minX, maxY}, {maxX, maxY}, {maxX, minY}, {minX, minY},
	}}
}

// CanadaExtent is a viewport in the Lambert conformal conic projection of
// the Canada dataset that the dataset covers.
var CanadaExtent = orb.Bound{Min: orb.Point{1515091, -202540}, Max: orb.Point{1720540, -102263}}

// WriteCanadaDataset writes every shapefile the in-code map reads into dir.
// Coordinates are in the map's Lambert conformal conic projection.
func WriteCanadaDataset(t testing.TB, dir string) {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	name := shp.StringField("NAME_EN", 32)
	class := shp.NumberField("CLASS", 4)

	WriteShapefile(t, filepath.Join(dir, "boundaries"), []shp.Field{name}, []Row{
		{Box(1400000, -300000, 1600000, 0), []any{"Ontario"}},
		{Box(1600000, -300000, 1800000, 0), []any{"Quebec"}},
	})
	WriteShapefile(t, filepath.Join(dir, "boundaries_l"), []shp.Field{name}, []Row{
		{orb.LineString{{1600000, -300000}, {1600000, 0}}, []any{"Ontario-Quebec"}},
	})
	WriteShapefile(t, filepath.Join(dir, "qcdrainage"), []shp.Field{shp.NumberField("HYC", 4)}, []Row{
		{Box(1650000, -180000, 1700000, -130000), []any{8}},
	})
	WriteShapefile(t, filepath.Join(dir, "ontdrainage"), []shp.Field{shp.NumberField("HYC", 4)}, []Row{
		{Box(1530000, -180000, 1560000, -150000), []any{8}},
		{Box(1530000, -140000, 1560000, -110000), []any{4}},
	})
	WriteShapefile(t, filepath.Join(dir, "roads"), []shp.Field{class}, []Row{
		{orb.LineString{{1500000, -190000}, {1730000, -190000}}, []any{1}},
		{orb.LineString{{1500000, -150000}, {1730000, -150000}}, []any{2}},
		{orb.LineString{{1500000, -120000}, {1730000, -120000}}, []any{3}},
	})
	WriteShapefile(t, filepath.Join(dir, "popplaces"), []shp.Field{shp.StringField("GEONAME", 32)}, []Row{
		{orb.Point{1580000, -160000}, []any{"Ottawa"}},
		{orb.Point{1660000, -140000}, []any{"Montreal"}},
	})
}
