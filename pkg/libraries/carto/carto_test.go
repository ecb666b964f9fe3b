package carto_test

import (
	"bytes"
	"context"
	"errors"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/projection"
	"github.com/paulmach/orb"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func square(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func twoHalvesMap(t *testing.T) *carto.Map {
	t.Helper()

	m := carto.NewMap(100, 100, projection.WGS84String)
	m.SetBackground(carto.MustParseColor("white"))

	style := carto.NewStyle()

	red := carto.NewRule()
	if err := red.SetFilter("[kind] = 'a'"); err != nil {
		t.Fatal(err)
	}
	redSym := carto.NewPolygonSymbolizer()
	redSym.Fill = carto.RGB(255, 0, 0)
	red.Append(redSym)

	other := carto.NewRule()
	other.ElseFilter = true
	blueSym := carto.NewPolygonSymbolizer()
	blueSym.Fill = carto.RGB(0, 0, 255)
	other.Append(blueSym)

	style.AddRule(red).AddRule(other)
	m.AppendStyle("halves", style)

	layer := carto.NewLayer("halves", projection.WGS84String)
	layer.Datasource = carto.NewMemoryDatasource(
		carto.NewFeature(1, square(-10, -10, 0, 10), map[string]any{"kind": "a"}),
		carto.NewFeature(2, square(0, -10, 10, 10), map[string]any{"kind": "b"}),
	)
	layer.AddStyle("halves")
	m.AddLayer(layer)

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}); err != nil {
		t.Fatal(err)
	}

	return m
}

func TestRender_FilterAndElseFilter(t *testing.T) {
	m := twoHalvesMap(t)

	img, err := carto.Render(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	if got := rgbaAt(img.Image(), 25, 50); got != (color.RGBA{255, 0, 0, 255}) {
		t.Errorf("left half should be red, got %v", got)
	}
	if got := rgbaAt(img.Image(), 75, 50); got != (color.RGBA{0, 0, 255, 255}) {
		t.Errorf("right half should be blue, got %v", got)
	}
}

func TestRender_FilterModeFirst(t *testing.T) {
	m := carto.NewMap(50, 50, projection.WGS84String)

	style := carto.NewStyle()
	style.FilterMode = carto.FilterModeFirst

	first := carto.NewRule()
	green := carto.NewPolygonSymbolizer()
	green.Fill = carto.RGB(0, 255, 0)
	first.Append(green)

	second := carto.NewRule()
	red := carto.NewPolygonSymbolizer()
	red.Fill = carto.RGB(255, 0, 0)
	second.Append(red)

	style.AddRule(first).AddRule(second)
	m.AppendStyle("s", style)

	layer := carto.NewLayer("l", "")
	layer.Datasource = carto.NewMemoryDatasource(carto.NewFeature(1, square(-5, -5, 5, 5), nil))
	layer.AddStyle("s")
	m.AddLayer(layer)

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{-5, -5}, Max: orb.Point{5, 5}}); err != nil {
		t.Fatal(err)
	}

	img, err := carto.Render(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	if got := rgbaAt(img.Image(), 25, 25); got != (color.RGBA{0, 255, 0, 255}) {
		t.Fatalf("only the first rule should apply, got %v", got)
	}
}

func TestRender_LineSymbolizer(t *testing.T) {
	m := carto.NewMap(100, 100, projection.WGS84String)
	m.SetBackground(carto.RGB(255, 255, 255))

	rule := carto.NewRule()
	line := carto.NewLineSymbolizer()
	line.Stroke = carto.RGB(0, 0, 0)
	line.StrokeWidth = 6
	line.LineCap = carto.RoundCap
	rule.Append(line)
	m.AppendStyle("lines", carto.NewStyle().AddRule(rule))

	layer := carto.NewLayer("roads", "")
	layer.Datasource = carto.NewMemoryDatasource(carto.NewFeature(1, orb.LineString{{-20, 0}, {20, 0}}, nil))
	layer.AddStyle("lines")
	m.AddLayer(layer)

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}); err != nil {
		t.Fatal(err)
	}

	img, err := carto.Render(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	if got := rgbaAt(img.Image(), 50, 50); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("line should be drawn through the center, got %v", got)
	}
	if got := rgbaAt(img.Image(), 50, 10); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("pixels away from the line should keep the background, got %v", got)
	}
}

func TestRender_ScaleDenominatorLimitsRules(t *testing.T) {
	m := twoHalvesMap(t)

	style, ok := m.Style("halves")
	if !ok {
		t.Fatal("style missing")
	}
	for _, rule := range style.Rules {
		rule.MaxScaleDenominator = 1
	}

	img, err := carto.Render(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	if got := rgbaAt(img.Image(), 25, 50); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("rules outside their scale range should not draw, got %v", got)
	}
}

func TestRender_ReprojectsLayers(t *testing.T) {
	m := carto.NewMap(100, 100, projection.WebMercatorString)

	rule := carto.NewRule()
	fill := carto.NewPolygonSymbolizer()
	fill.Fill = carto.RGB(10, 20, 30)
	rule.Append(fill)
	m.AppendStyle("s", carto.NewStyle().AddRule(rule))

	layer := carto.NewLayer("geographic", projection.WGS84String)
	layer.Datasource = carto.NewMemoryDatasource(carto.NewFeature(1, square(-1, -1, 1, 1), nil))
	layer.AddStyle("s")
	m.AddLayer(layer)

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{-200000, -200000}, Max: orb.Point{200000, 200000}}); err != nil {
		t.Fatal(err)
	}

	img, err := carto.Render(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	// one degree is about 111km, so the square covers the middle half of the canvas
	if got := rgbaAt(img.Image(), 50, 50); got != (color.RGBA{10, 20, 30, 255}) {
		t.Errorf("center should be filled, got %v", got)
	}
	if got := rgbaAt(img.Image(), 5, 5); got.A != 0 {
		t.Errorf("corner should be transparent, got %v", got)
	}
}

func TestRender_TextSymbolizer(t *testing.T) {
	m := carto.NewMap(200, 100, projection.WGS84String)
	m.SetBackground(carto.RGB(255, 255, 255))

	text, err := carto.NewTextSymbolizer("[GEONAME]")
	if err != nil {
		t.Fatal(err)
	}
	text.Size = 14
	text.HaloRadius = 1
	text.HaloFill = carto.RGB(255, 255, 200)
	m.AppendStyle("labels", carto.NewStyle().AddRule(carto.NewRule().Append(text)))

	layer := carto.NewLayer("places", "")
	layer.Datasource = carto.NewMemoryDatasource(
		carto.NewFeature(1, orb.Point{0, 0}, map[string]any{"GEONAME": "Montreal"}),
		carto.NewFeature(2, orb.Point{0.1, 0.1}, map[string]any{"GEONAME": "Laval"}),
	)
	layer.AddStyle("labels")
	m.AddLayer(layer)

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{-20, -10}, Max: orb.Point{20, 10}}); err != nil {
		t.Fatal(err)
	}

	img, err := carto.Render(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}

	dark := 0
	for y := 40; y < 60; y++ {
		for x := 60; x < 140; x++ {
			if c := rgbaAt(img.Image(), x, y); c.R < 128 && c.G < 128 && c.B < 128 {
				dark++
			}
		}
	}
	if dark == 0 {
		t.Fatal("expected label pixels around the point")
	}
}

func TestRender_Errors(t *testing.T) {
	m := carto.NewMap(10, 10, "")
	if _, err := carto.Render(context.Background(), m); !errors.Is(err, carto.ErrNoExtent) {
		t.Fatalf("expected ErrNoExtent, got %v", err)
	}

	m = twoHalvesMap(t)
	m.Layers[0].AddStyle("missing")
	if _, err := carto.Render(context.Background(), m); !errors.Is(err, carto.ErrUnknownStyle) {
		t.Fatalf("expected ErrUnknownStyle, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := carto.Render(ctx, twoHalvesMap(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMap_ZoomToBoxKeepsAspectRatio(t *testing.T) {
	m := carto.NewMap(800, 600, projection.WebMercatorString)
	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}}); err != nil {
		t.Fatal(err)
	}

	extent, ok := m.Extent()
	if !ok {
		t.Fatal("extent should be set")
	}

	width := extent.Max[0] - extent.Min[0]
	height := extent.Max[1] - extent.Min[1]
	if math.Abs(width/height-800.0/600.0) > 1e-9 {
		t.Fatalf("extent %v does not match canvas ratio", extent)
	}
	if center := extent.Center(); math.Abs(center[0]-50) > 1e-9 || math.Abs(center[1]-50) > 1e-9 {
		t.Fatalf("center moved to %v", extent.Center())
	}

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0, 10}}); !errors.Is(err, carto.ErrInvalidExtent) {
		t.Fatalf("expected ErrInvalidExtent, got %v", err)
	}
}

func TestMap_ZoomAll(t *testing.T) {
	m := twoHalvesMap(t)
	if err := m.ZoomAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	extent, _ := m.Extent()
	if extent.Min[0] > -10 || extent.Max[0] < 10 || extent.Min[1] > -10 || extent.Max[1] < 10 {
		t.Fatalf("extent %v should contain all features", extent)
	}
}

func TestImage_EncodeFormats(t *testing.T) {
	img, err := carto.Render(context.Background(), twoHalvesMap(t))
	if err != nil {
		t.Fatal(err)
	}

	for _, format := range []string{"png", "png32", "png8"} {
		data, err := img.Bytes(format)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.HasPrefix(data, pngMagic) {
			t.Errorf("%s output should start with the PNG signature", format)
		}
	}

	data, err := img.Bytes("jpeg85")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("jpeg output should start with SOI marker")
	}

	if _, err := img.Bytes("tiff"); !errors.Is(err, carto.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	if carto.ContentType("jpeg") != "image/jpeg" || carto.ContentType("png") != "image/png" {
		t.Fatal("unexpected content types")
	}
}

func TestRenderToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.png")

	if err := carto.RenderToFile(context.Background(), twoHalvesMap(t), path, "png"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Fatal("written file is not a PNG")
	}
}

func TestParseColor(t *testing.T) {
	tests := map[string]carto.Color{
		"white":                {255, 255, 255, 255},
		"black":                {0, 0, 0, 255},
		"#f00":                 {255, 0, 0, 255},
		"#99ccff":              {153, 204, 255, 255},
		"#99ccff80":            {153, 204, 255, 128},
		"rgb(250, 190, 183)":   {250, 190, 183, 255},
		"rgba(153,204,255,1)":  {153, 204, 255, 255},
		"rgba(0,0,0,0.5)":      {0, 0, 0, 128},
		"transparent":          {},
		"  SteelBlue ":         {70, 130, 180, 255},
		"rgb(100%, 0%, 100%)": {255, 0, 255, 255},
	}

	for input, want := range tests {
		got, err := carto.ParseColor(input)
		if err != nil {
			t.Errorf("%q: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("%q = %v, want %v", input, got, want)
		}
	}

	for _, input := range []string{"#12", "rgb(1,2)", "notacolor", "rgba(1,2,3,x)"} {
		if _, err := carto.ParseColor(input); err == nil {
			t.Errorf("%q should fail", input)
		}
	}
}
