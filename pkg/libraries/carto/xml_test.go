package carto_test

import (
	"context"
	"errors"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulmach/orb"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

const styleDocument = `<?xml version="1.0" encoding="utf-8"?>
<Map srs="+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs" background-color="#ffffff" buffer-size="8">
  <Style name="provinces" filter-mode="first">
    <Rule>
      <Filter>[NAME_EN] = 'Ontario'</Filter>
      <PolygonSymbolizer fill="rgb(250,190,183)" />
    </Rule>
    <Rule>
      <ElseFilter/>
      <PolygonSymbolizer fill="rgb(217,235,203)" smooth="0.5" />
    </Rule>
  </Style>
  <Style name="lines">
    <Rule>
      <MaxScaleDenominator>1e12</MaxScaleDenominator>
      <LineSymbolizer stroke="black" stroke-width="2" stroke-linecap="round" stroke-dasharray="4, 2" />
      <TextSymbolizer size="10" fill="black" halo-radius="1" allow-overlap="true">[NAME_EN]</TextSymbolizer>
      <MarkersSymbolizer fill="red" width="6" />
    </Rule>
  </Style>
  <Layer name="Provinces" srs="+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs" status="on">
    <StyleName>provinces</StyleName>
    <StyleName>lines</StyleName>
    <Datasource>
      <Parameter name="type">memory</Parameter>
      <Parameter name="file">data/boundaries</Parameter>
    </Datasource>
  </Layer>
  <Layer name="Hidden" status="off">
    <StyleName>lines</StyleName>
    <Datasource>
      <Parameter name="type">memory</Parameter>
      <Parameter name="file">/abs/path</Parameter>
    </Datasource>
  </Layer>
</Map>`

type recordingRegistry struct {
	*carto.DatasourceRegistry
	params []carto.Parameters
}

func newRecordingRegistry() *recordingRegistry {
	r := &recordingRegistry{DatasourceRegistry: carto.NewDatasourceRegistry()}
	r.Register("memory", func(params carto.Parameters) (carto.Datasource, error) {
		r.params = append(r.params, params)
		return carto.NewMemoryDatasource(
			carto.NewFeature(1, square(-10, -10, 0, 10), map[string]any{"NAME_EN": "Ontario"}),
			carto.NewFeature(2, square(0, -10, 10, 10), map[string]any{"NAME_EN": "Quebec"}),
		), nil
	})
	return r
}

func TestLoadMapString(t *testing.T) {
	registry := newRecordingRegistry()
	m := carto.NewMap(100, 100, "")

	if err := carto.LoadMapString(m, []byte(styleDocument), "/app", registry.DatasourceRegistry); err != nil {
		t.Fatal(err)
	}

	if m.Background == nil || *m.Background != carto.RGB(255, 255, 255) {
		t.Fatalf("unexpected background %v", m.Background)
	}
	if m.BufferSize != 8 {
		t.Fatalf("unexpected buffer size %d", m.BufferSize)
	}
	if m.StyleCount() != 2 {
		t.Fatalf("expected 2 styles, got %d", m.StyleCount())
	}

	provinces, ok := m.Style("provinces")
	if !ok {
		t.Fatal("provinces style missing")
	}
	if provinces.FilterMode != carto.FilterModeFirst || len(provinces.Rules) != 2 {
		t.Fatalf("unexpected provinces style %+v", provinces)
	}
	if provinces.Rules[0].Filter == nil || provinces.Rules[0].Filter.String() != "[NAME_EN] = 'Ontario'" {
		t.Fatalf("unexpected filter %v", provinces.Rules[0].Filter)
	}
	if !provinces.Rules[1].ElseFilter {
		t.Fatal("second rule should be an else rule")
	}

	lines, _ := m.Style("lines")
	if len(lines.Rules[0].Symbolizers) != 3 {
		t.Fatalf("expected 3 symbolizers, got %d", len(lines.Rules[0].Symbolizers))
	}
	line, ok := lines.Rules[0].Symbolizers[0].(*carto.LineSymbolizer)
	if !ok {
		t.Fatalf("unexpected symbolizer %T", lines.Rules[0].Symbolizers[0])
	}
	if line.StrokeWidth != 2 || line.LineCap != carto.RoundCap || len(line.DashArray) != 2 {
		t.Fatalf("unexpected line symbolizer %+v", line)
	}
	markers := lines.Rules[0].Symbolizers[2].(*carto.MarkersSymbolizer)
	if markers.Width != 6 || markers.Height != 6 {
		t.Fatalf("marker height should default to width, got %+v", markers)
	}

	if len(m.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(m.Layers))
	}
	if m.Layers[0].Name != "Provinces" || len(m.Layers[0].Styles) != 2 || !m.Layers[0].Active {
		t.Fatalf("unexpected first layer %+v", m.Layers[0])
	}
	if m.Layers[1].Active {
		t.Fatal("second layer should be inactive")
	}

	if got := registry.params[0]["file"]; got != filepath.Join("/app", "data/boundaries") {
		t.Fatalf("relative file should resolve against the document, got %q", got)
	}
	if got := registry.params[1]["file"]; got != "/abs/path" {
		t.Fatalf("absolute file should be kept, got %q", got)
	}

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{-10, -10}, Max: orb.Point{10, 10}}); err != nil {
		t.Fatal(err)
	}
	img, err := carto.Render(context.Background(), m)
	if err != nil {
		t.Fatal(err)
	}
	if got := rgbaAt(img.Image(), 20, 80); got != (color.RGBA{250, 190, 183, 255}) {
		t.Errorf("ontario should use its own fill, got %v", got)
	}
}

func TestLoadMap_Errors(t *testing.T) {
	registry := newRecordingRegistry()

	err := carto.LoadMap(carto.NewMap(10, 10, ""), filepath.Join(t.TempDir(), "missing.xml"), registry.DatasourceRegistry)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected a not-exist error, got %v", err)
	}

	tests := map[string]string{
		"malformed":       `<Map><Style name="x">`,
		"wrong root":      `<Style name="x"/>`,
		"bad color":       `<Map background-color="nope"/>`,
		"bad filter":      `<Map><Style name="x"><Rule><Filter>[a = 1</Filter></Rule></Style></Map>`,
		"unknown type":    `<Map><Layer name="l"><Datasource><Parameter name="type">postgis</Parameter></Datasource></Layer></Map>`,
		"bad filter-mode": `<Map><Style name="x" filter-mode="some"/></Map>`,
		"bad linecap":     `<Map><Style name="x"><Rule><LineSymbolizer stroke-linecap="pointy"/></Rule></Style></Map>`,
	}

	for name, doc := range tests {
		if err := carto.LoadMapString(carto.NewMap(10, 10, ""), []byte(doc), "", registry.DatasourceRegistry); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}

	err = carto.LoadMapString(carto.NewMap(10, 10, ""), []byte(tests["unknown type"]), "", registry.DatasourceRegistry)
	if !errors.Is(err, carto.ErrUnknownDatasourceType) {
		t.Fatalf("expected ErrUnknownDatasourceType, got %v", err)
	}
}

func TestLoadMap_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "map.xml")
	if err := os.WriteFile(path, []byte(styleDocument), 0o644); err != nil {
		t.Fatal(err)
	}

	registry := newRecordingRegistry()
	if err := carto.LoadMap(carto.NewMap(10, 10, ""), path, registry.DatasourceRegistry); err != nil {
		t.Fatal(err)
	}

	if got := registry.params[0]["file"]; got != filepath.Join(dir, "data/boundaries") {
		t.Fatalf("unexpected resolved file %q", got)
	}
}

func TestLoadMap_DeployExample(t *testing.T) {
	registry := carto.NewDatasourceRegistry()
	var files []string
	registry.Register("shape", func(params carto.Parameters) (carto.Datasource, error) {
		files = append(files, params["file"])
		return carto.NewMemoryDatasource(), nil
	})

	m := carto.NewMap(800, 600, "")
	if err := carto.LoadMap(m, filepath.Join("..", "..", "..", "deploy", "map.xml"), registry); err != nil {
		t.Fatal(err)
	}

	if len(m.Layers) != 6 || m.StyleCount() != 5 {
		t.Fatalf("unexpected map: %d layers, %d styles", len(m.Layers), m.StyleCount())
	}
	if files[0] != filepath.Join("/data", "boundaries") {
		t.Fatalf("base parameter not applied, got %q", files[0])
	}

	if err := m.ZoomToBox(orb.Bound{Min: orb.Point{1515091, -202540}, Max: orb.Point{1720540, -102263}}); err != nil {
		t.Fatal(err)
	}
	if _, err := carto.Render(context.Background(), m); err != nil {
		t.Fatal(err)
	}
}
