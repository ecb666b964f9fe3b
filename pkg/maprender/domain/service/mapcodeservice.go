package service

import (
	"context"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/repository"
	"github.com/paulmach/orb"
)

const (
	MercatorSRS = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
	// CanadaLambertSRS is the projection of the bundled shapefiles. The
	// malformed "+lat+1" key is ignored, leaving lat_1 at its default.
	CanadaLambertSRS = "+proj=lcc +ellps=GRS80 +lat_0=49 +lon_0=-95 +lat+1=49 +lat_2=77 +datum=NAD83 +units=m +no_defs"
)

var _ MapBuilder = (*mapCodeService)(nil)

type mapCodeService struct {
	dataRepository repository.MapDataRepository
	width, height  int
	extent         orb.Bound
}

// NewMapCodeService assembles the Canadian provinces map layer by layer.
// Shapefiles are opened through dataRepository by their base name.
func NewMapCodeService(dataRepository repository.MapDataRepository, width, height int, extent orb.Bound) MapBuilder {
	return &mapCodeService{
		dataRepository: dataRepository,
		width:          width,
		height:         height,
		extent:         extent,
	}
}

func (m *mapCodeService) BuildMap(ctx context.Context) (*carto.Map, error) {
	cm := carto.NewMap(m.width, m.height, MercatorSRS)
	cm.SetBackground(carto.MustParseColor("white"))

	if err := m.addStyles(cm); err != nil {
		return nil, fmt.Errorf("failed to build styles: %w", err)
	}

	boundaries, err := m.shapefile(ctx, "boundaries")
	if err != nil {
		return nil, err
	}
	cm.AddLayer(m.layer("Provinces", boundaries, "provinces"))

	borders, err := m.shapefile(ctx, "boundaries_l")
	if err != nil {
		return nil, err
	}
	cm.AddLayer(m.layer("Provincial borders", borders, "provlines"))

	qcDrainage, err := m.shapefile(ctx, "qcdrainage")
	if err != nil {
		return nil, err
	}
	cm.AddLayer(m.layer("Quebec Hydrography", qcDrainage, "drainage"))

	ontDrainage, err := m.shapefile(ctx, "ontdrainage")
	if err != nil {
		return nil, err
	}
	cm.AddLayer(m.layer("Ontario Hydrography", ontDrainage, "drainage"))

	// the three road layers share one datasource and stack by class
	roads, err := m.shapefile(ctx, "roads")
	if err != nil {
		return nil, err
	}
	cm.AddLayer(m.layer("Roads", roads, "smallroads"))
	cm.AddLayer(m.layer("Roads", roads, "road-border", "road-fill"))
	cm.AddLayer(m.layer("Roads", roads, "highway-border", "highway-fill"))

	places, err := m.shapefile(ctx, "popplaces")
	if err != nil {
		return nil, err
	}
	cm.AddLayer(m.layer("Populated Places", places, "popplaces"))

	if err := cm.ZoomToBox(m.extent); err != nil {
		return nil, fmt.Errorf("failed to zoom map: %w", err)
	}

	return cm, nil
}

func (m *mapCodeService) shapefile(ctx context.Context, name string) (carto.Datasource, error) {
	ds, err := m.dataRepository.Open(ctx, carto.Parameters{"type": "shape", "file": name})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return ds, nil
}

func (m *mapCodeService) layer(name string, ds carto.Datasource, styles ...string) *carto.Layer {
	layer := carto.NewLayer(name, CanadaLambertSRS)
	layer.Datasource = ds
	for _, style := range styles {
		layer.AddStyle(style)
	}
	return layer
}

func (m *mapCodeService) addStyles(cm *carto.Map) error {
	provinces := carto.NewStyle()
	for _, province := range []struct {
		name string
		fill carto.Color
	}{
		{"Ontario", carto.RGB(250, 190, 183)},
		{"Quebec", carto.RGB(217, 235, 203)},
	} {
		sym := carto.NewPolygonSymbolizer()
		sym.Fill = province.fill

		rule, err := filteredRule(fmt.Sprintf("[NAME_EN] = '%s'", province.name), sym)
		if err != nil {
			return err
		}
		provinces.AddRule(rule)
	}
	cm.AppendStyle("provinces", provinces)

	border := carto.NewLineSymbolizer()
	border.Stroke = carto.MustParseColor("black")
	border.StrokeWidth = 1
	border.StrokeOpacity = 1
	cm.AppendStyle("provlines", carto.NewStyle().AddRule(carto.NewRule().Append(border)))

	water := carto.NewPolygonSymbolizer()
	water.Fill = carto.RGBA(153, 204, 255, 255)
	water.Smooth = 1
	drainage, err := filteredRule("[HYC] = 8", water)
	if err != nil {
		return err
	}
	cm.AppendStyle("drainage", carto.NewStyle().AddRule(drainage))

	roads := []struct {
		style  string
		filter string
		stroke carto.Color
		width  float64
	}{
		{"smallroads", "([CLASS] = 3) or ([CLASS] = 4)", carto.RGB(171, 158, 137), 2},
		{"road-border", "[CLASS] = 2", carto.RGB(171, 158, 137), 4},
		{"road-fill", "[CLASS] = 2", carto.RGB(255, 250, 115), 2},
		{"highway-border", "[CLASS] = 1", carto.RGB(188, 149, 28), 7},
		{"highway-fill", "[CLASS] = 1", carto.RGB(242, 191, 36), 5},
	}
	for _, road := range roads {
		sym := carto.NewLineSymbolizer()
		sym.Stroke = road.stroke
		sym.StrokeWidth = road.width
		sym.LineCap = carto.RoundCap

		rule, err := filteredRule(road.filter, sym)
		if err != nil {
			return err
		}
		cm.AppendStyle(road.style, carto.NewStyle().AddRule(rule))
	}

	label, err := carto.NewTextSymbolizer("[GEONAME]")
	if err != nil {
		return err
	}
	label.Fill = carto.MustParseColor("black")
	label.Size = 10
	label.HaloFill = carto.RGB(255, 255, 200)
	label.HaloRadius = 1
	label.AllowOverlap = true
	label.AvoidEdges = true
	label.MinimumPadding = 30
	cm.AppendStyle("popplaces", carto.NewStyle().AddRule(carto.NewRule().Append(label)))

	return nil
}

func filteredRule(filter string, sym carto.Symbolizer) (*carto.Rule, error) {
	rule := carto.NewRule()
	if err := rule.SetFilter(filter); err != nil {
		return nil, err
	}
	return rule.Append(sym), nil
}
