package service

import (
	"context"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/repository"
	"github.com/paulmach/orb"
)

// MapBuilder produces a fully configured map, zoomed and ready to render.
type MapBuilder interface {
	BuildMap(ctx context.Context) (*carto.Map, error)
}

var _ MapBuilder = (*mapDocumentService)(nil)

type mapDocumentService struct {
	dataRepository repository.MapDataRepository
	stylePath      string
	width, height  int
	extent         orb.Bound
}

func NewMapDocumentService(dataRepository repository.MapDataRepository, stylePath string, width, height int, extent orb.Bound) MapBuilder {
	return &mapDocumentService{
		dataRepository: dataRepository,
		stylePath:      stylePath,
		width:          width,
		height:         height,
		extent:         extent,
	}
}

func (m *mapDocumentService) BuildMap(ctx context.Context) (*carto.Map, error) {
	cm := carto.NewMap(m.width, m.height, "")

	if err := carto.LoadMap(cm, m.stylePath, m.dataRepository.Registry(ctx)); err != nil {
		return nil, fmt.Errorf("failed to load map %s: %w", m.stylePath, err)
	}

	if err := cm.ZoomToBox(m.extent); err != nil {
		return nil, fmt.Errorf("failed to zoom map: %w", err)
	}

	return cm, nil
}
