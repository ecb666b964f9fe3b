package service

import (
	"context"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/logging"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/entities"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

const ImageFormat = "png"

type MapRenderService interface {
	RenderMap(ctx context.Context, source entities.MapSource, builder MapBuilder) (entities.MapImage, error)
	RenderMapToFile(ctx context.Context, builder MapBuilder, path string) error
}

type mapRenderService struct{}

func NewMapRenderService() MapRenderService {
	return &mapRenderService{}
}

func (m *mapRenderService) RenderMap(ctx context.Context, source entities.MapSource, builder MapBuilder) (entities.MapImage, error) {
	timer := prometheus.NewTimer(metrics.RenderDuration.WithLabelValues(string(source)))
	defer timer.ObserveDuration()

	cm, err := builder.BuildMap(ctx)
	if err != nil {
		metrics.RenderErrors.WithLabelValues(string(source), "build").Inc()
		return entities.MapImage{}, err
	}

	img, err := carto.Render(ctx, cm)
	if err != nil {
		metrics.RenderErrors.WithLabelValues(string(source), "render").Inc()
		return entities.MapImage{}, fmt.Errorf("failed to render map: %w", err)
	}

	data, err := img.Bytes(ImageFormat)
	if err != nil {
		metrics.RenderErrors.WithLabelValues(string(source), "encode").Inc()
		return entities.MapImage{}, fmt.Errorf("failed to encode map: %w", err)
	}
	metrics.RenderedBytes.WithLabelValues(string(source)).Add(float64(len(data)))

	logging.Ctx(ctx).Debug().
		Str("source", string(source)).
		Int("layers", len(cm.Layers)).
		Int("bytes", len(data)).
		Msg("map rendered")

	return entities.MapImage{
		Source:      source,
		ContentType: carto.ContentType(ImageFormat),
		Width:       img.Width(),
		Height:      img.Height(),
		Data:        data,
	}, nil
}

func (m *mapRenderService) RenderMapToFile(ctx context.Context, builder MapBuilder, path string) error {
	cm, err := builder.BuildMap(ctx)
	if err != nil {
		return err
	}

	return carto.RenderToFile(ctx, cm, path, ImageFormat)
}
