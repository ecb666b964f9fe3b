package application

import (
	"context"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/config"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/entities"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/service"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/infrastructure"
)

type Application interface {
	MapFromDocument(ctx context.Context) (entities.MapImage, error)
	MapFromCode(ctx context.Context) (entities.MapImage, error)
	RenderToFile(ctx context.Context, source entities.MapSource, path string) error
}

type application struct {
	documentService service.MapBuilder
	codeService     service.MapBuilder
	renderService   service.MapRenderService
}

func New(documentService, codeService service.MapBuilder, renderService service.MapRenderService) Application {
	return &application{
		documentService: documentService,
		codeService:     codeService,
		renderService:   renderService,
	}
}

func (app *application) MapFromDocument(ctx context.Context) (entities.MapImage, error) {
	return app.renderService.RenderMap(ctx, entities.MapSourceDocument, app.documentService)
}

func (app *application) MapFromCode(ctx context.Context) (entities.MapImage, error) {
	return app.renderService.RenderMap(ctx, entities.MapSourceCode, app.codeService)
}

func (app *application) RenderToFile(ctx context.Context, source entities.MapSource, path string) error {
	builder, err := app.builder(source)
	if err != nil {
		return err
	}
	return app.renderService.RenderMapToFile(ctx, builder, path)
}

func (app *application) builder(source entities.MapSource) (service.MapBuilder, error) {
	switch source {
	case entities.MapSourceDocument:
		return app.documentService, nil
	case entities.MapSourceCode:
		return app.codeService, nil
	default:
		return nil, fmt.Errorf("unknown map source %q", source)
	}
}

// NewFromConfig wires the file backed repository and services.
func NewFromConfig(cfg *config.Config) Application {
	repo := infrastructure.NewFileMapDataRepository(cfg.Map.DataDir)

	return New(
		service.NewMapDocumentService(repo, cfg.Map.StylePath, cfg.Map.Width, cfg.Map.Height, config.Bound(cfg.Map.DocumentExtent)),
		service.NewMapCodeService(repo, cfg.Map.Width, cfg.Map.Height, config.Bound(cfg.Map.CodeExtent)),
		service.NewMapRenderService(),
	)
}
