package infrastructure

import (
	"context"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/repository"
	"path/filepath"
)

const (
	DatasourceShape   = "shape"
	DatasourceGeoJSON = "geojson"
	DatasourceOsm     = "osm"
	DatasourceSqlite  = "sqlite"
)

var _ repository.MapDataRepository = (*FileMapDataRepository)(nil)

// FileMapDataRepository serves datasources backed by files on disk.
type FileMapDataRepository struct {
	dataDir string
}

func NewFileMapDataRepository(dataDir string) *FileMapDataRepository {
	return &FileMapDataRepository{
		dataDir: dataDir,
	}
}

// NewDatasourceRegistry registers every file backed datasource type. ctx
// bounds the reads done while a datasource is created.
func NewDatasourceRegistry(ctx context.Context) *carto.DatasourceRegistry {
	registry := carto.NewDatasourceRegistry()

	registry.Register(DatasourceShape, func(params carto.Parameters) (carto.Datasource, error) {
		return NewShapefileDatasource(params)
	})
	registry.Register(DatasourceGeoJSON, func(params carto.Parameters) (carto.Datasource, error) {
		return NewGeoJSONDatasource(params)
	})
	registry.Register(DatasourceOsm, func(params carto.Parameters) (carto.Datasource, error) {
		return NewOsmDatasource(ctx, params)
	})
	registry.Register(DatasourceSqlite, func(params carto.Parameters) (carto.Datasource, error) {
		return NewSqliteDatasource(ctx, params)
	})

	return registry
}

func (r *FileMapDataRepository) Registry(ctx context.Context) *carto.DatasourceRegistry {
	return NewDatasourceRegistry(ctx)
}

func (r *FileMapDataRepository) Open(ctx context.Context, params carto.Parameters) (carto.Datasource, error) {
	resolved := make(carto.Parameters, len(params))
	for k, v := range params {
		resolved[k] = v
	}
	if file := resolved["file"]; file != "" && !filepath.IsAbs(file) {
		resolved["file"] = filepath.Join(r.dataDir, file)
	}

	return r.Registry(ctx).Create(resolved)
}
