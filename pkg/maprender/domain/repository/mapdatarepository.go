package repository

import (
	"context"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
)

type MapDataRepository interface {
	// Registry resolves the datasources of style documents. Datasources
	// created through it read their files within ctx.
	Registry(ctx context.Context) *carto.DatasourceRegistry
	// Open creates a datasource. A relative "file" parameter resolves
	// against the repository's data directory.
	Open(ctx context.Context, params carto.Parameters) (carto.Datasource, error)
}
