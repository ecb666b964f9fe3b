package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/carto"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/logging"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/sqlitedriver"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"os"
	"regexp"
)

var _ carto.Datasource = (*SqliteDatasource)(nil)

var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SqliteDatasource reads features from a table whose geometry column holds
// WKB. Every other column becomes an attribute.
type SqliteDatasource struct {
	path          string
	table         string
	geometryField string
	keyField      string
}

func NewSqliteDatasource(ctx context.Context, params carto.Parameters) (*SqliteDatasource, error) {
	ds := &SqliteDatasource{
		path:          params.String("file", ""),
		table:         params.String("table", ""),
		geometryField: params.String("geometry_field", "geometry"),
		keyField:      params.String("key_field", ""),
	}

	if ds.path == "" {
		return nil, fmt.Errorf("sqlite datasource requires a file parameter")
	}
	for name, ident := range map[string]string{"table": ds.table, "geometry_field": ds.geometryField} {
		if !identifierRegex.MatchString(ident) {
			return nil, fmt.Errorf("invalid sqlite datasource parameter %s: %q", name, ident)
		}
	}
	if ds.keyField != "" && !identifierRegex.MatchString(ds.keyField) {
		return nil, fmt.Errorf("invalid sqlite datasource parameter key_field: %q", ds.keyField)
	}

	if _, err := os.Stat(ds.path); err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	conn, err := ds.open()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var name string
	err = conn.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?", ds.table,
	).Scan(&name)
	if err != nil {
		return nil, fmt.Errorf("failed to find table %s: %w", ds.table, err)
	}

	logging.Ctx(ctx).Debug().
		Str("file", ds.path).
		Str("table", ds.table).
		Bool("spatialite", sqlitedriver.SpatialiteLoaded()).
		Msg("sqlite datasource opened")

	return ds, nil
}

func (s *SqliteDatasource) open() (*sql.DB, error) {
	conn, err := sql.Open(sqlitedriver.DriverName, "file:"+s.path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database connection: %w", err)
	}
	return conn, nil
}

func (s *SqliteDatasource) Features(ctx context.Context, query carto.Query) ([]*carto.Feature, error) {
	features, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return carto.FilterByBound(features, query), nil
}

func (s *SqliteDatasource) Envelope(ctx context.Context) (orb.Bound, error) {
	features, err := s.readAll(ctx)
	if err != nil {
		return orb.Bound{}, err
	}
	return carto.EnvelopeOf(features), nil
}

func (s *SqliteDatasource) readAll(ctx context.Context) ([]*carto.Feature, error) {
	conn, err := s.open()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM "%s"`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query table %s: %w", s.table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", s.table, err)
	}

	var features []*carto.Feature
	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	var row int64
	for rows.Next() {
		row++
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", s.table, err)
		}

		id := row
		var geometry orb.Geometry
		attrs := make(map[string]any, len(columns))

		for i, column := range columns {
			switch column {
			case s.geometryField:
				blob, ok := values[i].([]byte)
				if !ok || len(blob) == 0 {
					continue
				}
				geometry, err = wkb.Unmarshal(blob)
				if err != nil {
					return nil, fmt.Errorf("failed to decode geometry of %s row %d: %w", s.table, row, err)
				}
			case s.keyField:
				if v, ok := values[i].(int64); ok {
					id = v
				}
				attrs[column] = values[i]
			default:
				attrs[column] = values[i]
			}
		}

		if geometry == nil {
			continue
		}
		features = append(features, carto.NewFeature(id, geometry, attrs))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", s.table, err)
	}

	return features, nil
}
