package sqlitedriver

import (
	"database/sql"
	"github.com/mattn/go-sqlite3"
	"sync/atomic"
)

// DriverName is registered with database/sql. Connections try to load
// SpatiaLite, but fall back to plain SQLite when the extension is missing
// since geometry columns are read as WKB blobs either way.
const DriverName = "sqlite3_maprender"

type entrypoint struct {
	lib  string
	proc string
}

var spatialliteLibNames = []entrypoint{
	{"mod_spatialite", "sqlite3_modspatialite_init"},
	{"mod_spatialite.dylib", "sqlite3_modspatialite_init"},
	{"libspatialite.so", "sqlite3_modspatialite_init"},
	{"libspatialite.so.5", "spatialite_init_ex"},
	{"libspatialite.so", "spatialite_init_ex"},
}

var spatialite atomic.Bool

// SpatialiteLoaded reports whether the last opened connection loaded SpatiaLite.
func SpatialiteLoaded() bool {
	return spatialite.Load()
}

func init() {
	sql.Register(DriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, v := range spatialliteLibNames {
				if err := conn.LoadExtension(v.lib, v.proc); err == nil {
					spatialite.Store(true)
					return nil
				}
			}
			spatialite.Store(false)
			return nil
		},
	})
}
