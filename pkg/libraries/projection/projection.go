// Package projection reprojects coordinates between coordinate reference
// systems with PROJ.
package projection

import (
	"strings"
)

const (
	WGS84String       = "+proj=longlat +ellps=WGS84 +datum=WGS84 +no_defs"
	WebMercatorString = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +wktext +no_defs"
)

// Normalize turns a PROJ.4 definition or an EPSG alias into a CRS
// definition PROJ accepts. An empty definition is WGS84.
func Normalize(def string) string {
	def = strings.Join(strings.Fields(def), " ")
	if def == "" {
		def = WGS84String
	}

	lower := strings.ToLower(def)
	if code, ok := strings.CutPrefix(lower, "+init="); ok && !strings.Contains(code, " ") {
		return strings.ToUpper(code)
	}
	if strings.HasPrefix(lower, "epsg:") {
		return strings.ToUpper(def)
	}

	if strings.HasPrefix(def, "+") && !strings.Contains(def, "+type=crs") {
		def += " +type=crs"
	}
	return def
}

// IsGeographic reports whether def describes longitude and latitude in
// degrees.
func IsGeographic(def string) bool {
	def = Normalize(def)
	if def == "EPSG:4326" {
		return true
	}

	for _, token := range strings.Fields(def) {
		switch strings.TrimPrefix(token, "+") {
		case "proj=longlat", "proj=latlong", "proj=lonlat", "proj=latlon":
			return true
		}
	}
	return false
}
