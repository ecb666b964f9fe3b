package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/application"
	"net/http"
)

// MapFromCodeRoute keeps the historic /map_from_python path.
func MapFromCodeRoute(r chi.Router, application application.Application) {
	r.Get("/map_from_python", func(w http.ResponseWriter, req *http.Request) {
		image, err := application.MapFromCode(req.Context())
		if err != nil {
			writeError(w, req, err)
			return
		}

		writeImage(w, req, image)
	})
}
