package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/application"
	"net/http"
)

func MapFromXmlRoute(r chi.Router, application application.Application) {
	r.Get("/map_from_xml", func(w http.ResponseWriter, req *http.Request) {
		image, err := application.MapFromDocument(req.Context())
		if err != nil {
			writeError(w, req, err)
			return
		}

		writeImage(w, req, image)
	})
}
