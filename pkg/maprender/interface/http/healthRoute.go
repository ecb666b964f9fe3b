package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

func HealthRoute(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
}

func MetricsRoute(r chi.Router) {
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}
