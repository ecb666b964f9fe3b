package http

import (
	"context"
	"errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/logging"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/application"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/entities"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/metrics"
	"net"
	"net/http"
	"strconv"
	"time"
)

const shutdownTimeout = 10 * time.Second

func NewRouter(app application.Application) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	HealthRoute(r)
	MetricsRoute(r)
	MapFromXmlRoute(r, app)
	MapFromCodeRoute(r, app)

	return r
}

// ServeApplication serves app on l until ctx is cancelled, then drains
// in-flight requests.
func ServeApplication(ctx context.Context, l net.Listener, app application.Application) error {
	server := &http.Server{
		Handler:           NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.Serve(l)
	}()

	logging.Info().Str("addr", l.Addr().String()).Msg("serving map renderer")

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		logger := logging.With().Str("request_id", middleware.GetReqID(req.Context())).Logger()
		req = req.WithContext(logging.WithContext(req.Context(), logger))

		defer func() {
			route := chi.RouteContext(req.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			metrics.HTTPRequests.WithLabelValues(req.Method, route, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(req.Method, route).Observe(duration.Seconds())

			logger.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", duration).
				Msg("request")
		}()

		next.ServeHTTP(ww, req)
	})
}

func writeImage(w http.ResponseWriter, req *http.Request, image entities.MapImage) {
	w.Header().Set("Content-Type", image.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(image.Data)))

	if _, err := w.Write(image.Data); err != nil {
		logging.Ctx(req.Context()).Warn().Err(err).Msg("failed to write map image")
	}
}

func writeError(w http.ResponseWriter, req *http.Request, err error) {
	logging.Ctx(req.Context()).Error().Err(err).Str("path", req.URL.Path).Msg("failed to render map")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
