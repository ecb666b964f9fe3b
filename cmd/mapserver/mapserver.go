package main

import (
	"context"
	"flag"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/logging"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/application"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/config"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/interface/http"
	"net"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "", "optional YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		logging.Error().Err(err).Str("addr", cfg.Addr()).Msg("failed to listen")
		os.Exit(1)
	}

	err = http.ServeApplication(ctx, listener, application.NewFromConfig(cfg))
	if err != nil {
		logging.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
