package main

import (
	"context"
	"flag"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/logging"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/application"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/config"
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/entities"
	"os"
	"os/signal"
)

// maprender renders one map to a PNG file without starting a server.
func main() {
	configPath := flag.String("config", "", "optional YAML configuration file")
	sourceName := flag.String("source", "xml", "map to render: xml or code")
	out := flag.String("out", "map.png", "output PNG path")
	flag.Parse()

	logging.Init(logging.Config{Format: "console"})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}

	source, err := entities.ParseMapSource(*sourceName)
	if err != nil {
		logging.Error().Err(err).Msg("invalid -source")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := application.NewFromConfig(cfg).RenderToFile(ctx, source, *out); err != nil {
		logging.Error().Err(err).Str("source", string(source)).Msg("failed to render map")
		os.Exit(1)
	}

	logging.Info().Str("source", string(source)).Str("out", *out).Msg("map written")
}
