package config

import (
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/paulmach/orb"
	"net"
	"os"
	"strconv"
	"strings"
)

const (
	EnvPrefix = "MAPRENDER_"
	// PathEnvVar names an optional YAML file layered over the defaults.
	PathEnvVar = EnvPrefix + "CONFIG"
)

type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Map     MapConfig     `koanf:"map"`
	Logging LoggingConfig `koanf:"logging"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
}

type MapConfig struct {
	Width     int    `koanf:"width" validate:"min=1,max=16384"`
	Height    int    `koanf:"height" validate:"min=1,max=16384"`
	StylePath string `koanf:"style_path" validate:"required"`
	DataDir   string `koanf:"data_dir" validate:"required"`
	// DocumentExtent is the viewport of /map_from_xml as minx, miny, maxx, maxy.
	DocumentExtent []float64 `koanf:"document_extent" validate:"len=4"`
	// CodeExtent is the viewport of /map_from_python.
	CodeExtent []float64 `koanf:"code_extent" validate:"len=4"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Map: MapConfig{
			Width:          800,
			Height:         600,
			StylePath:      "/app/map.xml",
			DataDir:        "/data",
			DocumentExtent: []float64{1515091, -202540, 1720540, -102263},
			CodeExtent:     []float64{-8024477.28459, 5445190.38849, -7381388.20071, 5662941.44855},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// Bound converts a four value extent into a bound.
func Bound(extent []float64) orb.Bound {
	return orb.Bound{
		Min: orb.Point{extent[0], extent[1]},
		Max: orb.Point{extent[2], extent[3]},
	}
}

// Load layers the defaults, an optional YAML file and MAPRENDER_ environment
// variables, in that order. An empty path falls back to $MAPRENDER_CONFIG.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	for _, key := range []string{"map.document_extent", "map.code_extent"} {
		if err := splitExtent(k, key); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps MAPRENDER_MAP_STYLE_PATH to map.style_path.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// splitExtent turns a "minx,miny,maxx,maxy" string from the environment
// into a float slice.
func splitExtent(k *koanf.Koanf, key string) error {
	raw, ok := k.Get(key).(string)
	if !ok {
		return nil
	}

	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", key, err)
		}
		values = append(values, v)
	}

	if err := k.Set(key, values); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	for name, extent := range map[string][]float64{
		"map.document_extent": c.Map.DocumentExtent,
		"map.code_extent":     c.Map.CodeExtent,
	} {
		if extent[0] >= extent[2] || extent[1] >= extent[3] {
			return fmt.Errorf("%s must be minx, miny, maxx, maxy with min < max", name)
		}
	}

	return nil
}
