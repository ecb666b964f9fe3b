package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/logging"
	"github.com/rs/zerolog"
	"strings"
	"testing"
)

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.Config{}) })

	logging.Debug().Msg("hidden")
	logging.Info().Str("route", "/map_from_xml").Msg("rendered")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["message"] != "rendered" || entry["route"] != "/map_from_xml" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.Config{}) })

	logging.Ctx(context.Background()).Info().Msg("global")
	if !strings.Contains(buf.String(), "global") {
		t.Fatalf("global logger not used: %q", buf.String())
	}

	buf.Reset()
	ctx := logging.WithContext(context.Background(), logging.With().Str("request_id", "abc").Logger())
	logging.Ctx(ctx).Info().Msg("scoped")
	if !strings.Contains(buf.String(), `"request_id":"abc"`) {
		t.Fatalf("context logger not used: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"unknown": zerolog.InfoLevel,
		"off":     zerolog.Disabled,
	}

	for in, want := range tests {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
