package entities_test

import (
	"github.com/paulkoehlerdev/MapRender/pkg/maprender/domain/entities"
	"testing"
)

func TestParseMapSource(t *testing.T) {
	tests := map[string]entities.MapSource{
		"xml":      entities.MapSourceDocument,
		"Document": entities.MapSourceDocument,
		"code":     entities.MapSourceCode,
		" python ": entities.MapSourceCode,
	}

	for in, want := range tests {
		got, err := entities.ParseMapSource(in)
		if err != nil {
			t.Fatalf("ParseMapSource(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMapSource(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := entities.ParseMapSource("tiles"); err == nil {
		t.Error("expected an error for an unknown source")
	}
}
