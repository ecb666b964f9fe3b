package expression_test

import (
	"github.com/paulkoehlerdev/MapRender/pkg/libraries/expression"
	"testing"
)

func TestExpression_Match(t *testing.T) {
	tests := []struct {
		source string
		attrs  expression.Attributes
		want   bool
	}{
		{"[NAME_EN] = 'Ontario'", expression.Attributes{"NAME_EN": "Ontario"}, true},
		{"[NAME_EN] = 'Ontario'", expression.Attributes{"NAME_EN": "Quebec"}, false},
		{"[HYC] = 8", expression.Attributes{"HYC": 8.0}, true},
		{"[HYC] = 8", expression.Attributes{"HYC": 9.0}, false},
		{"([CLASS] = 3) or ([CLASS] = 4)", expression.Attributes{"CLASS": 4.0}, true},
		{"([CLASS] = 3) or ([CLASS] = 4)", expression.Attributes{"CLASS": 2.0}, false},
		{"[CLASS] >= 2 and [CLASS] <= 3", expression.Attributes{"CLASS": 3.0}, true},
		{"[CLASS] <> 1", expression.Attributes{"CLASS": 1.0}, false},
		{"[CLASS] != 1", expression.Attributes{"CLASS": 2.0}, true},
		{"not ([CLASS] = 1)", expression.Attributes{"CLASS": 2.0}, true},
		{"[NAME_EN] = 'Ontario'", expression.Attributes{}, false},
		{"[NAME] = 'Lake of the Woods or Rainy'", expression.Attributes{"NAME": "Lake of the Woods or Rainy"}, true},
		{"[CLASS] = 1", expression.Attributes{"CLASS": "not a number"}, false},
	}

	for _, tt := range tests {
		expr, err := expression.Compile(tt.source)
		if err != nil {
			t.Fatalf("%s: %v", tt.source, err)
		}

		if got := expr.Match(tt.attrs); got != tt.want {
			t.Errorf("%s with %v = %v, want %v", tt.source, tt.attrs, got, tt.want)
		}
	}
}

func TestExpression_Text(t *testing.T) {
	expr := expression.MustCompile("[GEONAME]")

	if got := expr.Text(expression.Attributes{"GEONAME": "Montréal"}); got != "Montréal" {
		t.Fatalf("unexpected label %q", got)
	}

	if got := expr.Text(expression.Attributes{"GEONAME": 12.0}); got != "12" {
		t.Fatalf("unexpected numeric label %q", got)
	}

	if got := expr.Text(expression.Attributes{}); got != "" {
		t.Fatalf("missing attribute should produce an empty label, got %q", got)
	}
}

func TestCompile_Invalid(t *testing.T) {
	for _, source := range []string{"[NAME_EN = 'x'", "[NAME_EN] = 'x", "([CLASS] = 3"} {
		if _, err := expression.Compile(source); err == nil {
			t.Errorf("expected %q to fail", source)
		}
	}
}
