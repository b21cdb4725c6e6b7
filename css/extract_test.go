package css_test

import (
	"reflect"
	"testing"

	"go.uber.org/zap"

	"mailcss/css"
)

func parse(t *testing.T, input string) *css.Stylesheet {
	t.Helper()
	return css.NewParser(zap.NewNop()).Parse([]byte(input))
}

func TestStyleRules_TopLevelBlock(t *testing.T) {
	sheet := parse(t, `h1, h2 { color: red; height: 4px; }`)

	rules := sheet.StyleRules([]string{"screen"})
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	want := css.StyleRule{
		Media:        "",
		Selectors:    "h1,h2",
		Declarations: "color: red;height: 4px;",
	}
	if rules[0] != want {
		t.Errorf("expected %+v, got %+v", want, rules[0])
	}
}

func TestStyleRules_MediaTypeMatching(t *testing.T) {
	input := `@media screen and (max-width: 480px) { p { margin: 0; } }`

	tests := []struct {
		name       string
		mediaTypes []string
		want       int
	}{
		{"matching type", []string{"screen"}, 1},
		{"non-matching type", []string{"print"}, 0},
		{"one of several", []string{"print", "screen"}, 1},
		{"case-insensitive", []string{"SCREEN"}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sheet := parse(t, input)
			rules := sheet.StyleRules(tc.mediaTypes)
			if len(rules) != tc.want {
				t.Fatalf("expected %d rules, got %d", tc.want, len(rules))
			}
			if tc.want == 1 && rules[0].Media != "@media screen and (max-width: 480px)" {
				t.Errorf("unexpected enclosing context: %q", rules[0].Media)
			}
		})
	}
}

func TestStyleRules_OnlyPrefix(t *testing.T) {
	sheet := parse(t, `@media only screen { p { margin: 0; } }`)

	rules := sheet.StyleRules([]string{"screen"})
	if len(rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(rules))
	}
	if rules[0].Media != "@media only screen" {
		t.Errorf("unexpected enclosing context: %q", rules[0].Media)
	}
}

func TestStyleRules_FeatureOnlyQuery(t *testing.T) {
	input := `@media (min-width: 100px) { p { margin: 0; } }`

	// A query starting directly with a feature condition applies to any
	// media type, even with an empty allowed list.
	for _, mediaTypes := range [][]string{nil, {}, {"print"}} {
		sheet := parse(t, input)
		rules := sheet.StyleRules(mediaTypes)
		if len(rules) != 1 {
			t.Fatalf("mediaTypes=%v: expected 1 rule, got %d", mediaTypes, len(rules))
		}
		if rules[0].Media != "@media (min-width: 100px)" {
			t.Errorf("unexpected enclosing context: %q", rules[0].Media)
		}
	}
}

func TestStyleRules_OrderAndCount(t *testing.T) {
	input := `
@charset "utf-8";
@import "a.css";
body { margin: 0; }
@media screen { p { color: red; } em { color: blue; } }
@font-face { font-family: "A"; src: url(a.woff); }
@media print { p { color: black; } }
h1 { font-size: 2em; }
`
	sheet := parse(t, input)

	rules := sheet.StyleRules([]string{"screen"})
	var got []string
	for _, r := range rules {
		got = append(got, r.Media+"|"+r.Selectors)
	}
	want := []string{
		"|body",
		"@media screen|p",
		"@media screen|em",
		"|h1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestStyleRules_EmptySheet(t *testing.T) {
	sheet := parse(t, "")

	if rules := sheet.StyleRules([]string{"screen"}); len(rules) != 0 {
		t.Errorf("expected no rules, got %d", len(rules))
	}
}
