package inline_test

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"

	"mailcss/inline"
)

func render(t *testing.T, doc string, mediaTypes []string, extra ...string) string {
	t.Helper()

	var out bytes.Buffer
	in := inline.New(zap.NewNop(), mediaTypes)
	if err := in.Inline(strings.NewReader(doc), &out, extra...); err != nil {
		t.Fatalf("inlining failed: %v", err)
	}
	return out.String()
}

func TestInline_Basic(t *testing.T) {
	doc := `<html><head><style>p { color: red; }</style></head><body><p>hi</p></body></html>`

	got := render(t, doc, nil)
	if !strings.Contains(got, `<p style="color: red;">`) {
		t.Errorf("expected inlined style, got %s", got)
	}
	if strings.Contains(got, "<style") {
		t.Errorf("consumed <style> element must not survive, got %s", got)
	}
}

func TestInline_SpecificityWins(t *testing.T) {
	doc := `<html><head><style>
p.note { color: blue; }
p { color: red; }
</style></head><body><p class="note">hi</p></body></html>`

	got := render(t, doc, nil)
	if !strings.Contains(got, `style="color: blue;"`) {
		t.Errorf("expected class selector to win, got %s", got)
	}
}

func TestInline_LaterRuleWinsOnTie(t *testing.T) {
	doc := `<html><head><style>
p { color: red; }
p { color: green; }
</style></head><body><p>hi</p></body></html>`

	got := render(t, doc, nil)
	if !strings.Contains(got, `style="color: green;"`) {
		t.Errorf("expected later rule to win, got %s", got)
	}
}

func TestInline_StyleAttributePrecedence(t *testing.T) {
	doc := `<html><head><style>p { color: red; }</style></head><body><p style="color: black;">hi</p></body></html>`

	got := render(t, doc, nil)
	if !strings.Contains(got, `style="color: black;"`) {
		t.Errorf("expected the element's own style to win, got %s", got)
	}

	doc = `<html><head><style>p { color: red !important; }</style></head><body><p style="color: black;">hi</p></body></html>`
	got = render(t, doc, nil)
	if !strings.Contains(got, `style="color: red !important;"`) {
		t.Errorf("expected !important sheet rule to win, got %s", got)
	}
}

func TestInline_ExtraStylesheetAppliedAfterDocument(t *testing.T) {
	doc := `<html><head><style>p { color: red; }</style></head><body><p>hi</p></body></html>`

	got := render(t, doc, nil, `p { color: purple; }`)
	if !strings.Contains(got, `style="color: purple;"`) {
		t.Errorf("expected extra stylesheet to win the tie, got %s", got)
	}
}

func TestInline_PreservedStyleElement(t *testing.T) {
	doc := `<html><head><style>
@import "base.css";
@media screen and (max-width: 480px) { p { margin: 0; } }
p { color: red; }
</style></head><body><p>hi</p></body></html>`

	got := render(t, doc, []string{"screen"})
	if !strings.Contains(got, `<p style="color: red;">`) {
		t.Errorf("expected plain rule to be inlined, got %s", got)
	}
	want := `@import "base.css";@media screen and (max-width: 480px){p{margin: 0;}}`
	if !strings.Contains(got, want) {
		t.Errorf("expected preserved styles %q, got %s", want, got)
	}
}

func TestInline_NonMatchingMediaDropped(t *testing.T) {
	doc := `<html><head><style>
@media print { p { margin: 0; } }
</style></head><body><p>hi</p></body></html>`

	got := render(t, doc, []string{"screen"})
	if strings.Contains(got, "@media") || strings.Contains(got, "<style") {
		t.Errorf("expected non-applicable media group to be dropped, got %s", got)
	}
}

func TestInline_PseudoElementKept(t *testing.T) {
	doc := `<html><head><style>p::before { content: "x"; }</style></head><body><p>hi</p></body></html>`

	got := render(t, doc, nil)
	if !strings.Contains(got, `p::before{content: "x";}`) {
		t.Errorf("expected pseudo-element rule in <style>, got %s", got)
	}
	if strings.Contains(got, `<p style=`) {
		t.Errorf("pseudo-element rule must not be inlined, got %s", got)
	}
}

func TestInline_ValueSpacingPreserved(t *testing.T) {
	doc := `<html><head><style>p { margin: 0 10px; }</style></head><body><p style="padding: 1px 2px">hi</p></body></html>`

	got := render(t, doc, nil)
	if !strings.Contains(got, "margin: 0 10px;") {
		t.Errorf("expected sheet value spacing kept, got %s", got)
	}
	if !strings.Contains(got, "padding: 1px 2px;") {
		t.Errorf("expected attribute value spacing kept, got %s", got)
	}
}

func TestInline_NoStyles(t *testing.T) {
	doc := `<html><head></head><body><p>hi</p></body></html>`

	got := render(t, doc, nil)
	if strings.Contains(got, "<style") || strings.Contains(got, "style=") {
		t.Errorf("expected document to pass through untouched, got %s", got)
	}
}
