// Package inline applies stylesheet rules directly to the style attributes
// of an HTML document, the way email clients expect them, and preserves
// what cannot be inlined in a single <style> element.
package inline

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"mailcss/css"
)

// DefaultMediaTypes is the set of media types whose conditional rules are
// considered applicable when no explicit configuration is given. Email
// clients render for screen.
var DefaultMediaTypes = []string{"screen"}

// Inliner rewrites HTML documents so that applicable style rules live in
// element style attributes. An Inliner is stateless apart from its
// configuration and safe for concurrent use.
type Inliner struct {
	log        *zap.Logger
	mediaTypes []string
}

// New creates an Inliner. A nil logger disables logging, empty mediaTypes
// fall back to DefaultMediaTypes.
func New(log *zap.Logger, mediaTypes []string) *Inliner {
	if log == nil {
		log = zap.NewNop()
	}
	if len(mediaTypes) == 0 {
		mediaTypes = DefaultMediaTypes
	}
	return &Inliner{log: log.Named("inliner"), mediaTypes: mediaTypes}
}

// Inline reads an HTML document from r, inlines its styles together with
// the optional extra stylesheets and writes the result to w. Non-fatal
// problems (unsupported selectors and the like) are logged and the
// affected rules are kept in the <style> element instead.
func (in *Inliner) Inline(r io.Reader, w io.Writer, extraCSS ...string) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("unable to parse document: %w", err)
	}
	if warn := in.Document(doc, extraCSS...); warn != nil {
		for _, e := range multierr.Errors(warn) {
			in.log.Warn("Rule left in <style> element", zap.Error(e))
		}
	}
	if err := html.Render(w, doc); err != nil {
		return fmt.Errorf("unable to render document: %w", err)
	}
	return nil
}

// Document inlines styles in a parsed document in place. The document's
// own <style> elements are consumed first, then the extra stylesheets in
// order, so later sheets win ties per the cascade. The returned error, if
// any, aggregates non-fatal selector problems via multierr; the document
// is fully processed regardless.
func (in *Inliner) Document(doc *html.Node, extraCSS ...string) error {
	sources := append(in.consumeStyleElements(doc), extraCSS...)
	sheet := css.NewParser(in.log).Parse([]byte(strings.Join(sources, "\n")), "document")

	rules := sheet.StyleRules(in.mediaTypes)

	var (
		warnings error
		applied  = make(map[*html.Node]*declSet)
		keep     []css.StyleRule // rules that stay in the <style> element
	)

	for order, rule := range rules {
		if rule.Media != "" {
			keep = append(keep, rule)
			continue
		}

		group, err := cascadia.ParseGroupWithPseudoElements(rule.Selectors)
		if err != nil {
			warnings = multierr.Append(warnings, fmt.Errorf("selector %q: %w", rule.Selectors, err))
			keep = append(keep, rule)
			continue
		}

		decls := css.ParseDeclarations(rule.Declarations)
		for _, sel := range group {
			if sel.PseudoElement() != "" {
				// Pseudo-elements have no style attribute to target.
				keep = append(keep, css.StyleRule{
					Selectors:    selectorText(sel, rule.Selectors),
					Declarations: rule.Declarations,
				})
				continue
			}
			for _, n := range cascadia.QueryAll(doc, sel) {
				set := applied[n]
				if set == nil {
					set = newDeclSet()
					applied[n] = set
				}
				for _, d := range decls {
					set.apply(d, rankSheet, sel.Specificity(), order)
				}
			}
		}
	}

	for n, set := range applied {
		// The element's own style attribute has the final say.
		for _, d := range css.ParseDeclarations(styleAttr(n)) {
			set.apply(d, rankAttribute, cascadia.Specificity{}, len(rules))
		}
		setStyleAttr(n, set.text())
	}

	in.refillStyleElement(doc, sheet.PreservedAtRules(), keep)

	in.log.Debug("Document processed",
		zap.Int("rules", len(rules)),
		zap.Int("elements", len(applied)),
		zap.Int("kept", len(keep)))
	return warnings
}

// consumeStyleElements removes every <style> element from the document and
// returns their contents in document order.
func (in *Inliner) consumeStyleElements(doc *html.Node) []string {
	var (
		sources []string
		styles  []*html.Node
		walk    func(*html.Node)
	)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Style {
			if t := attrValue(n, "type"); t == "" || strings.EqualFold(t, "text/css") {
				styles = append(styles, n)
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, n := range styles {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		sources = append(sources, sb.String())
		n.Parent.RemoveChild(n)
	}
	return sources
}

// refillStyleElement appends a single <style> element to <head> holding the
// preserved at-rules and every rule that could not be inlined. Conditional
// rules are regrouped under their enclosing @media text, consecutive rules
// of the same group share one block.
func (in *Inliner) refillStyleElement(doc *html.Node, preserved string, keep []css.StyleRule) {
	var sb strings.Builder
	sb.WriteString(preserved)

	for i := 0; i < len(keep); {
		if keep[i].Media == "" {
			sb.WriteString(keep[i].Selectors + "{" + keep[i].Declarations + "}")
			i++
			continue
		}
		j := i
		sb.WriteString(keep[i].Media + "{")
		for ; j < len(keep) && keep[j].Media == keep[i].Media; j++ {
			sb.WriteString(keep[j].Selectors + "{" + keep[j].Declarations + "}")
		}
		sb.WriteString("}")
		i = j
	}

	if sb.Len() == 0 {
		return
	}

	head := findElement(doc, atom.Head)
	if head == nil {
		// html.Parse always materializes <head>, but do not rely on it for
		// fragments assembled by hand.
		head = doc
	}
	style := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Style,
		Data:     "style",
		Attr:     []html.Attribute{{Key: "type", Val: "text/css"}},
	}
	style.AppendChild(&html.Node{Type: html.TextNode, Data: sb.String()})
	head.AppendChild(style)
}

// selectorText returns the raw text of a single parsed selector. cascadia
// does not expose the original text, so a single-selector group falls back
// to the full rule selector list.
func selectorText(sel cascadia.Sel, full string) string {
	if s := sel.String(); s != "" {
		return s
	}
	return full
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func styleAttr(n *html.Node) string {
	return attrValue(n, "style")
}

func setStyleAttr(n *html.Node, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == "style" {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: val})
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
