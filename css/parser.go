package css

import (
	"errors"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured trees.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// cursor pairs the tokenizer with its source so every grammar event can be
// mapped back to the exact byte range it consumed. The tokenizer's own
// token buffer collapses whitespace around punctuation, so raw query and
// value text has to come from the source itself.
type cursor struct {
	p   *css.Parser
	src []byte
	off int
}

func newCursor(src []byte, inline bool) *cursor {
	return &cursor{p: css.NewParser(parse.NewInputBytes(src), inline), src: src}
}

// next advances to the next grammar event and returns it together with the
// source text consumed by it. Synthetic events (like the end of a block
// already consumed by the previous event) have an empty span.
func (c *cursor) next() (css.GrammarType, []byte, string) {
	gt, _, data := c.p.Next()
	end := c.p.Offset()
	if end > len(c.src) {
		end = len(c.src)
	}
	var span string
	if c.off < end {
		span = string(c.src[c.off:end])
		c.off = end
	}
	return gt, data, span
}

// Parse parses CSS text into a Stylesheet. Parsing is total: malformed or
// unsupported constructs are skipped (possibly with a warning), never
// reported as an error.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Items: make([]StylesheetItem, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	c := newCursor(data, false)

	// Selectors accumulated from QualifiedRuleGrammar events, the tokenizer
	// emits one per comma-separated selector before the final
	// BeginRulesetGrammar.
	var pending []string

	for {
		gt, data, span := c.next()

		switch gt {
		case css.ErrorGrammar:
			// End of input or error
			if err := c.p.Err(); err != nil && !errors.Is(err, io.EOF) {
				p.log.Debug("CSS parse error", zap.Error(err))
			}
			return sheet

		case css.QualifiedRuleGrammar:
			pending = append(pending, splitSelectors(data, c.p.Values())...)

		case css.BeginRulesetGrammar:
			sels := append(pending, splitSelectors(data, c.p.Values())...)
			pending = nil
			block := DeclarationBlock{
				Selectors: sels,
				Decls:     p.parseDeclarations(c, sheet),
			}
			sheet.Items = append(sheet.Items, StylesheetItem{Block: &block})

		case css.BeginAtRuleGrammar:
			name := strings.ToLower(strings.TrimPrefix(string(data), "@"))
			prelude := atPrelude(span, data)
			if name == "media" {
				mb := &MediaBlock{
					Query:  prelude,
					Blocks: p.parseMediaBlocks(c, sheet),
				}
				p.log.Debug("Parsed @media block", zap.String("query", mb.Query), zap.Int("rules", len(mb.Blocks)))
				sheet.Items = append(sheet.Items, StylesheetItem{Media: mb})
				continue
			}
			ar := &AtRule{Name: name, Prelude: prelude, HasBody: true}
			p.parseAtRuleBody(c, ar, sheet)
			p.log.Debug("Parsed @-rule block", zap.String("rule", "@"+name))
			sheet.Items = append(sheet.Items, StylesheetItem{AtRule: ar})

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g. @import, @charset, @namespace)
			name := strings.ToLower(strings.TrimPrefix(string(data), "@"))
			switch name {
			case "charset":
				sheet.Items = append(sheet.Items, StylesheetItem{Charset: &CharsetRule{Value: atPrelude(span, data)}})
			case "import":
				raw := atPrelude(span, data)
				sheet.Items = append(sheet.Items, StylesheetItem{Import: &ImportRule{Raw: raw}})
				p.log.Debug("Parsed @import", zap.String("argument", raw))
			default:
				sheet.Items = append(sheet.Items, StylesheetItem{AtRule: &AtRule{Name: name, Prelude: atPrelude(span, data)}})
			}

		case css.CustomPropertyGrammar:
			// Top-level custom property is not valid CSS
			sheet.Warnings = append(sheet.Warnings, "custom property outside of a rule: "+string(data))

		case css.CommentGrammar, css.TokenGrammar:
			// Comments and stray tokens carry no structure
		}
	}
}

// ParseDeclarations parses a bare declaration run the way it appears in
// style attributes ("a: b; c: d"). Values keep their source text verbatim.
func ParseDeclarations(text string) []Declaration {
	if text == "" {
		return nil
	}

	c := newCursor([]byte(text), true)

	var decls []Declaration
	for {
		gt, data, span := c.next()
		switch gt {
		case css.ErrorGrammar:
			return decls
		case css.DeclarationGrammar:
			decls = append(decls, Declaration{
				Property: strings.ToLower(string(data)),
				Value:    declValue(span),
			})
		}
	}
}

// atPrelude cuts the raw prelude out of the source span of an at-rule
// event: everything between the at-keyword and the terminating "{" or ";",
// exactly as written.
func atPrelude(span string, keyword []byte) string {
	s := strings.TrimSpace(span)
	if n := len(s) - 1; n >= 0 && (s[n] == '{' || s[n] == ';' || s[n] == '}') {
		s = s[:n]
	}
	if len(keyword) <= len(s) {
		s = s[len(keyword):]
	}
	return strings.TrimSpace(s)
}

// declValue cuts the raw value text out of a declaration event span:
// everything between the property separator ":" and the terminating ";"
// (or the "}" that closed the whole block), exactly as written.
func declValue(span string) string {
	s := strings.TrimSpace(span)
	for strings.HasPrefix(s, "/*") {
		// leading comment between declarations, consumed with this one
		i := strings.Index(s, "*/")
		if i < 0 {
			break
		}
		s = strings.TrimSpace(s[i+2:])
	}
	if n := len(s) - 1; n >= 0 && (s[n] == ';' || s[n] == '}') {
		s = s[:n]
	}
	if _, v, ok := strings.Cut(s, ":"); ok {
		s = v
	}
	return strings.TrimSpace(s)
}

// splitSelectors extracts individual selector strings from token data.
func splitSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)
	for _, v := range values {
		sb.Write(v.Data)
	}

	var selectors []string
	for _, s := range strings.Split(sb.String(), ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			selectors = append(selectors, s)
		}
	}
	return selectors
}

// parseDeclarations collects property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(c *cursor, sheet *Stylesheet) []Declaration {
	var decls []Declaration

	for {
		gt, data, span := c.next()

		switch gt {
		case css.ErrorGrammar, css.EndRulesetGrammar:
			return decls

		case css.DeclarationGrammar:
			decls = append(decls, Declaration{
				Property: strings.ToLower(string(data)),
				Value:    declValue(span),
			})

		case css.CustomPropertyGrammar:
			sheet.Warnings = append(sheet.Warnings, "custom property skipped: "+string(data))
		}
	}
}

// parseMediaBlocks collects declaration blocks nested in a @media group
// until the matching EndAtRuleGrammar. Anything else nested in the group
// (in particular nested at-rules) is skipped.
func (p *Parser) parseMediaBlocks(c *cursor, sheet *Stylesheet) []DeclarationBlock {
	var blocks []DeclarationBlock
	var pending []string

	for {
		gt, data, _ := c.next()

		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return blocks

		case css.QualifiedRuleGrammar:
			pending = append(pending, splitSelectors(data, c.p.Values())...)

		case css.BeginRulesetGrammar:
			sels := append(pending, splitSelectors(data, c.p.Values())...)
			pending = nil
			blocks = append(blocks, DeclarationBlock{
				Selectors: sels,
				Decls:     p.parseDeclarations(c, sheet),
			})

		case css.BeginAtRuleGrammar:
			sheet.Warnings = append(sheet.Warnings, "nested at-rule inside @media skipped: "+string(data))
			p.skipAtRuleBlock(c)
		}
	}
}

// parseAtRuleBody fills in the body of a generic block at-rule: direct
// declarations (@font-face, @page), nested style rules (@supports and
// other grouping rules) and, for rules the tokenizer has no structure for,
// the verbatim body text. Nested at-rules are skipped.
func (p *Parser) parseAtRuleBody(c *cursor, ar *AtRule, sheet *Stylesheet) {
	var pending []string
	var raw strings.Builder

	for {
		gt, data, span := c.next()

		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			ar.Raw = strings.TrimSpace(raw.String())
			return

		case css.DeclarationGrammar:
			ar.Decls = append(ar.Decls, Declaration{
				Property: strings.ToLower(string(data)),
				Value:    declValue(span),
			})

		case css.QualifiedRuleGrammar:
			pending = append(pending, splitSelectors(data, c.p.Values())...)

		case css.BeginRulesetGrammar:
			sels := append(pending, splitSelectors(data, c.p.Values())...)
			pending = nil
			ar.Blocks = append(ar.Blocks, DeclarationBlock{
				Selectors: sels,
				Decls:     p.parseDeclarations(c, sheet),
			})

		case css.BeginAtRuleGrammar:
			sheet.Warnings = append(sheet.Warnings, "nested at-rule inside @"+ar.Name+" skipped: "+string(data))
			p.skipAtRuleBlock(c)

		case css.TokenGrammar:
			// unknown at-rules come back token by token, whitespace included
			raw.WriteString(span)

		case css.CustomPropertyGrammar:
			sheet.Warnings = append(sheet.Warnings, "custom property skipped: "+string(data))
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(c *cursor) {
	depth := 1
	for depth > 0 {
		gt, _, _ := c.next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}
