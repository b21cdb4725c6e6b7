package css

import (
	"io"
	"strings"
)

// Declaration is a single property/value pair. Value keeps the raw CSS
// value text, including any !important annotation.
type Declaration struct {
	Property string
	Value    string
}

// String renders the declaration as "property: value;".
func (d Declaration) String() string {
	return d.Property + ": " + d.Value + ";"
}

// DeclarationBlock is a plain style rule: one or more selectors sharing an
// ordered list of declarations.
type DeclarationBlock struct {
	Selectors []string      // individual selectors, trimmed, in source order
	Decls     []Declaration // declarations in source order
}

// SelectorText returns the selectors joined by "," with no added whitespace.
func (b *DeclarationBlock) SelectorText() string {
	return strings.Join(b.Selectors, ",")
}

// DeclarationText returns all declarations concatenated, each already
// terminated by ";".
func (b *DeclarationBlock) DeclarationText() string {
	var sb strings.Builder
	for _, d := range b.Decls {
		sb.WriteString(d.String())
	}
	return sb.String()
}

// String renders the block as "selectors{declarations}".
func (b *DeclarationBlock) String() string {
	return b.SelectorText() + "{" + b.DeclarationText() + "}"
}

// MediaBlock is a @media conditional group rule. Query is the raw media
// query list exactly as it appeared in the source, it is never
// re-normalized. Only nested declaration blocks are kept, any other
// construct inside the group is dropped at parse time.
type MediaBlock struct {
	Query  string
	Blocks []DeclarationBlock
}

// String renders the group as "@media query{blocks}".
func (m *MediaBlock) String() string {
	var sb strings.Builder
	sb.WriteString("@media ")
	sb.WriteString(m.Query)
	sb.WriteString("{")
	for i := range m.Blocks {
		sb.WriteString(m.Blocks[i].String())
	}
	sb.WriteString("}")
	return sb.String()
}

// AtRule is any at-rule other than @media, @charset and @import, for
// example @font-face, @page, @namespace or a vendor-specific rule. Name is
// stored lowercased without the leading "@". Decls holds the structured
// body for rule-set shaped bodies, Blocks holds nested style rules for
// grouping at-rules (e.g. @supports). Raw holds the verbatim body text of
// rules the tokenizer has no structure for, so they survive exactly as
// written. HasBody distinguishes "@name ...;" statements from
// "@name ... {}" blocks.
type AtRule struct {
	Name    string
	Prelude string
	Decls   []Declaration
	Blocks  []DeclarationBlock
	Raw     string
	HasBody bool
}

// HasDecl reports whether the rule body assigns the given property at
// least once. Property names are compared case-insensitively.
func (a *AtRule) HasDecl(property string) bool {
	for _, d := range a.Decls {
		if strings.EqualFold(d.Property, property) {
			return true
		}
	}
	return false
}

// String renders the at-rule back to CSS.
func (a *AtRule) String() string {
	var sb strings.Builder
	sb.WriteString("@")
	sb.WriteString(a.Name)
	if a.Prelude != "" {
		sb.WriteString(" ")
		sb.WriteString(a.Prelude)
	}
	if !a.HasBody {
		sb.WriteString(";")
		return sb.String()
	}
	sb.WriteString("{")
	for _, d := range a.Decls {
		sb.WriteString(d.String())
	}
	for i := range a.Blocks {
		sb.WriteString(a.Blocks[i].String())
	}
	if len(a.Decls) == 0 && len(a.Blocks) == 0 {
		sb.WriteString(a.Raw)
	}
	sb.WriteString("}")
	return sb.String()
}

// CharsetRule marks an @charset statement. The pipeline decodes all input
// to UTF-8 before parsing, so the value carries no meaning downstream and
// is kept only for diagnostics.
type CharsetRule struct {
	Value string // raw argument, quotes included
}

// String renders the statement back to CSS.
func (c *CharsetRule) String() string {
	return "@charset " + c.Value + ";"
}

// ImportRule marks an @import statement. Raw is the full argument text
// (URL plus optional media list); its content is not inspected.
type ImportRule struct {
	Raw string
}

// String renders the statement back to CSS.
func (i *ImportRule) String() string {
	return "@import " + i.Raw + ";"
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of the fields is non-nil.
type StylesheetItem struct {
	Block   *DeclarationBlock
	Media   *MediaBlock
	AtRule  *AtRule
	Charset *CharsetRule
	Import  *ImportRule
}

// String renders the item back to CSS.
func (it *StylesheetItem) String() string {
	switch {
	case it.Block != nil:
		return it.Block.String()
	case it.Media != nil:
		return it.Media.String()
	case it.AtRule != nil:
		return it.AtRule.String()
	case it.Charset != nil:
		return it.Charset.String()
	case it.Import != nil:
		return it.Import.String()
	}
	return ""
}

// Stylesheet is a parsed CSS stylesheet. Items preserve source order.
// Neither of the traversal algorithms mutates the tree, so a Stylesheet is
// safe for concurrent read-only use once parsing is done.
type Stylesheet struct {
	Items    []StylesheetItem
	Warnings []string // constructs the parser recognized but dropped
}

// Imports returns the raw argument of every @import statement in source order.
func (s *Stylesheet) Imports() []string {
	var raws []string
	for _, item := range s.Items {
		if item.Import != nil {
			raws = append(raws, item.Import.Raw)
		}
	}
	return raws
}

// WriteTo writes the stylesheet to w in source order, one item per line,
// implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range s.Items {
		text := s.Items[i].String()
		if i < len(s.Items)-1 {
			text += "\n"
		}
		n, err := io.WriteString(w, text)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}
