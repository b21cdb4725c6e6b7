package css

import (
	"regexp"
	"strings"
)

// StyleRule is a single flattened style rule ready for inlining. Media is
// the raw text of the enclosing conditional at-rule ("@media ..." or empty
// for top-level rules), Selectors the comma-joined selector list and
// Declarations the concatenated declaration text.
type StyleRule struct {
	Media        string
	Selectors    string
	Declarations string
}

// StyleRules walks the top-level items in source order and returns every
// declaration block as a flattened StyleRule. Declaration blocks nested in
// a @media group are unwrapped when the group's media-type list matches
// one of mediaTypes (or when the query starts directly with a feature
// condition, which matches any target); rules of a non-matching group are
// dropped entirely. Conditional groups other than @media never reach this
// walk, the parser keeps them as opaque at-rules.
//
// The tree is not mutated and the output aliases nothing in it.
func (s *Stylesheet) StyleRules(mediaTypes []string) []StyleRule {
	var (
		rules     []StyleRule
		typeMatch *regexp.Regexp // built on first use
	)

	admissible := func(query string) bool {
		// Everything before the first feature condition is the media-type
		// token list. An empty list ("(min-width: ...)" style queries)
		// applies to any media type.
		head, _, _ := strings.Cut(query, "(")
		if strings.TrimSpace(head) == "" {
			return true
		}
		if typeMatch == nil {
			quoted := make([]string, len(mediaTypes))
			for i, t := range mediaTypes {
				quoted[i] = regexp.QuoteMeta(t)
			}
			// Deliberately a prefix match, not a full match: trailing text
			// after the matched type is tolerated.
			typeMatch = regexp.MustCompile(`(?i)^\s*(?:only\s+)?(?:` + strings.Join(quoted, "|") + `)`)
		}
		return typeMatch.MatchString(head)
	}

	for i := range s.Items {
		item := &s.Items[i]
		switch {
		case item.Block != nil:
			rules = append(rules, flatten("", item.Block))

		case item.Media != nil:
			if !admissible(item.Media.Query) {
				continue
			}
			enclosing := "@media " + item.Media.Query
			for j := range item.Media.Blocks {
				rules = append(rules, flatten(enclosing, &item.Media.Blocks[j]))
			}
		}
	}
	return rules
}

// flatten renders a declaration block into a StyleRule record.
func flatten(media string, b *DeclarationBlock) StyleRule {
	return StyleRule{
		Media:        media,
		Selectors:    b.SelectorText(),
		Declarations: b.DeclarationText(),
	}
}
