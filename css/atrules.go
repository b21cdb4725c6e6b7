package css

import "strings"

// PreservedAtRules filters the top-level items left to right and returns
// the serialized form of every at-rule that must survive verbatim in a
// <style> element instead of being inlined, concatenated in source order.
//
// The walk enforces CSS ordering and validity constraints:
//
//   - @charset is always dropped, all output is UTF-8 by the time it is
//     emitted.
//   - @import survives only while nothing but @charset precedes it. Any
//     other node, whether it survives itself or not, closes the door for
//     all later imports.
//   - plain style rules and @media groups are never preserved here, their
//     contents flow through StyleRules instead.
//   - @font-face must declare both font-family and src to be usable,
//     otherwise it is dropped.
//   - every other at-rule is kept opaquely.
//
// importAllowed is local to the call, so repeated calls on the same tree
// give identical results and concurrent calls are safe.
func (s *Stylesheet) PreservedAtRules() string {
	var sb strings.Builder

	importAllowed := true
	for i := range s.Items {
		item := &s.Items[i]
		switch {
		case item.Charset != nil:
			// dropped, and it does not affect import ordering

		case item.Import != nil:
			if importAllowed {
				sb.WriteString(item.Import.String())
			}

		default:
			importAllowed = false
			switch {
			case item.AtRule == nil:
				// style rule or @media group, handled by StyleRules
			case item.AtRule.Name == "font-face":
				if item.AtRule.HasDecl("font-family") && item.AtRule.HasDecl("src") {
					sb.WriteString(item.AtRule.String())
				}
			default:
				sb.WriteString(item.AtRule.String())
			}
		}
	}
	return sb.String()
}
