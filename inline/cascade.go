package inline

import (
	"strings"

	"github.com/andybalholm/cascadia"

	"mailcss/css"
)

// Precedence tiers of the cascade as seen from a style attribute: sheet
// declarations lose to the element's own style attribute, !important
// declarations jump two tiers so that an important sheet rule beats a
// normal attribute value while an important attribute value beats all.
const (
	rankSheet = iota
	rankAttribute
	rankSheetImportant
	rankAttributeImportant
)

type declState struct {
	value string
	rank  int
	spec  cascadia.Specificity
	order int
}

// declSet accumulates the winning declaration per property for one
// element, remembering first-seen property order for deterministic output.
type declSet struct {
	props map[string]*declState
	order []string
}

func newDeclSet() *declSet {
	return &declSet{props: make(map[string]*declState)}
}

// apply offers a declaration to the set. It wins over a previous value for
// the same property when its (rank, specificity, source order) tuple is
// not lower; equal tuples favor the later declaration.
func (s *declSet) apply(d css.Declaration, rank int, spec cascadia.Specificity, order int) {
	if strings.Contains(strings.ToLower(d.Value), "!important") {
		rank += 2
	}
	cur, ok := s.props[d.Property]
	if !ok {
		s.props[d.Property] = &declState{value: d.Value, rank: rank, spec: spec, order: order}
		s.order = append(s.order, d.Property)
		return
	}
	if !wins(cur, rank, spec, order) {
		return
	}
	cur.value, cur.rank, cur.spec, cur.order = d.Value, rank, spec, order
}

func wins(cur *declState, rank int, spec cascadia.Specificity, order int) bool {
	if rank != cur.rank {
		return rank > cur.rank
	}
	if spec.Less(cur.spec) {
		return false
	}
	if cur.spec.Less(spec) {
		return true
	}
	return order >= cur.order
}

// text renders the resolved declarations in first-seen property order.
func (s *declSet) text() string {
	var sb strings.Builder
	for _, prop := range s.order {
		sb.WriteString(css.Declaration{Property: prop, Value: s.props[prop].value}.String())
	}
	return sb.String()
}
