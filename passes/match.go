package passes

import (
	"github.com/wasmkit/wopt/errors"
	"github.com/wasmkit/wopt/ir"
)

// match is one rule application attempt against one subtree.
// A fresh match is used per attempt, so a failed attempt
// leaves no bindings behind.
type match struct {
	pattern Pattern
	// wildcards holds the subtree bound to each capture slot,
	// indexed by slot, grown on demand. The bindings are references
	// into the tree being optimized, not copies.
	wildcards []ir.Expression
}

// check reports whether the candidate matches the pattern input,
// binding the wildcards on the way.
func (m *match) check(seen ir.Expression) bool {
	return ir.FlexibleEqual(m.pattern.Input, seen, m.compare)
}

// compare is the wildcard escape for the equality walk.
// It claims a (pattern node, seen node) pair when the pattern node
// is a capture marker whose required type admits the seen subtree.
func (m *match) compare(subInput, subSeen ir.Expression) bool {
	slot, required, ok := captureMarker(subInput)
	if !ok {
		return false
	}
	if required != ir.None && subSeen.Type() != required {
		return false
	}
	for slot >= len(m.wildcards) {
		m.wildcards = append(m.wildcards, nil)
	}
	if m.wildcards[slot] == nil {
		// first occurrence binds, no copy needed
		m.wildcards[slot] = subSeen
		return true
	}
	// a repeated occurrence must equal the bound subtree and must be
	// effect-free: the output may hold fewer occurrences of the slot
	// than the input
	return ir.Equal(subSeen, m.wildcards[slot]) &&
		!ir.AnalyzeEffects(subSeen).HasSideEffects()
}

// apply builds the replacement: a copy of the output pattern
// with every capture marker replaced by a copy of its binding.
// The bindings are copied because they are still referenced
// by the tree the replacement is about to displace.
func (m *match) apply() ir.Expression {
	return ir.FlexibleCopy(
		m.pattern.Output,
		func(expression ir.Expression) ir.Expression {
			slot, _, ok := captureMarker(expression)
			if !ok {
				return nil
			}
			if slot >= len(m.wildcards) || m.wildcards[slot] == nil {
				panic(errors.NewUnexpectedError(
					"capture slot %d is unbound",
					slot,
				))
			}
			return ir.Copy(m.wildcards[slot])
		},
	)
}
