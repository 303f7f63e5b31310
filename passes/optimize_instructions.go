package passes

import (
	"golang.org/x/sync/errgroup"

	"github.com/wasmkit/wopt/ir"
)

// OptimizeInstructions rewrites combinations of instructions into
// cheaper or more canonical forms: first the hand-written rewrites,
// then the rules of the pattern database, per node until neither fires.
//
// Function bodies are optimized independently and in parallel.
// Within one function all rewrites are sequential.
type OptimizeInstructions struct{}

var _ Pass = &OptimizeInstructions{}

func NewOptimizeInstructions() *OptimizeInstructions {
	return &OptimizeInstructions{}
}

func (*OptimizeInstructions) Name() string {
	return "optimize-instructions"
}

func (*OptimizeInstructions) Run(module *ir.Module) error {
	db := patternDatabase()
	var group errgroup.Group
	for _, function := range module.Functions {
		function := function
		group.Go(func() error {
			optimizeFunction(db, function)
			return nil
		})
	}
	return group.Wait()
}

// OptimizeExpression optimizes a single expression in place,
// through the slot referencing it.
// Safe to call concurrently for expressions of distinct functions.
func OptimizeExpression(slot *ir.Expression) {
	optimizeExpression(patternDatabase(), slot)
}

func optimizeFunction(db *PatternDatabase, function *ir.Function) {
	if function.Body == nil {
		return
	}
	optimizeExpression(db, &function.Body)
}

// optimizeExpression optimizes the children first, then repeatedly
// rewrites the node in the slot until no rule fires: one rewrite may
// open the opportunity for the next.
// NB: the rule set must not contain rewrite cycles.
func optimizeExpression(db *PatternDatabase, slot *ir.Expression) {
	for _, child := range ir.ChildSlots(*slot) {
		optimizeExpression(db, child)
	}
	for {
		if replacement := handOptimize(*slot); replacement != nil {
			*slot = replacement
			continue
		}
		if replacement := db.rewrite(*slot); replacement != nil {
			*slot = replacement
			continue
		}
		return
	}
}

// handOptimize holds the rewrites that don't fit in the pattern rule
// set. It returns the replacement, which may be the node itself
// mutated in place, or nil if no rule applies.
func handOptimize(curr ir.Expression) ir.Expression {
	switch curr := curr.(type) {
	case *ir.Binary:
		switch curr.Op {
		case ir.ShrSInt32:
			// a load of 8 bits, a shl of 24, then a shr_s of 24
			// is a sign-extending 8-bit load; same for 16 and 16 bits
			if c, ok := curr.Right.(*ir.Const); ok {
				shifts := c.Value.I32()
				if shifts == 24 || shifts == 16 {
					if left, ok := curr.Left.(*ir.Binary); ok && left.Op == ir.ShlInt32 {
						if leftConst, ok := left.Right.(*ir.Const); ok &&
							leftConst.Value.I32() == shifts {

							if load, ok := left.Left.(*ir.Load); ok {
								if (load.Bytes == 1 && shifts == 24) ||
									(load.Bytes == 2 && shifts == 16) {

									load.Signed = true
									return load
								}
							}
						}
					}
				}
			}

		case ir.EqInt32:
			// equal 0 => eqz
			if c, ok := curr.Right.(*ir.Const); ok && c.Value.I32() == 0 {
				return &ir.Unary{
					Op:    ir.EqZInt32,
					Value: curr.Left,
				}
			}
			if c, ok := curr.Left.(*ir.Const); ok && c.Value.I32() == 0 {
				return &ir.Unary{
					Op:    ir.EqZInt32,
					Value: curr.Right,
				}
			}
		}

	case *ir.Unary:
		// de-morgan's laws: push a negation into a comparison
		if curr.Op == ir.EqZInt32 {
			if inner, ok := curr.Value.(*ir.Binary); ok {
				if inverted, ok := inner.Op.Invert(); ok {
					inner.Op = inverted
					return inner
				}
			}
		}

	case *ir.GlobalSet:
		// a set of a get of the same global has no effect
		if get, ok := curr.Value.(*ir.GlobalGet); ok && get.Name == curr.Name {
			return &ir.Nop{}
		}

	case *ir.If:
		condition, changed := optimizeBoolean(curr.Condition)
		curr.Condition = condition
		if curr.IfFalse != nil {
			if unary, ok := curr.Condition.(*ir.Unary); ok && unary.Op == ir.EqZInt32 {
				// flip the arms to get rid of the eqz
				curr.Condition = unary.Value
				curr.IfTrue, curr.IfFalse = curr.IfFalse, curr.IfTrue
				changed = true
			}
		}
		if changed {
			return curr
		}

	case *ir.Select:
		condition, changed := optimizeBoolean(curr.Condition)
		curr.Condition = condition
		if unary, ok := curr.Condition.(*ir.Unary); ok && unary.Op == ir.EqZInt32 {
			// flip the arms to remove the eqz, if the arms can be
			// reordered; only the two value arms are consulted
			ifTrue := ir.AnalyzeEffects(curr.IfTrue)
			ifFalse := ir.AnalyzeEffects(curr.IfFalse)
			if !ifTrue.Invalidates(ifFalse) {
				curr.Condition = unary.Value
				curr.IfTrue, curr.IfFalse = curr.IfFalse, curr.IfTrue
				changed = true
			}
		}
		if changed {
			return curr
		}

	case *ir.Break:
		if curr.Condition != nil {
			condition, changed := optimizeBoolean(curr.Condition)
			curr.Condition = condition
			if changed {
				return curr
			}
		}
	}

	return nil
}

// optimizeBoolean drops a double negation in a boolean context.
func optimizeBoolean(boolean ir.Expression) (ir.Expression, bool) {
	if condition, ok := boolean.(*ir.Unary); ok && condition.Op == ir.EqZInt32 {
		if inner, ok := condition.Value.(*ir.Unary); ok && inner.Op == ir.EqZInt32 {
			// double eqz
			return inner.Value, true
		}
	}
	return boolean, false
}
