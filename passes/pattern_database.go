package passes

import (
	_ "embed"
	"sync"

	"github.com/wasmkit/wopt/errors"
	"github.com/wasmkit/wopt/ir"
	"github.com/wasmkit/wopt/parser"
)

//go:embed optimize_instructions.wast
var patternsSource string

// Pattern is one rewrite rule: a subtree matching Input
// is replaced by Output, with wildcards substituted.
type Pattern struct {
	Input  ir.Expression
	Output ir.Expression
}

// PatternDatabase holds the parsed rule set,
// keyed by the input pattern's root kind.
// Rules are tried in declaration order, first match wins.
// Read-only after construction, so it is shared without locking
// across concurrently optimized functions.
type PatternDatabase struct {
	patterns map[ir.ExpressionKind][]Pattern
}

var database *PatternDatabase
var databaseOnce sync.Once

// patternDatabase returns the process-wide database,
// constructing it from the embedded rule set on first use.
func patternDatabase() *PatternDatabase {
	databaseOnce.Do(initPatternDatabase)
	return database
}

func initPatternDatabase() {
	if database != nil {
		panic(errors.NewUnexpectedError("pattern database already constructed"))
	}
	database = NewPatternDatabase(patternsSource)
}

// NewPatternDatabase parses a rule set.
// A rule set is build-time data, not user input:
// any defect in it is fatal.
func NewPatternDatabase(source string) *PatternDatabase {
	module, err := parser.ParseModule(source)
	if err != nil {
		panic(errors.NewUnexpectedError("malformed pattern rule set: %s", err))
	}
	function := module.GetFunction("patterns")
	if function == nil {
		panic(errors.NewUnexpectedError("pattern rule set has no $patterns function"))
	}
	body, ok := function.Body.(*ir.Block)
	if !ok {
		panic(errors.NewUnexpectedError("malformed $patterns body"))
	}

	db := &PatternDatabase{
		patterns: map[ir.ExpressionKind][]Pattern{},
	}
	for _, item := range body.List {
		pair, ok := item.(*ir.Block)
		if !ok || len(pair.List) != 2 {
			panic(errors.NewUnexpectedError(
				"pattern rule is not an (input, output) pair: %s",
				item,
			))
		}
		pattern := Pattern{
			Input:  pair.List[0],
			Output: pair.List[1],
		}
		validatePattern(pattern)
		kind := pattern.Input.Kind()
		db.patterns[kind] = append(db.patterns[kind], pattern)
	}
	return db
}

// RulesFor returns the rules whose input pattern's root
// has the given kind, in declaration order.
func (db *PatternDatabase) RulesFor(kind ir.ExpressionKind) []Pattern {
	return db.patterns[kind]
}

// rewrite tries each rule registered for the expression's kind.
// It returns the replacement built from the first matching rule,
// or nil if no rule matches.
func (db *PatternDatabase) rewrite(curr ir.Expression) ir.Expression {
	for _, pattern := range db.patterns[curr.Kind()] {
		m := &match{pattern: pattern}
		if m.check(curr) {
			return m.apply()
		}
	}
	return nil
}

// validatePattern enforces that capture slot indices are non-negative
// and that every slot referenced by the output is bound by the input:
// a rule must not invent unbound data.
func validatePattern(pattern Pattern) {
	bound := map[int]struct{}{}
	walkMarkers(pattern.Input, func(slot int) {
		if slot < 0 {
			panic(errors.NewUnexpectedError(
				"pattern input uses negative capture slot %d: %s",
				slot,
				pattern.Input,
			))
		}
		bound[slot] = struct{}{}
	})
	walkMarkers(pattern.Output, func(slot int) {
		if _, ok := bound[slot]; !ok {
			panic(errors.NewUnexpectedError(
				"pattern output references unbound capture slot %d: %s",
				slot,
				pattern.Output,
			))
		}
	})
}

func walkMarkers(expression ir.Expression, visit func(slot int)) {
	if slot, _, ok := captureMarker(expression); ok {
		visit(slot)
		return
	}
	for _, child := range ir.ChildSlots(expression) {
		walkMarkers(*child, visit)
	}
}

// Wildcard capture markers are encoded in the rule set as calls to
// reserved imports: the target selects the required value type,
// and the single i32.const operand is the capture slot index.
const (
	wildcardI32 = "i32.expr"
	wildcardI64 = "i64.expr"
	wildcardF32 = "f32.expr"
	wildcardF64 = "f64.expr"
	wildcardAny = "any.expr"
)

var wildcardTypes = map[string]ir.ValueType{
	wildcardI32: ir.I32,
	wildcardI64: ir.I64,
	wildcardF32: ir.F32,
	wildcardF64: ir.F64,
	wildcardAny: ir.None,
}

// captureMarker recognizes a wildcard capture marker.
// required is None for the untyped "any" wildcard.
func captureMarker(expression ir.Expression) (slot int, required ir.ValueType, ok bool) {
	call, isCall := expression.(*ir.Call)
	if !isCall || len(call.Operands) != 1 {
		return 0, ir.None, false
	}
	required, isWildcard := wildcardTypes[call.Target]
	if !isWildcard {
		return 0, ir.None, false
	}
	index, isConst := call.Operands[0].(*ir.Const)
	if !isConst || index.Value.ValueType != ir.I32 {
		return 0, ir.None, false
	}
	return int(index.Value.I32()), required, true
}
