package passes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wasmkit/wopt/ir"
	"github.com/wasmkit/wopt/parser"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// testModule wraps a single expression in a module with the globals,
// imports, and memory the tests reference.
func testModule(body string) string {
	return `
	  (module
	   (import "env" "callee" (func $callee (result i32)))
	   (memory 1)
	   (global $a (mut i32))
	   (global $b (mut i32))
	   (global $c (mut i32))
	   (global $p (mut i32))
	   (global $x (mut i64))
	   (func $test ` + body + `)
	  )
	`
}

func optimizeBody(t *testing.T, body string) ir.Expression {
	t.Helper()

	module, err := parser.ParseModule(testModule(body))
	require.NoError(t, err)

	err = NewOptimizeInstructions().Run(module)
	require.NoError(t, err)

	return module.Functions[0].Body
}

func parseBody(t *testing.T, body string) ir.Expression {
	t.Helper()

	module, err := parser.ParseModule(testModule(body))
	require.NoError(t, err)

	return module.Functions[0].Body
}

func assertOptimizes(t *testing.T, body, expected string) {
	t.Helper()

	actual := optimizeBody(t, body)
	expectedBody := parseBody(t, expected)

	assert.True(t,
		ir.Equal(actual, expectedBody),
		"optimized to:\n%s\nexpected:\n%s",
		actual,
		expectedBody,
	)
}

func assertUnchanged(t *testing.T, body string) {
	t.Helper()

	assertOptimizes(t, body, body)
}

func TestSignExtensionFusion(t *testing.T) {

	t.Parallel()

	t.Run("8-bit", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.shr_s
			  (i32.shl (i32.load8_u (global.get $p)) (i32.const 24))
			  (i32.const 24)
			 )`,
			`(i32.load8_s (global.get $p))`,
		)
	})

	t.Run("16-bit", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.shr_s
			  (i32.shl (i32.load16_u (global.get $p)) (i32.const 16))
			  (i32.const 16)
			 )`,
			`(i32.load16_s (global.get $p))`,
		)
	})

	t.Run("attributes survive", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.shr_s
			  (i32.shl (i32.load8_u offset=4 (global.get $p)) (i32.const 24))
			  (i32.const 24)
			 )`,
			`(i32.load8_s offset=4 (global.get $p))`,
		)
	})

	t.Run("mismatched shift amounts", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t,
			`(i32.shr_s
			  (i32.shl (i32.load8_u (global.get $p)) (i32.const 24))
			  (i32.const 16)
			 )`,
		)
	})

	t.Run("width does not match the shift", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t,
			`(i32.shr_s
			  (i32.shl (i32.load16_u (global.get $p)) (i32.const 24))
			  (i32.const 24)
			 )`,
		)
	})

	t.Run("full-width load", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t,
			`(i32.shr_s
			  (i32.shl (i32.load (global.get $p)) (i32.const 24))
			  (i32.const 24)
			 )`,
		)
	})
}

func TestEqualZeroCanonicalization(t *testing.T) {

	t.Parallel()

	t.Run("zero on the right", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.eq (global.get $a) (i32.const 0))`,
			`(i32.eqz (global.get $a))`,
		)
	})

	t.Run("zero on the left", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.eq (i32.const 0) (global.get $a))`,
			`(i32.eqz (global.get $a))`,
		)
	})

	t.Run("non-zero constant", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t, `(i32.eq (global.get $a) (i32.const 1))`)
	})

	t.Run("64-bit form", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i64.eq (global.get $x) (i64.const 0))`,
			`(i64.eqz (global.get $x))`,
		)
		assertOptimizes(t,
			`(i64.eq (i64.const 0) (global.get $x))`,
			`(i64.eqz (global.get $x))`,
		)
	})
}

func TestDeMorgan(t *testing.T) {

	t.Parallel()

	t.Run("negated comparison inverts", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.eqz (i32.lt_u (global.get $a) (global.get $b)))`,
			`(i32.ge_u (global.get $a) (global.get $b))`,
		)
		assertOptimizes(t,
			`(i32.eqz (i32.le_s (global.get $a) (global.get $b)))`,
			`(i32.gt_s (global.get $a) (global.get $b))`,
		)
	})

	t.Run("equality round trip", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.eqz (i32.eq (global.get $a) (global.get $b)))`,
			`(i32.ne (global.get $a) (global.get $b))`,
		)
		assertOptimizes(t,
			`(i32.eqz (i32.ne (global.get $a) (global.get $b)))`,
			`(i32.eq (global.get $a) (global.get $b))`,
		)
	})

	t.Run("64-bit comparison under a 32-bit negation", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.eqz (i64.lt_s (global.get $x) (i64.const 7)))`,
			`(i64.ge_s (global.get $x) (i64.const 7))`,
		)
	})

	t.Run("negated non-comparison is unchanged", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t, `(i32.eqz (i32.add (global.get $a) (global.get $b)))`)
	})

	t.Run("cascade from equal-zero", func(t *testing.T) {
		t.Parallel()

		// eq(lt, 0) becomes eqz(lt), which inverts to ge
		assertOptimizes(t,
			`(i32.eq (i32.lt_u (global.get $a) (global.get $b)) (i32.const 0))`,
			`(i32.ge_u (global.get $a) (global.get $b))`,
		)
	})
}

func TestBooleanContexts(t *testing.T) {

	t.Parallel()

	t.Run("double negation in an if condition", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(if (i32.eqz (i32.eqz (global.get $a))) (then (nop)))`,
			`(if (global.get $a) (then (nop)))`,
		)
	})

	t.Run("double negation in a br_if condition", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(block $out
			  (br_if $out (i32.eqz (i32.eqz (global.get $a))))
			 )`,
			`(block $out
			  (br_if $out (global.get $a))
			 )`,
		)
	})

	t.Run("double negation as a value is kept", func(t *testing.T) {
		t.Parallel()

		// eqz(eqz(x)) normalizes x to a 0/1 value,
		// so it is only droppable where only truthiness matters
		assertUnchanged(t, `(i32.eqz (i32.eqz (global.get $a)))`)
	})

	t.Run("negated if condition flips the arms", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(if (i32.eqz (global.get $a))
			  (then (global.set $b (i32.const 1)))
			  (else (global.set $c (i32.const 2)))
			 )`,
			`(if (global.get $a)
			  (then (global.set $c (i32.const 2)))
			  (else (global.set $b (i32.const 1)))
			 )`,
		)
	})

	t.Run("negated if condition without an else arm", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t,
			`(if (i32.eqz (global.get $a))
			  (then (global.set $b (i32.const 1)))
			 )`,
		)
	})

	t.Run("quadruple negation needs one pass", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(if (i32.eqz (i32.eqz (i32.eqz (i32.eqz (global.get $a)))))
			  (then (nop))
			 )`,
			`(if (global.get $a) (then (nop)))`,
		)
	})
}

func TestSelectFlip(t *testing.T) {

	t.Parallel()

	t.Run("pure arms flip", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(select
			  (i32.const 1)
			  (i32.const 2)
			  (i32.eqz (global.get $a))
			 )`,
			`(select
			  (i32.const 2)
			  (i32.const 1)
			  (global.get $a)
			 )`,
		)
	})

	t.Run("double negation in the condition", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(select
			  (i32.const 1)
			  (i32.const 2)
			  (i32.eqz (i32.eqz (global.get $a)))
			 )`,
			`(select
			  (i32.const 1)
			  (i32.const 2)
			  (global.get $a)
			 )`,
		)
	})

	t.Run("conflicting arms stay in place", func(t *testing.T) {
		t.Parallel()

		// both arms are evaluated, so a write in one arm
		// must not move across a read in the other
		assertUnchanged(t,
			`(select
			  (block (global.set $b (i32.const 1)) (i32.const 1))
			  (global.get $b)
			  (i32.eqz (global.get $a))
			 )`,
		)
	})

	t.Run("arms with calls stay in place", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t,
			`(select
			  (call $callee)
			  (i32.const 2)
			  (i32.eqz (global.get $a))
			 )`,
		)
	})
}

func TestSelfAssignmentElimination(t *testing.T) {

	t.Parallel()

	t.Run("same global", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(global.set $a (global.get $a))`,
			`(nop)`,
		)
	})

	t.Run("different globals", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t, `(global.set $a (global.get $b))`)
	})
}

func TestPatternRules(t *testing.T) {

	t.Parallel()

	t.Run("arithmetic identities", func(t *testing.T) {
		t.Parallel()

		for _, body := range []string{
			`(i32.add (global.get $a) (i32.const 0))`,
			`(i32.add (i32.const 0) (global.get $a))`,
			`(i32.sub (global.get $a) (i32.const 0))`,
			`(i32.mul (global.get $a) (i32.const 1))`,
			`(i32.mul (i32.const 1) (global.get $a))`,
			`(i32.and (global.get $a) (i32.const -1))`,
			`(i32.or (global.get $a) (i32.const 0))`,
			`(i32.xor (global.get $a) (i32.const 0))`,
			`(i32.shl (global.get $a) (i32.const 0))`,
			`(i32.shr_s (global.get $a) (i32.const 0))`,
			`(i32.shr_u (global.get $a) (i32.const 0))`,
		} {
			assertOptimizes(t, body, `(global.get $a)`)
		}
	})

	t.Run("64-bit identities", func(t *testing.T) {
		t.Parallel()

		for _, body := range []string{
			`(i64.add (global.get $x) (i64.const 0))`,
			`(i64.sub (global.get $x) (i64.const 0))`,
			`(i64.or (global.get $x) (i64.const 0))`,
			`(i64.and (global.get $x) (i64.const -1))`,
		} {
			assertOptimizes(t, body, `(global.get $x)`)
		}
	})

	t.Run("identities require the exact constant", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t, `(i32.add (global.get $a) (i32.const 1))`)
		assertUnchanged(t, `(i32.mul (global.get $a) (i32.const 0))`)
		assertUnchanged(t, `(i32.and (global.get $a) (i32.const 1))`)
	})

	t.Run("repeated wildcard requires equal subtrees", func(t *testing.T) {
		t.Parallel()

		assertOptimizes(t,
			`(i32.and (global.get $a) (global.get $a))`,
			`(global.get $a)`,
		)
		assertOptimizes(t,
			`(i32.or
			  (i32.add (global.get $a) (global.get $b))
			  (i32.add (global.get $a) (global.get $b))
			 )`,
			`(i32.add (global.get $a) (global.get $b))`,
		)

		assertUnchanged(t, `(i32.and (global.get $a) (global.get $b))`)
	})

	t.Run("effectful repeated operands stay in place", func(t *testing.T) {
		t.Parallel()

		// both operands are evaluated, so neither may be elided
		assertUnchanged(t, `(i32.and (call $callee) (call $callee))`)
		assertUnchanged(t, `(i32.or (call $callee) (call $callee))`)
		assertUnchanged(t,
			`(i32.and
			  (block (global.set $b (i32.const 1)) (global.get $a))
			  (block (global.set $b (i32.const 1)) (global.get $a))
			 )`,
		)
	})

	t.Run("rewrites cascade to a fixpoint", func(t *testing.T) {
		t.Parallel()

		// the inner fusion exposes the outer identity
		assertOptimizes(t,
			`(i32.add
			  (i32.shr_s
			   (i32.shl (i32.load16_u (global.get $p)) (i32.const 16))
			   (i32.const 16)
			  )
			  (i32.const 0)
			 )`,
			`(i32.load16_s (global.get $p))`,
		)
	})
}

func TestOptimizeIsIdempotent(t *testing.T) {

	t.Parallel()

	bodies := []string{
		`(i32.add (global.get $a) (i32.const 0))`,
		`(i32.eq (global.get $a) (i32.const 0))`,
		`(i32.eqz (i32.lt_u (global.get $a) (global.get $b)))`,
		`(if (i32.eqz (global.get $a)) (then (nop)) (else (unreachable)))`,
		`(select (i32.const 1) (i32.const 2) (i32.eqz (global.get $a)))`,
		`(global.set $a (global.get $a))`,
	}

	for _, body := range bodies {
		module, err := parser.ParseModule(testModule(body))
		require.NoError(t, err)

		pass := NewOptimizeInstructions()
		require.NoError(t, pass.Run(module))
		once := ir.Copy(module.Functions[0].Body)

		require.NoError(t, pass.Run(module))
		assert.True(t,
			ir.Equal(once, module.Functions[0].Body),
			"second run changed %s to %s",
			once,
			module.Functions[0].Body,
		)
	}
}

func TestOptimizeAllFunctions(t *testing.T) {

	t.Parallel()

	module, err := parser.ParseModule(`
	  (module
	   (global $a (mut i32))
	   (func $f (result i32)
	    (i32.add (global.get $a) (i32.const 0))
	   )
	   (func $g (result i32)
	    (i32.eq (global.get $a) (i32.const 0))
	   )
	  )
	`)
	require.NoError(t, err)

	require.NoError(t, NewOptimizeInstructions().Run(module))

	first := module.Functions[0].Body.(*ir.Block)
	assert.IsType(t, &ir.GlobalGet{}, first.List[0])

	second := module.Functions[1].Body.(*ir.Block)
	assert.IsType(t, &ir.Unary{}, second.List[0])
}

func TestRunner(t *testing.T) {

	t.Parallel()

	module, err := parser.ParseModule(`
	  (module
	   (global $a (mut i32))
	   (func $f (result i32)
	    (i32.add (global.get $a) (i32.const 0))
	   )
	  )
	`)
	require.NoError(t, err)

	runner := NewRunner(NewOptimizeInstructions())
	require.NoError(t, runner.Run(module))

	body := module.Functions[0].Body.(*ir.Block)
	assert.IsType(t, &ir.GlobalGet{}, body.List[0])
}
