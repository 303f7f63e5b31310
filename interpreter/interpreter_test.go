/*
 * wopt - A WebAssembly instruction optimizer
 *
 * Copyright Wopt Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package interpreter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wasmkit/wopt/ir"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func i32(value int32) *ir.Const {
	return &ir.Const{Value: ir.NewI32Literal(value)}
}

func i64(value int64) *ir.Const {
	return &ir.Const{Value: ir.NewI64Literal(value)}
}

func evaluate(t *testing.T, expression ir.Expression) ir.Literal {
	result, err := NewInterpreter().Evaluate(expression)
	require.NoError(t, err)
	return result
}

func TestEvaluateArithmetic(t *testing.T) {

	t.Parallel()

	t.Run("wrapping addition", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Binary{
			Op:    ir.AddInt32,
			Left:  i32(math.MaxInt32),
			Right: i32(1),
		})
		assert.Equal(t, int32(math.MinInt32), result.I32())
	})

	t.Run("wrapping multiplication", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Binary{
			Op:    ir.MulInt64,
			Left:  i64(math.MaxInt64),
			Right: i64(2),
		})
		assert.Equal(t, int64(-2), result.I64())
	})

	t.Run("shift counts are masked", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Binary{
			Op:    ir.ShlInt32,
			Left:  i32(1),
			Right: i32(33),
		})
		assert.Equal(t, int32(2), result.I32())

		result = evaluate(t, &ir.Binary{
			Op:    ir.ShlInt64,
			Left:  i64(1),
			Right: i64(64),
		})
		assert.Equal(t, int64(1), result.I64())
	})

	t.Run("logical shift right is unsigned", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Binary{
			Op:    ir.ShrUInt32,
			Left:  i32(-1),
			Right: i32(1),
		})
		assert.Equal(t, int32(math.MaxInt32), result.I32())
	})

	t.Run("unsigned comparison", func(t *testing.T) {
		t.Parallel()

		// -1 is the largest unsigned value
		result := evaluate(t, &ir.Binary{
			Op:    ir.LtUInt32,
			Left:  i32(-1),
			Right: i32(0),
		})
		assert.Equal(t, int32(0), result.I32())

		result = evaluate(t, &ir.Binary{
			Op:    ir.LtSInt32,
			Left:  i32(-1),
			Right: i32(0),
		})
		assert.Equal(t, int32(1), result.I32())
	})

	t.Run("division traps", func(t *testing.T) {
		t.Parallel()

		_, err := NewInterpreter().Evaluate(&ir.Binary{
			Op:    ir.DivSInt32,
			Left:  i32(1),
			Right: i32(0),
		})
		require.ErrorAs(t, err, &TrapError{})

		_, err = NewInterpreter().Evaluate(&ir.Binary{
			Op:    ir.DivSInt32,
			Left:  i32(math.MinInt32),
			Right: i32(-1),
		})
		require.ErrorAs(t, err, &TrapError{})
	})

	t.Run("remainder of the overflow case is zero", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Binary{
			Op:    ir.RemSInt32,
			Left:  i32(math.MinInt32),
			Right: i32(-1),
		})
		assert.Equal(t, int32(0), result.I32())
	})

	t.Run("count instructions", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Unary{Op: ir.ClzInt32, Value: i32(1)})
		assert.Equal(t, int32(31), result.I32())

		result = evaluate(t, &ir.Unary{Op: ir.CtzInt32, Value: i32(8)})
		assert.Equal(t, int32(3), result.I32())

		result = evaluate(t, &ir.Unary{Op: ir.PopcntInt32, Value: i32(-1)})
		assert.Equal(t, int32(32), result.I32())
	})

	t.Run("conversions", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Unary{Op: ir.WrapInt64, Value: i64(1 << 40)})
		assert.Equal(t, int32(0), result.I32())

		result = evaluate(t, &ir.Unary{Op: ir.ExtendSInt32, Value: i32(-1)})
		assert.Equal(t, int64(-1), result.I64())

		result = evaluate(t, &ir.Unary{Op: ir.ExtendUInt32, Value: i32(-1)})
		assert.Equal(t, int64(math.MaxUint32), result.I64())
	})

	t.Run("float NaN comparisons", func(t *testing.T) {
		t.Parallel()

		nan := &ir.Const{Value: ir.NewF64Literal(math.NaN())}

		result := evaluate(t, &ir.Binary{Op: ir.EqFloat64, Left: nan, Right: nan})
		assert.Equal(t, int32(0), result.I32())

		result = evaluate(t, &ir.Binary{Op: ir.NeFloat64, Left: nan, Right: nan})
		assert.Equal(t, int32(1), result.I32())
	})

	t.Run("float min orders negative zero first", func(t *testing.T) {
		t.Parallel()

		result := evaluate(t, &ir.Binary{
			Op:    ir.MinFloat64,
			Left:  &ir.Const{Value: ir.NewF64Literal(0)},
			Right: &ir.Const{Value: ir.NewF64Literal(math.Copysign(0, -1))},
		})
		assert.True(t, math.Signbit(result.F64()))
	})
}

func TestEvaluateControl(t *testing.T) {

	t.Parallel()

	t.Run("if selects an arm lazily", func(t *testing.T) {
		t.Parallel()

		// the untaken arm must not be evaluated: it would trap
		result := evaluate(t, &ir.If{
			Condition: i32(1),
			IfTrue:    i32(10),
			IfFalse:   &ir.Unreachable{},
		})
		assert.Equal(t, int32(10), result.I32())
	})

	t.Run("select evaluates all operands", func(t *testing.T) {
		t.Parallel()

		inter := NewInterpreter()
		inter.Globals["g"] = ir.NewI32Literal(0)

		// the untaken arm's write still happens
		_, err := inter.Evaluate(&ir.Select{
			IfTrue: i32(1),
			IfFalse: &ir.Block{
				List: []ir.Expression{
					&ir.GlobalSet{Name: "g", Value: i32(42)},
					i32(2),
				},
			},
			Condition: i32(1),
		})
		require.NoError(t, err)

		assert.Equal(t, int32(42), inter.Globals["g"].I32())
	})

	t.Run("globals", func(t *testing.T) {
		t.Parallel()

		inter := NewInterpreter()
		inter.Globals["g"] = ir.NewI32Literal(5)

		result, err := inter.Evaluate(&ir.Block{
			List: []ir.Expression{
				&ir.GlobalSet{
					Name: "g",
					Value: &ir.Binary{
						Op:    ir.AddInt32,
						Left:  &ir.GlobalGet{Name: "g", ValueType: ir.I32},
						Right: i32(1),
					},
				},
				&ir.GlobalGet{Name: "g", ValueType: ir.I32},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int32(6), result.I32())
	})

	t.Run("undefined global", func(t *testing.T) {
		t.Parallel()

		_, err := NewInterpreter().Evaluate(
			&ir.GlobalGet{Name: "missing", ValueType: ir.I32},
		)
		require.ErrorAs(t, err, &UndefinedGlobalError{})
	})

	t.Run("unreachable traps", func(t *testing.T) {
		t.Parallel()

		_, err := NewInterpreter().Evaluate(&ir.Unreachable{})
		require.ErrorAs(t, err, &TrapError{})
	})

	t.Run("unsupported expressions", func(t *testing.T) {
		t.Parallel()

		for _, expression := range []ir.Expression{
			&ir.Call{Target: "f", Result: ir.I32},
			&ir.Break{Label: "out"},
			&ir.Load{Bytes: 4, Ptr: i32(0), ValueType: ir.I32},
			&ir.Block{Label: "out"},
		} {
			_, err := NewInterpreter().Evaluate(expression)
			require.ErrorAs(t, err, &UnsupportedExpressionError{}, "%s", expression)
		}
	})
}
