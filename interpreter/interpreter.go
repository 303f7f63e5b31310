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

// Package interpreter evaluates the fragment of the expression
// vocabulary that needs no memory, no labels, and no callees.
// Its purpose is checking optimizations: evaluating a tree before
// and after a rewrite must produce the same result.
package interpreter

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/wasmkit/wopt/errors"
	"github.com/wasmkit/wopt/ir"
)

// UnsupportedExpressionError is returned for expressions outside the
// evaluable fragment. It is an expected outcome, not a defect.
type UnsupportedExpressionError struct {
	Kind ir.ExpressionKind
}

var _ error = UnsupportedExpressionError{}

func (e UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("cannot evaluate %s expression", e.Kind)
}

// TrapError is returned when evaluation traps,
// e.g. on division by zero.
type TrapError struct {
	Message string
}

var _ error = TrapError{}

func (e TrapError) Error() string {
	return fmt.Sprintf("trap: %s", e.Message)
}

// UndefinedGlobalError is returned when an expression reads or writes
// a global the environment does not define.
type UndefinedGlobalError struct {
	Name string
}

var _ error = UndefinedGlobalError{}

func (e UndefinedGlobalError) Error() string {
	return fmt.Sprintf("undefined global %q", e.Name)
}

// Interpreter evaluates expressions against a set of globals.
// Writes are visible to later evaluations,
// so effects on globals can be compared too.
type Interpreter struct {
	Globals map[string]ir.Literal
}

func NewInterpreter() *Interpreter {
	return &Interpreter{
		Globals: map[string]ir.Literal{},
	}
}

var void = ir.Literal{}

// Evaluate evaluates the expression, returning its value,
// or the zero literal for expressions that produce none.
func (i *Interpreter) Evaluate(expression ir.Expression) (ir.Literal, error) {
	switch expression := expression.(type) {
	case *ir.Block:
		if expression.Label != "" {
			return void, UnsupportedExpressionError{Kind: ir.BlockKind}
		}
		result := void
		for _, item := range expression.List {
			var err error
			result, err = i.Evaluate(item)
			if err != nil {
				return void, err
			}
		}
		return result, nil

	case *ir.If:
		condition, err := i.Evaluate(expression.Condition)
		if err != nil {
			return void, err
		}
		if condition.I32() != 0 {
			return i.Evaluate(expression.IfTrue)
		}
		if expression.IfFalse == nil {
			return void, nil
		}
		return i.Evaluate(expression.IfFalse)

	case *ir.GlobalGet:
		value, ok := i.Globals[expression.Name]
		if !ok {
			return void, UndefinedGlobalError{Name: expression.Name}
		}
		return value, nil

	case *ir.GlobalSet:
		if _, ok := i.Globals[expression.Name]; !ok {
			return void, UndefinedGlobalError{Name: expression.Name}
		}
		value, err := i.Evaluate(expression.Value)
		if err != nil {
			return void, err
		}
		i.Globals[expression.Name] = value
		return void, nil

	case *ir.Const:
		return expression.Value, nil

	case *ir.Unary:
		value, err := i.Evaluate(expression.Value)
		if err != nil {
			return void, err
		}
		return evaluateUnary(expression.Op, value)

	case *ir.Binary:
		left, err := i.Evaluate(expression.Left)
		if err != nil {
			return void, err
		}
		right, err := i.Evaluate(expression.Right)
		if err != nil {
			return void, err
		}
		return evaluateBinary(expression.Op, left, right)

	case *ir.Select:
		// all three operands are evaluated, in order
		ifTrue, err := i.Evaluate(expression.IfTrue)
		if err != nil {
			return void, err
		}
		ifFalse, err := i.Evaluate(expression.IfFalse)
		if err != nil {
			return void, err
		}
		condition, err := i.Evaluate(expression.Condition)
		if err != nil {
			return void, err
		}
		if condition.I32() != 0 {
			return ifTrue, nil
		}
		return ifFalse, nil

	case *ir.Nop:
		return void, nil

	case *ir.Unreachable:
		return void, TrapError{Message: "unreachable executed"}

	case *ir.Break, *ir.Call, *ir.Load:
		return void, UnsupportedExpressionError{Kind: expression.Kind()}
	}

	panic(errors.NewUnreachableError())
}

func evaluateUnary(op ir.UnaryOp, value ir.Literal) (ir.Literal, error) {
	switch op {
	case ir.ClzInt32:
		return ir.NewI32Literal(int32(bits.LeadingZeros32(uint32(value.I32())))), nil
	case ir.CtzInt32:
		return ir.NewI32Literal(int32(bits.TrailingZeros32(uint32(value.I32())))), nil
	case ir.PopcntInt32:
		return ir.NewI32Literal(int32(bits.OnesCount32(uint32(value.I32())))), nil
	case ir.EqZInt32:
		return bool32(value.I32() == 0), nil

	case ir.ClzInt64:
		return ir.NewI64Literal(int64(bits.LeadingZeros64(uint64(value.I64())))), nil
	case ir.CtzInt64:
		return ir.NewI64Literal(int64(bits.TrailingZeros64(uint64(value.I64())))), nil
	case ir.PopcntInt64:
		return ir.NewI64Literal(int64(bits.OnesCount64(uint64(value.I64())))), nil
	case ir.EqZInt64:
		return bool32(value.I64() == 0), nil

	case ir.NegFloat32:
		return ir.NewF32Literal(-value.F32()), nil
	case ir.AbsFloat32:
		return ir.NewF32Literal(float32(math.Abs(float64(value.F32())))), nil
	case ir.SqrtFloat32:
		return ir.NewF32Literal(float32(math.Sqrt(float64(value.F32())))), nil

	case ir.NegFloat64:
		return ir.NewF64Literal(-value.F64()), nil
	case ir.AbsFloat64:
		return ir.NewF64Literal(math.Abs(value.F64())), nil
	case ir.SqrtFloat64:
		return ir.NewF64Literal(math.Sqrt(value.F64())), nil

	case ir.WrapInt64:
		return ir.NewI32Literal(int32(value.I64())), nil
	case ir.ExtendSInt32:
		return ir.NewI64Literal(int64(value.I32())), nil
	case ir.ExtendUInt32:
		return ir.NewI64Literal(int64(uint32(value.I32()))), nil
	}

	panic(errors.NewUnreachableError())
}

func evaluateBinary(op ir.BinaryOp, left, right ir.Literal) (ir.Literal, error) {
	switch op {
	case ir.AddInt32:
		return ir.NewI32Literal(left.I32() + right.I32()), nil
	case ir.SubInt32:
		return ir.NewI32Literal(left.I32() - right.I32()), nil
	case ir.MulInt32:
		return ir.NewI32Literal(left.I32() * right.I32()), nil
	case ir.DivSInt32:
		if right.I32() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		if left.I32() == math.MinInt32 && right.I32() == -1 {
			return void, TrapError{Message: "integer overflow"}
		}
		return ir.NewI32Literal(left.I32() / right.I32()), nil
	case ir.DivUInt32:
		if right.I32() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		return ir.NewI32Literal(int32(uint32(left.I32()) / uint32(right.I32()))), nil
	case ir.RemSInt32:
		if right.I32() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		if left.I32() == math.MinInt32 && right.I32() == -1 {
			// the one case where / traps but % is defined
			return ir.NewI32Literal(0), nil
		}
		return ir.NewI32Literal(left.I32() % right.I32()), nil
	case ir.RemUInt32:
		if right.I32() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		return ir.NewI32Literal(int32(uint32(left.I32()) % uint32(right.I32()))), nil
	case ir.AndInt32:
		return ir.NewI32Literal(left.I32() & right.I32()), nil
	case ir.OrInt32:
		return ir.NewI32Literal(left.I32() | right.I32()), nil
	case ir.XorInt32:
		return ir.NewI32Literal(left.I32() ^ right.I32()), nil
	case ir.ShlInt32:
		return ir.NewI32Literal(left.I32() << (uint32(right.I32()) & 31)), nil
	case ir.ShrSInt32:
		return ir.NewI32Literal(left.I32() >> (uint32(right.I32()) & 31)), nil
	case ir.ShrUInt32:
		return ir.NewI32Literal(int32(uint32(left.I32()) >> (uint32(right.I32()) & 31))), nil

	case ir.EqInt32:
		return bool32(left.I32() == right.I32()), nil
	case ir.NeInt32:
		return bool32(left.I32() != right.I32()), nil
	case ir.LtSInt32:
		return bool32(left.I32() < right.I32()), nil
	case ir.LtUInt32:
		return bool32(uint32(left.I32()) < uint32(right.I32())), nil
	case ir.LeSInt32:
		return bool32(left.I32() <= right.I32()), nil
	case ir.LeUInt32:
		return bool32(uint32(left.I32()) <= uint32(right.I32())), nil
	case ir.GtSInt32:
		return bool32(left.I32() > right.I32()), nil
	case ir.GtUInt32:
		return bool32(uint32(left.I32()) > uint32(right.I32())), nil
	case ir.GeSInt32:
		return bool32(left.I32() >= right.I32()), nil
	case ir.GeUInt32:
		return bool32(uint32(left.I32()) >= uint32(right.I32())), nil

	case ir.AddInt64:
		return ir.NewI64Literal(left.I64() + right.I64()), nil
	case ir.SubInt64:
		return ir.NewI64Literal(left.I64() - right.I64()), nil
	case ir.MulInt64:
		return ir.NewI64Literal(left.I64() * right.I64()), nil
	case ir.DivSInt64:
		if right.I64() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		if left.I64() == math.MinInt64 && right.I64() == -1 {
			return void, TrapError{Message: "integer overflow"}
		}
		return ir.NewI64Literal(left.I64() / right.I64()), nil
	case ir.DivUInt64:
		if right.I64() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		return ir.NewI64Literal(int64(uint64(left.I64()) / uint64(right.I64()))), nil
	case ir.RemSInt64:
		if right.I64() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		if left.I64() == math.MinInt64 && right.I64() == -1 {
			return ir.NewI64Literal(0), nil
		}
		return ir.NewI64Literal(left.I64() % right.I64()), nil
	case ir.RemUInt64:
		if right.I64() == 0 {
			return void, TrapError{Message: "integer division by zero"}
		}
		return ir.NewI64Literal(int64(uint64(left.I64()) % uint64(right.I64()))), nil
	case ir.AndInt64:
		return ir.NewI64Literal(left.I64() & right.I64()), nil
	case ir.OrInt64:
		return ir.NewI64Literal(left.I64() | right.I64()), nil
	case ir.XorInt64:
		return ir.NewI64Literal(left.I64() ^ right.I64()), nil
	case ir.ShlInt64:
		return ir.NewI64Literal(left.I64() << (uint64(right.I64()) & 63)), nil
	case ir.ShrSInt64:
		return ir.NewI64Literal(left.I64() >> (uint64(right.I64()) & 63)), nil
	case ir.ShrUInt64:
		return ir.NewI64Literal(int64(uint64(left.I64()) >> (uint64(right.I64()) & 63))), nil

	case ir.EqInt64:
		return bool32(left.I64() == right.I64()), nil
	case ir.NeInt64:
		return bool32(left.I64() != right.I64()), nil
	case ir.LtSInt64:
		return bool32(left.I64() < right.I64()), nil
	case ir.LtUInt64:
		return bool32(uint64(left.I64()) < uint64(right.I64())), nil
	case ir.LeSInt64:
		return bool32(left.I64() <= right.I64()), nil
	case ir.LeUInt64:
		return bool32(uint64(left.I64()) <= uint64(right.I64())), nil
	case ir.GtSInt64:
		return bool32(left.I64() > right.I64()), nil
	case ir.GtUInt64:
		return bool32(uint64(left.I64()) > uint64(right.I64())), nil
	case ir.GeSInt64:
		return bool32(left.I64() >= right.I64()), nil
	case ir.GeUInt64:
		return bool32(uint64(left.I64()) >= uint64(right.I64())), nil

	case ir.AddFloat32:
		return ir.NewF32Literal(left.F32() + right.F32()), nil
	case ir.SubFloat32:
		return ir.NewF32Literal(left.F32() - right.F32()), nil
	case ir.MulFloat32:
		return ir.NewF32Literal(left.F32() * right.F32()), nil
	case ir.DivFloat32:
		return ir.NewF32Literal(left.F32() / right.F32()), nil
	case ir.MinFloat32:
		return ir.NewF32Literal(float32(floatMin(float64(left.F32()), float64(right.F32())))), nil
	case ir.MaxFloat32:
		return ir.NewF32Literal(float32(floatMax(float64(left.F32()), float64(right.F32())))), nil

	case ir.EqFloat32:
		return bool32(left.F32() == right.F32()), nil
	case ir.NeFloat32:
		return bool32(left.F32() != right.F32()), nil

	case ir.AddFloat64:
		return ir.NewF64Literal(left.F64() + right.F64()), nil
	case ir.SubFloat64:
		return ir.NewF64Literal(left.F64() - right.F64()), nil
	case ir.MulFloat64:
		return ir.NewF64Literal(left.F64() * right.F64()), nil
	case ir.DivFloat64:
		return ir.NewF64Literal(left.F64() / right.F64()), nil
	case ir.MinFloat64:
		return ir.NewF64Literal(floatMin(left.F64(), right.F64())), nil
	case ir.MaxFloat64:
		return ir.NewF64Literal(floatMax(left.F64(), right.F64())), nil

	case ir.EqFloat64:
		return bool32(left.F64() == right.F64()), nil
	case ir.NeFloat64:
		return bool32(left.F64() != right.F64()), nil
	}

	panic(errors.NewUnreachableError())
}

func bool32(value bool) ir.Literal {
	if value {
		return ir.NewI32Literal(1)
	}
	return ir.NewI32Literal(0)
}

// floatMin and floatMax order -0 before +0 and let NaN win,
// unlike a plain < or > selection.
func floatMin(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case x < y:
		return x
	case y < x:
		return y
	case math.Signbit(x):
		return x
	default:
		return y
	}
}

func floatMax(x, y float64) float64 {
	switch {
	case math.IsNaN(x) || math.IsNaN(y):
		return math.NaN()
	case x > y:
		return x
	case y > x:
		return y
	case math.Signbit(x):
		return y
	default:
		return x
	}
}
