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

package ir

import (
	"github.com/wasmkit/wopt/errors"
)

// UnaryOp is a unary operation on a single operand.
type UnaryOp uint8

const (
	UnknownUnaryOp UnaryOp = iota

	ClzInt32
	CtzInt32
	PopcntInt32
	EqZInt32

	ClzInt64
	CtzInt64
	PopcntInt64
	EqZInt64

	NegFloat32
	AbsFloat32
	SqrtFloat32

	NegFloat64
	AbsFloat64
	SqrtFloat64

	WrapInt64
	ExtendSInt32
	ExtendUInt32
)

var unaryOpNames = map[UnaryOp]string{
	ClzInt32:     "i32.clz",
	CtzInt32:     "i32.ctz",
	PopcntInt32:  "i32.popcnt",
	EqZInt32:     "i32.eqz",
	ClzInt64:     "i64.clz",
	CtzInt64:     "i64.ctz",
	PopcntInt64:  "i64.popcnt",
	EqZInt64:     "i64.eqz",
	NegFloat32:   "f32.neg",
	AbsFloat32:   "f32.abs",
	SqrtFloat32:  "f32.sqrt",
	NegFloat64:   "f64.neg",
	AbsFloat64:   "f64.abs",
	SqrtFloat64:  "f64.sqrt",
	WrapInt64:    "i32.wrap_i64",
	ExtendSInt32: "i64.extend_i32_s",
	ExtendUInt32: "i64.extend_i32_u",
}

// UnaryOpByName maps wat mnemonics to unary operations.
var UnaryOpByName = map[string]UnaryOp{}

func init() {
	for op, name := range unaryOpNames {
		UnaryOpByName[name] = op
	}
}

func (op UnaryOp) String() string {
	name, ok := unaryOpNames[op]
	if !ok {
		panic(errors.NewUnreachableError())
	}
	return name
}

// ResultType returns the value type the operation produces.
func (op UnaryOp) ResultType() ValueType {
	switch op {
	case ClzInt32, CtzInt32, PopcntInt32,
		EqZInt32, EqZInt64,
		WrapInt64:
		return I32
	case ClzInt64, CtzInt64, PopcntInt64,
		ExtendSInt32, ExtendUInt32:
		return I64
	case NegFloat32, AbsFloat32, SqrtFloat32:
		return F32
	case NegFloat64, AbsFloat64, SqrtFloat64:
		return F64
	}

	panic(errors.NewUnreachableError())
}

// BinaryOp is a binary operation on two operands.
type BinaryOp uint8

const (
	UnknownBinaryOp BinaryOp = iota

	AddInt32
	SubInt32
	MulInt32
	DivSInt32
	DivUInt32
	RemSInt32
	RemUInt32
	AndInt32
	OrInt32
	XorInt32
	ShlInt32
	ShrSInt32
	ShrUInt32

	EqInt32
	NeInt32
	LtSInt32
	LtUInt32
	LeSInt32
	LeUInt32
	GtSInt32
	GtUInt32
	GeSInt32
	GeUInt32

	AddInt64
	SubInt64
	MulInt64
	DivSInt64
	DivUInt64
	RemSInt64
	RemUInt64
	AndInt64
	OrInt64
	XorInt64
	ShlInt64
	ShrSInt64
	ShrUInt64

	EqInt64
	NeInt64
	LtSInt64
	LtUInt64
	LeSInt64
	LeUInt64
	GtSInt64
	GtUInt64
	GeSInt64
	GeUInt64

	AddFloat32
	SubFloat32
	MulFloat32
	DivFloat32
	MinFloat32
	MaxFloat32

	EqFloat32
	NeFloat32

	AddFloat64
	SubFloat64
	MulFloat64
	DivFloat64
	MinFloat64
	MaxFloat64

	EqFloat64
	NeFloat64
)

var binaryOpNames = map[BinaryOp]string{
	AddInt32:  "i32.add",
	SubInt32:  "i32.sub",
	MulInt32:  "i32.mul",
	DivSInt32: "i32.div_s",
	DivUInt32: "i32.div_u",
	RemSInt32: "i32.rem_s",
	RemUInt32: "i32.rem_u",
	AndInt32:  "i32.and",
	OrInt32:   "i32.or",
	XorInt32:  "i32.xor",
	ShlInt32:  "i32.shl",
	ShrSInt32: "i32.shr_s",
	ShrUInt32: "i32.shr_u",

	EqInt32:  "i32.eq",
	NeInt32:  "i32.ne",
	LtSInt32: "i32.lt_s",
	LtUInt32: "i32.lt_u",
	LeSInt32: "i32.le_s",
	LeUInt32: "i32.le_u",
	GtSInt32: "i32.gt_s",
	GtUInt32: "i32.gt_u",
	GeSInt32: "i32.ge_s",
	GeUInt32: "i32.ge_u",

	AddInt64:  "i64.add",
	SubInt64:  "i64.sub",
	MulInt64:  "i64.mul",
	DivSInt64: "i64.div_s",
	DivUInt64: "i64.div_u",
	RemSInt64: "i64.rem_s",
	RemUInt64: "i64.rem_u",
	AndInt64:  "i64.and",
	OrInt64:   "i64.or",
	XorInt64:  "i64.xor",
	ShlInt64:  "i64.shl",
	ShrSInt64: "i64.shr_s",
	ShrUInt64: "i64.shr_u",

	EqInt64:  "i64.eq",
	NeInt64:  "i64.ne",
	LtSInt64: "i64.lt_s",
	LtUInt64: "i64.lt_u",
	LeSInt64: "i64.le_s",
	LeUInt64: "i64.le_u",
	GtSInt64: "i64.gt_s",
	GtUInt64: "i64.gt_u",
	GeSInt64: "i64.ge_s",
	GeUInt64: "i64.ge_u",

	AddFloat32: "f32.add",
	SubFloat32: "f32.sub",
	MulFloat32: "f32.mul",
	DivFloat32: "f32.div",
	MinFloat32: "f32.min",
	MaxFloat32: "f32.max",

	EqFloat32: "f32.eq",
	NeFloat32: "f32.ne",

	AddFloat64: "f64.add",
	SubFloat64: "f64.sub",
	MulFloat64: "f64.mul",
	DivFloat64: "f64.div",
	MinFloat64: "f64.min",
	MaxFloat64: "f64.max",

	EqFloat64: "f64.eq",
	NeFloat64: "f64.ne",
}

// BinaryOpByName maps wat mnemonics to binary operations.
var BinaryOpByName = map[string]BinaryOp{}

func init() {
	for op, name := range binaryOpNames {
		BinaryOpByName[name] = op
	}
}

func (op BinaryOp) String() string {
	name, ok := binaryOpNames[op]
	if !ok {
		panic(errors.NewUnreachableError())
	}
	return name
}

// IsComparison returns true if the operation is a comparison,
// i.e. produces an i32 truth value from two operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case EqInt32, NeInt32,
		LtSInt32, LtUInt32, LeSInt32, LeUInt32,
		GtSInt32, GtUInt32, GeSInt32, GeUInt32,
		EqInt64, NeInt64,
		LtSInt64, LtUInt64, LeSInt64, LeUInt64,
		GtSInt64, GtUInt64, GeSInt64, GeUInt64,
		EqFloat32, NeFloat32,
		EqFloat64, NeFloat64:
		return true
	}
	return false
}

// Invert returns the logical complement of a comparison operation,
// i.e. the operation which produces the opposite truth value
// on the same operands. The second result is false for operations
// which have no complement in the instruction set.
func (op BinaryOp) Invert() (BinaryOp, bool) {
	switch op {
	case EqInt32:
		return NeInt32, true
	case NeInt32:
		return EqInt32, true
	case LtSInt32:
		return GeSInt32, true
	case LtUInt32:
		return GeUInt32, true
	case LeSInt32:
		return GtSInt32, true
	case LeUInt32:
		return GtUInt32, true
	case GtSInt32:
		return LeSInt32, true
	case GtUInt32:
		return LeUInt32, true
	case GeSInt32:
		return LtSInt32, true
	case GeUInt32:
		return LtUInt32, true

	case EqInt64:
		return NeInt64, true
	case NeInt64:
		return EqInt64, true
	case LtSInt64:
		return GeSInt64, true
	case LtUInt64:
		return GeUInt64, true
	case LeSInt64:
		return GtSInt64, true
	case LeUInt64:
		return GtUInt64, true
	case GtSInt64:
		return LeSInt64, true
	case GtUInt64:
		return LeUInt64, true
	case GeSInt64:
		return LtSInt64, true
	case GeUInt64:
		return LtUInt64, true

	case EqFloat32:
		return NeFloat32, true
	case NeFloat32:
		return EqFloat32, true

	case EqFloat64:
		return NeFloat64, true
	case NeFloat64:
		return EqFloat64, true
	}

	return UnknownBinaryOp, false
}

// OperandType returns the value type of the operation's operands.
func (op BinaryOp) OperandType() ValueType {
	switch op {
	case AddInt32, SubInt32, MulInt32,
		DivSInt32, DivUInt32, RemSInt32, RemUInt32,
		AndInt32, OrInt32, XorInt32,
		ShlInt32, ShrSInt32, ShrUInt32,
		EqInt32, NeInt32,
		LtSInt32, LtUInt32, LeSInt32, LeUInt32,
		GtSInt32, GtUInt32, GeSInt32, GeUInt32:
		return I32
	case AddInt64, SubInt64, MulInt64,
		DivSInt64, DivUInt64, RemSInt64, RemUInt64,
		AndInt64, OrInt64, XorInt64,
		ShlInt64, ShrSInt64, ShrUInt64,
		EqInt64, NeInt64,
		LtSInt64, LtUInt64, LeSInt64, LeUInt64,
		GtSInt64, GtUInt64, GeSInt64, GeUInt64:
		return I64
	case AddFloat32, SubFloat32, MulFloat32, DivFloat32,
		MinFloat32, MaxFloat32,
		EqFloat32, NeFloat32:
		return F32
	case AddFloat64, SubFloat64, MulFloat64, DivFloat64,
		MinFloat64, MaxFloat64,
		EqFloat64, NeFloat64:
		return F64
	}

	panic(errors.NewUnreachableError())
}

// ResultType returns the value type the operation produces.
// Comparisons produce an i32 truth value,
// all other operations produce their operand type.
func (op BinaryOp) ResultType() ValueType {
	if op.IsComparison() {
		return I32
	}
	return op.OperandType()
}
