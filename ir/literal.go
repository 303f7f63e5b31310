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
	"math"
	"strconv"

	"github.com/wasmkit/wopt/errors"
)

// Literal is a typed scalar constant.
// The value is stored in the 64-bit payload,
// reinterpreted according to the literal's type.
type Literal struct {
	ValueType ValueType
	bits      uint64
}

func NewI32Literal(value int32) Literal {
	return Literal{ValueType: I32, bits: uint64(uint32(value))}
}

func NewI64Literal(value int64) Literal {
	return Literal{ValueType: I64, bits: uint64(value)}
}

func NewF32Literal(value float32) Literal {
	return Literal{ValueType: F32, bits: uint64(math.Float32bits(value))}
}

func NewF64Literal(value float64) Literal {
	return Literal{ValueType: F64, bits: math.Float64bits(value)}
}

func (l Literal) I32() int32 {
	if l.ValueType != I32 {
		panic(errors.NewUnexpectedError("literal is not an i32: %s", l.ValueType))
	}
	return int32(uint32(l.bits))
}

func (l Literal) I64() int64 {
	if l.ValueType != I64 {
		panic(errors.NewUnexpectedError("literal is not an i64: %s", l.ValueType))
	}
	return int64(l.bits)
}

func (l Literal) F32() float32 {
	if l.ValueType != F32 {
		panic(errors.NewUnexpectedError("literal is not an f32: %s", l.ValueType))
	}
	return math.Float32frombits(uint32(l.bits))
}

func (l Literal) F64() float64 {
	if l.ValueType != F64 {
		panic(errors.NewUnexpectedError("literal is not an f64: %s", l.ValueType))
	}
	return math.Float64frombits(l.bits)
}

// Equal compares two literals bit-wise,
// so NaN payloads are significant and NaN == NaN holds,
// matching structural expression equality.
func (l Literal) Equal(other Literal) bool {
	return l.ValueType == other.ValueType &&
		l.bits == other.bits
}

func (l Literal) String() string {
	switch l.ValueType {
	case I32:
		return strconv.FormatInt(int64(l.I32()), 10)
	case I64:
		return strconv.FormatInt(l.I64(), 10)
	case F32:
		return strconv.FormatFloat(float64(l.F32()), 'g', -1, 32)
	case F64:
		return strconv.FormatFloat(l.F64(), 'g', -1, 64)
	}

	panic(errors.NewUnreachableError())
}
