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

// ValueType is the semantic value type of an expression:
// one of the four WebAssembly scalar types, or None for expressions
// that produce no value.
type ValueType uint8

const (
	None ValueType = iota
	I32
	I64
	F32
	F64
)

func (t ValueType) String() string {
	switch t {
	case None:
		return "none"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}

	panic(errors.NewUnreachableError())
}

// ValueTypeByName maps the textual type names of the wat format
// to value types.
var ValueTypeByName = map[string]ValueType{
	"i32": I32,
	"i64": I64,
	"f32": F32,
	"f64": F64,
}
