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

// EqualityEscape is offered each (left, right) node pair
// before structural comparison. Returning true claims the pair as equal
// and stops the descent at this position;
// returning false continues the normal structural comparison.
type EqualityEscape func(left, right Expression) bool

// Equal returns true if the two expressions are structurally equal,
// comparing by value, not identity.
func Equal(left, right Expression) bool {
	return FlexibleEqual(left, right, nil)
}

// FlexibleEqual is the structural equality walk behind Equal,
// with an escape hatch: a non-nil escape callback may claim
// any node pair as equal without descending into it.
// The pattern matcher uses the escape to bind wildcards.
func FlexibleEqual(left, right Expression, escape EqualityEscape) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}

	if escape != nil && escape(left, right) {
		return true
	}

	if left.Kind() != right.Kind() {
		return false
	}

	switch left := left.(type) {
	case *Block:
		right := right.(*Block)
		if left.Label != right.Label ||
			len(left.List) != len(right.List) {

			return false
		}
		for i, item := range left.List {
			if !FlexibleEqual(item, right.List[i], escape) {
				return false
			}
		}
		return true

	case *If:
		right := right.(*If)
		return FlexibleEqual(left.Condition, right.Condition, escape) &&
			FlexibleEqual(left.IfTrue, right.IfTrue, escape) &&
			FlexibleEqual(left.IfFalse, right.IfFalse, escape)

	case *Break:
		right := right.(*Break)
		return left.Label == right.Label &&
			FlexibleEqual(left.Condition, right.Condition, escape) &&
			FlexibleEqual(left.Value, right.Value, escape)

	case *Call:
		right := right.(*Call)
		if left.Target != right.Target ||
			len(left.Operands) != len(right.Operands) {

			return false
		}
		for i, operand := range left.Operands {
			if !FlexibleEqual(operand, right.Operands[i], escape) {
				return false
			}
		}
		return true

	case *GlobalGet:
		right := right.(*GlobalGet)
		return left.Name == right.Name

	case *GlobalSet:
		right := right.(*GlobalSet)
		return left.Name == right.Name &&
			FlexibleEqual(left.Value, right.Value, escape)

	case *Load:
		right := right.(*Load)
		return left.Bytes == right.Bytes &&
			left.Signed == right.Signed &&
			left.Offset == right.Offset &&
			left.Align == right.Align &&
			left.ValueType == right.ValueType &&
			FlexibleEqual(left.Ptr, right.Ptr, escape)

	case *Const:
		right := right.(*Const)
		return left.Value.Equal(right.Value)

	case *Unary:
		right := right.(*Unary)
		return left.Op == right.Op &&
			FlexibleEqual(left.Value, right.Value, escape)

	case *Binary:
		right := right.(*Binary)
		return left.Op == right.Op &&
			FlexibleEqual(left.Left, right.Left, escape) &&
			FlexibleEqual(left.Right, right.Right, escape)

	case *Select:
		right := right.(*Select)
		return FlexibleEqual(left.IfTrue, right.IfTrue, escape) &&
			FlexibleEqual(left.IfFalse, right.IfFalse, escape) &&
			FlexibleEqual(left.Condition, right.Condition, escape)

	case *Nop:
		return true

	case *Unreachable:
		return true
	}

	panic(errors.NewUnreachableError())
}
