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

// ChildSlots returns pointers to the expression's direct child slots,
// in evaluation order, skipping absent optional children.
// Writing through a slot replaces the child in the parent,
// so a walker can substitute a child without knowing the parent's shape.
func ChildSlots(expression Expression) []*Expression {
	switch expression := expression.(type) {
	case *Block:
		slots := make([]*Expression, len(expression.List))
		for i := range expression.List {
			slots[i] = &expression.List[i]
		}
		return slots

	case *If:
		slots := []*Expression{
			&expression.Condition,
			&expression.IfTrue,
		}
		if expression.IfFalse != nil {
			slots = append(slots, &expression.IfFalse)
		}
		return slots

	case *Break:
		var slots []*Expression
		if expression.Value != nil {
			slots = append(slots, &expression.Value)
		}
		if expression.Condition != nil {
			slots = append(slots, &expression.Condition)
		}
		return slots

	case *Call:
		slots := make([]*Expression, len(expression.Operands))
		for i := range expression.Operands {
			slots[i] = &expression.Operands[i]
		}
		return slots

	case *GlobalGet:
		return nil

	case *GlobalSet:
		return []*Expression{&expression.Value}

	case *Load:
		return []*Expression{&expression.Ptr}

	case *Const:
		return nil

	case *Unary:
		return []*Expression{&expression.Value}

	case *Binary:
		return []*Expression{
			&expression.Left,
			&expression.Right,
		}

	case *Select:
		return []*Expression{
			&expression.IfTrue,
			&expression.IfFalse,
			&expression.Condition,
		}

	case *Nop:
		return nil

	case *Unreachable:
		return nil
	}

	panic(errors.NewUnreachableError())
}
