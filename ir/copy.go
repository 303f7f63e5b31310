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

// CopyEscape is offered each node during a copy.
// Returning a non-nil expression substitutes it for the node
// (and its whole subtree); returning nil continues the normal deep copy.
type CopyEscape func(Expression) Expression

// Copy returns a deep copy of the expression.
func Copy(expression Expression) Expression {
	return FlexibleCopy(expression, nil)
}

// FlexibleCopy is the deep copy behind Copy, with an escape hatch:
// a non-nil escape callback may substitute a replacement
// for any node it is offered. The substituter uses the escape
// to splice bound wildcard subtrees into a pattern's output.
func FlexibleCopy(expression Expression, escape CopyEscape) Expression {
	if expression == nil {
		return nil
	}

	if escape != nil {
		if replacement := escape(expression); replacement != nil {
			return replacement
		}
	}

	switch expression := expression.(type) {
	case *Block:
		list := make([]Expression, len(expression.List))
		for i, item := range expression.List {
			list[i] = FlexibleCopy(item, escape)
		}
		return &Block{
			Label: expression.Label,
			List:  list,
		}

	case *If:
		return &If{
			Condition: FlexibleCopy(expression.Condition, escape),
			IfTrue:    FlexibleCopy(expression.IfTrue, escape),
			IfFalse:   FlexibleCopy(expression.IfFalse, escape),
		}

	case *Break:
		return &Break{
			Label:     expression.Label,
			Condition: FlexibleCopy(expression.Condition, escape),
			Value:     FlexibleCopy(expression.Value, escape),
		}

	case *Call:
		operands := make([]Expression, len(expression.Operands))
		for i, operand := range expression.Operands {
			operands[i] = FlexibleCopy(operand, escape)
		}
		return &Call{
			Target:   expression.Target,
			Operands: operands,
			Result:   expression.Result,
		}

	case *GlobalGet:
		return &GlobalGet{
			Name:      expression.Name,
			ValueType: expression.ValueType,
		}

	case *GlobalSet:
		return &GlobalSet{
			Name:  expression.Name,
			Value: FlexibleCopy(expression.Value, escape),
		}

	case *Load:
		return &Load{
			Bytes:     expression.Bytes,
			Signed:    expression.Signed,
			Offset:    expression.Offset,
			Align:     expression.Align,
			Ptr:       FlexibleCopy(expression.Ptr, escape),
			ValueType: expression.ValueType,
		}

	case *Const:
		return &Const{
			Value: expression.Value,
		}

	case *Unary:
		return &Unary{
			Op:    expression.Op,
			Value: FlexibleCopy(expression.Value, escape),
		}

	case *Binary:
		return &Binary{
			Op:    expression.Op,
			Left:  FlexibleCopy(expression.Left, escape),
			Right: FlexibleCopy(expression.Right, escape),
		}

	case *Select:
		return &Select{
			IfTrue:    FlexibleCopy(expression.IfTrue, escape),
			IfFalse:   FlexibleCopy(expression.IfFalse, escape),
			Condition: FlexibleCopy(expression.Condition, escape),
		}

	case *Nop:
		return &Nop{}

	case *Unreachable:
		return &Unreachable{}
	}

	panic(errors.NewUnreachableError())
}
