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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy(t *testing.T) {

	t.Parallel()

	original := &Block{
		Label: "out",
		List: []Expression{
			&If{
				Condition: &GlobalGet{Name: "c", ValueType: I32},
				IfTrue: &Break{
					Label: "out",
					Condition: &Unary{
						Op:    EqZInt32,
						Value: &GlobalGet{Name: "c", ValueType: I32},
					},
				},
			},
			&Select{
				IfTrue:    &Const{Value: NewI32Literal(1)},
				IfFalse:   &Const{Value: NewI32Literal(2)},
				Condition: &GlobalGet{Name: "c", ValueType: I32},
			},
		},
	}

	copied := Copy(original)

	t.Run("equal", func(t *testing.T) {
		t.Parallel()

		assert.True(t, Equal(original, copied))
	})

	t.Run("independent", func(t *testing.T) {
		t.Parallel()

		copiedBlock, ok := copied.(*Block)
		require.True(t, ok)
		assert.NotSame(t, original, copiedBlock)

		copiedIf, ok := copiedBlock.List[0].(*If)
		require.True(t, ok)
		assert.NotSame(t, original.List[0], copiedIf)

		// mutating the copy must not affect the original
		copiedIf.Condition = &Const{Value: NewI32Literal(0)}
		originalIf := original.List[0].(*If)
		assert.IsType(t, &GlobalGet{}, originalIf.Condition)
	})

	t.Run("nil optional children stay nil", func(t *testing.T) {
		t.Parallel()

		copiedIf := copied.(*Block).List[0].(*If)
		assert.Nil(t, copiedIf.IfFalse)

		copiedBreak := copiedIf.IfTrue.(*Break)
		assert.Nil(t, copiedBreak.Value)
		assert.NotNil(t, copiedBreak.Condition)
	})

	t.Run("nil expression", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, Copy(nil))
	})
}

func TestFlexibleCopy(t *testing.T) {

	t.Parallel()

	replacement := &GlobalGet{Name: "x", ValueType: I32}

	original := &Binary{
		Op: AddInt32,
		Left: &Call{
			Target: "wildcard",
			Operands: []Expression{
				&Const{Value: NewI32Literal(0)},
			},
			Result: I32,
		},
		Right: &Const{Value: NewI32Literal(3)},
	}

	copied := FlexibleCopy(
		original,
		func(expression Expression) Expression {
			if call, ok := expression.(*Call); ok && call.Target == "wildcard" {
				return replacement
			}
			return nil
		},
	)

	copiedBinary, ok := copied.(*Binary)
	require.True(t, ok)

	assert.Same(t, replacement, copiedBinary.Left)
	assert.True(t, Equal(original.Right, copiedBinary.Right))
	assert.NotSame(t, original.Right, copiedBinary.Right)
}
