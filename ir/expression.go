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

// Package ir contains the expression tree the optimizer operates on.
// All nodes implement the Expression interface,
// have a kind usable as a dispatch key and a semantic value type,
// and can be structurally compared, deep-copied, and analyzed for
// side effects.
package ir

import (
	"fmt"

	"github.com/turbolent/prettier"

	"github.com/wasmkit/wopt/errors"
)

// ExpressionKind identifies an expression's operation kind.
// It is used as the key for rewrite-rule lookup.
type ExpressionKind uint8

const (
	UnknownKind ExpressionKind = iota
	BlockKind
	IfKind
	BreakKind
	CallKind
	GlobalGetKind
	GlobalSetKind
	LoadKind
	ConstKind
	UnaryKind
	BinaryKind
	SelectKind
	NopKind
	UnreachableKind
)

func (k ExpressionKind) String() string {
	switch k {
	case BlockKind:
		return "block"
	case IfKind:
		return "if"
	case BreakKind:
		return "break"
	case CallKind:
		return "call"
	case GlobalGetKind:
		return "global.get"
	case GlobalSetKind:
		return "global.set"
	case LoadKind:
		return "load"
	case ConstKind:
		return "const"
	case UnaryKind:
		return "unary"
	case BinaryKind:
		return "binary"
	case SelectKind:
		return "select"
	case NopKind:
		return "nop"
	case UnreachableKind:
		return "unreachable"
	}

	panic(errors.NewUnreachableError())
}

type Expression interface {
	fmt.Stringer
	isExpression()
	Kind() ExpressionKind
	Type() ValueType
	Doc() prettier.Doc
}

// Block

// Block is a sequence of expressions, with an optional label
// that inner breaks may target. Its value is the value of the
// last expression in the list.
type Block struct {
	Label string
	List  []Expression
}

var _ Expression = &Block{}

func (*Block) isExpression() {}

func (*Block) Kind() ExpressionKind {
	return BlockKind
}

func (b *Block) Type() ValueType {
	if len(b.List) == 0 {
		return None
	}
	return b.List[len(b.List)-1].Type()
}

func (b *Block) Doc() prettier.Doc {
	parts := []prettier.Doc{prettier.Text("block")}
	if b.Label != "" {
		parts = append(parts, prettier.Text("$"+b.Label))
	}
	children := make([]prettier.Doc, 0, len(b.List))
	for _, item := range b.List {
		children = append(children, item.Doc())
	}
	return sexprDoc(parts, children)
}

func (b *Block) String() string {
	return Format(b)
}

// If

// If is a conditional with one or two arms.
// IfFalse may be nil.
type If struct {
	Condition Expression
	IfTrue    Expression
	IfFalse   Expression
}

var _ Expression = &If{}

func (*If) isExpression() {}

func (*If) Kind() ExpressionKind {
	return IfKind
}

func (e *If) Type() ValueType {
	if e.IfFalse == nil {
		return None
	}
	trueType := e.IfTrue.Type()
	if trueType != e.IfFalse.Type() {
		return None
	}
	return trueType
}

func (e *If) Doc() prettier.Doc {
	children := []prettier.Doc{
		e.Condition.Doc(),
		sexprDoc(
			[]prettier.Doc{prettier.Text("then")},
			[]prettier.Doc{e.IfTrue.Doc()},
		),
	}
	if e.IfFalse != nil {
		children = append(
			children,
			sexprDoc(
				[]prettier.Doc{prettier.Text("else")},
				[]prettier.Doc{e.IfFalse.Doc()},
			),
		)
	}
	return sexprDoc([]prettier.Doc{prettier.Text("if")}, children)
}

func (e *If) String() string {
	return Format(e)
}

// Break

// Break is a branch to an enclosing block's label.
// If Condition is non-nil the branch is conditional.
// Value is the optional value carried to the target.
type Break struct {
	Label     string
	Condition Expression
	Value     Expression
}

var _ Expression = &Break{}

func (*Break) isExpression() {}

func (*Break) Kind() ExpressionKind {
	return BreakKind
}

func (*Break) Type() ValueType {
	return None
}

func (e *Break) Doc() prettier.Doc {
	name := "br"
	if e.Condition != nil {
		name = "br_if"
	}
	parts := []prettier.Doc{
		prettier.Text(name),
		prettier.Text("$" + e.Label),
	}
	var children []prettier.Doc
	if e.Value != nil {
		children = append(children, e.Value.Doc())
	}
	if e.Condition != nil {
		children = append(children, e.Condition.Doc())
	}
	return sexprDoc(parts, children)
}

func (e *Break) String() string {
	return Format(e)
}

// Call

// Call is a call to a named function, typically an import.
// The optimizer does not look into call targets:
// the reserved wildcard targets of the pattern rule set
// are encoded as calls, and all other calls are opaque.
type Call struct {
	Target   string
	Operands []Expression
	// Result is the declared result type of the target,
	// resolved when the expression is built
	Result ValueType
}

var _ Expression = &Call{}

func (*Call) isExpression() {}

func (*Call) Kind() ExpressionKind {
	return CallKind
}

func (e *Call) Type() ValueType {
	return e.Result
}

func (e *Call) Doc() prettier.Doc {
	parts := []prettier.Doc{
		prettier.Text("call"),
		prettier.Text("$" + e.Target),
	}
	children := make([]prettier.Doc, 0, len(e.Operands))
	for _, operand := range e.Operands {
		children = append(children, operand.Doc())
	}
	return sexprDoc(parts, children)
}

func (e *Call) String() string {
	return Format(e)
}

// GlobalGet

// GlobalGet reads a named global variable.
type GlobalGet struct {
	Name string
	// ValueType is the declared type of the global,
	// resolved when the expression is built
	ValueType ValueType
}

var _ Expression = &GlobalGet{}

func (*GlobalGet) isExpression() {}

func (*GlobalGet) Kind() ExpressionKind {
	return GlobalGetKind
}

func (e *GlobalGet) Type() ValueType {
	return e.ValueType
}

func (e *GlobalGet) Doc() prettier.Doc {
	return sexprDoc(
		[]prettier.Doc{
			prettier.Text("global.get"),
			prettier.Text("$" + e.Name),
		},
		nil,
	)
}

func (e *GlobalGet) String() string {
	return Format(e)
}

// GlobalSet

// GlobalSet writes a named global variable.
type GlobalSet struct {
	Name  string
	Value Expression
}

var _ Expression = &GlobalSet{}

func (*GlobalSet) isExpression() {}

func (*GlobalSet) Kind() ExpressionKind {
	return GlobalSetKind
}

func (*GlobalSet) Type() ValueType {
	return None
}

func (e *GlobalSet) Doc() prettier.Doc {
	return sexprDoc(
		[]prettier.Doc{
			prettier.Text("global.set"),
			prettier.Text("$" + e.Name),
		},
		[]prettier.Doc{e.Value.Doc()},
	)
}

func (e *GlobalSet) String() string {
	return Format(e)
}

// Load

// Load reads Bytes bytes of memory at Ptr plus Offset.
// A load narrower than the value type is zero-extended,
// or sign-extended if Signed is set.
type Load struct {
	Bytes     uint8
	Signed    bool
	Offset    uint32
	Align     uint32
	Ptr       Expression
	ValueType ValueType
}

var _ Expression = &Load{}

func (*Load) isExpression() {}

func (*Load) Kind() ExpressionKind {
	return LoadKind
}

func (e *Load) Type() ValueType {
	return e.ValueType
}

func (e *Load) mnemonic() string {
	name := e.ValueType.String() + ".load"
	var full uint8 = 4
	if e.ValueType == I64 || e.ValueType == F64 {
		full = 8
	}
	if e.Bytes < full {
		name += fmt.Sprintf("%d", e.Bytes*8)
		if e.Signed {
			name += "_s"
		} else {
			name += "_u"
		}
	}
	return name
}

func (e *Load) Doc() prettier.Doc {
	parts := []prettier.Doc{prettier.Text(e.mnemonic())}
	if e.Offset != 0 {
		parts = append(parts, prettier.Text(fmt.Sprintf("offset=%d", e.Offset)))
	}
	if e.Align != 0 {
		parts = append(parts, prettier.Text(fmt.Sprintf("align=%d", e.Align)))
	}
	return sexprDoc(parts, []prettier.Doc{e.Ptr.Doc()})
}

func (e *Load) String() string {
	return Format(e)
}

// Const

// Const is a typed scalar constant.
type Const struct {
	Value Literal
}

var _ Expression = &Const{}

func (*Const) isExpression() {}

func (*Const) Kind() ExpressionKind {
	return ConstKind
}

func (e *Const) Type() ValueType {
	return e.Value.ValueType
}

func (e *Const) Doc() prettier.Doc {
	return sexprDoc(
		[]prettier.Doc{
			prettier.Text(e.Value.ValueType.String() + ".const"),
			prettier.Text(e.Value.String()),
		},
		nil,
	)
}

func (e *Const) String() string {
	return Format(e)
}

// Unary

type Unary struct {
	Op    UnaryOp
	Value Expression
}

var _ Expression = &Unary{}

func (*Unary) isExpression() {}

func (*Unary) Kind() ExpressionKind {
	return UnaryKind
}

func (e *Unary) Type() ValueType {
	return e.Op.ResultType()
}

func (e *Unary) Doc() prettier.Doc {
	return sexprDoc(
		[]prettier.Doc{prettier.Text(e.Op.String())},
		[]prettier.Doc{e.Value.Doc()},
	)
}

func (e *Unary) String() string {
	return Format(e)
}

// Binary

type Binary struct {
	Op    BinaryOp
	Left  Expression
	Right Expression
}

var _ Expression = &Binary{}

func (*Binary) isExpression() {}

func (*Binary) Kind() ExpressionKind {
	return BinaryKind
}

func (e *Binary) Type() ValueType {
	return e.Op.ResultType()
}

func (e *Binary) Doc() prettier.Doc {
	return sexprDoc(
		[]prettier.Doc{prettier.Text(e.Op.String())},
		[]prettier.Doc{e.Left.Doc(), e.Right.Doc()},
	)
}

func (e *Binary) String() string {
	return Format(e)
}

// Select

// Select evaluates both value arms and the condition,
// and produces the first arm if the condition is non-zero,
// the second otherwise.
type Select struct {
	IfTrue    Expression
	IfFalse   Expression
	Condition Expression
}

var _ Expression = &Select{}

func (*Select) isExpression() {}

func (*Select) Kind() ExpressionKind {
	return SelectKind
}

func (e *Select) Type() ValueType {
	return e.IfTrue.Type()
}

func (e *Select) Doc() prettier.Doc {
	return sexprDoc(
		[]prettier.Doc{prettier.Text("select")},
		[]prettier.Doc{
			e.IfTrue.Doc(),
			e.IfFalse.Doc(),
			e.Condition.Doc(),
		},
	)
}

func (e *Select) String() string {
	return Format(e)
}

// Nop

type Nop struct{}

var _ Expression = &Nop{}

func (*Nop) isExpression() {}

func (*Nop) Kind() ExpressionKind {
	return NopKind
}

func (*Nop) Type() ValueType {
	return None
}

func (*Nop) Doc() prettier.Doc {
	return prettier.Text("(nop)")
}

func (e *Nop) String() string {
	return Format(e)
}

// Unreachable

type Unreachable struct{}

var _ Expression = &Unreachable{}

func (*Unreachable) isExpression() {}

func (*Unreachable) Kind() ExpressionKind {
	return UnreachableKind
}

func (*Unreachable) Type() ValueType {
	return None
}

func (*Unreachable) Doc() prettier.Doc {
	return prettier.Text("(unreachable)")
}

func (e *Unreachable) String() string {
	return Format(e)
}
