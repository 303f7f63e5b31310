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

// Package parser reads the folded wat subset the optimizer works with:
// modules containing function imports, globals, and functions
// whose bodies are folded instructions.
package parser

import (
	"strconv"
	"strings"

	"github.com/wasmkit/wopt/ir"
)

// ParseModule parses the source text into a module.
func ParseModule(source string) (*ir.Module, error) {
	lex := newLexer(source)
	root, err := lex.readElement()
	if err != nil {
		return nil, err
	}
	if err := lex.skipSpaceAndComments(); err != nil {
		return nil, err
	}
	if !lex.eof() {
		return nil, NewSyntaxError(lex.position(), "unexpected content after module")
	}

	b := &builder{
		module:      &ir.Module{},
		results:     map[string]ir.ValueType{},
		globalTypes: map[string]ir.ValueType{},
	}
	if err := b.buildModule(root); err != nil {
		return nil, err
	}
	return b.module, nil
}

type builder struct {
	module *ir.Module
	// results maps a callable name to its declared result type
	results map[string]ir.ValueType
	// globalTypes maps a global name to its declared type
	globalTypes map[string]ir.ValueType
}

func (b *builder) buildModule(root *element) error {
	if !root.isList || len(root.list) == 0 ||
		root.list[0].atom != "module" {

		return NewSyntaxError(root.pos, "expected (module ...)")
	}

	fields := root.list[1:]

	// First pass: register signatures and global types,
	// so bodies can reference them regardless of declaration order.
	for _, field := range fields {
		if !field.isList || len(field.list) == 0 {
			return NewSyntaxError(field.pos, "expected module field")
		}
		switch field.list[0].atom {
		case "import":
			if err := b.registerImport(field); err != nil {
				return err
			}
		case "global":
			if err := b.registerGlobal(field); err != nil {
				return err
			}
		case "func":
			if err := b.registerFunction(field); err != nil {
				return err
			}
		case "memory":
			// declaration only, carries no information the optimizer uses
		default:
			return NewSyntaxError(
				field.pos,
				"unsupported module field %q",
				field.list[0].atom,
			)
		}
	}

	// Second pass: build global initializers and function bodies.
	globalIndex := 0
	functionIndex := 0
	for _, field := range fields {
		switch field.list[0].atom {
		case "global":
			global := b.module.Globals[globalIndex]
			globalIndex++
			if init := globalInitElement(field); init != nil {
				expression, err := b.buildExpression(init)
				if err != nil {
					return err
				}
				global.Init = expression
			}
		case "func":
			function := b.module.Functions[functionIndex]
			functionIndex++
			body, err := b.buildBody(functionBodyElements(field))
			if err != nil {
				return err
			}
			function.Body = body
		}
	}

	return nil
}

// registerImport handles
// (import "module" "field" (func $name (param T)* (result T)?))
func (b *builder) registerImport(field *element) error {
	if len(field.list) != 4 {
		return NewSyntaxError(field.pos, "malformed import")
	}
	moduleName := field.list[1]
	fieldName := field.list[2]
	descriptor := field.list[3]
	if !moduleName.quoted || !fieldName.quoted {
		return NewSyntaxError(field.pos, "malformed import")
	}
	if !descriptor.isList || len(descriptor.list) < 2 ||
		descriptor.list[0].atom != "func" {

		return NewSyntaxError(descriptor.pos, "only function imports are supported")
	}

	functionName, err := name(descriptor.list[1])
	if err != nil {
		return err
	}
	params, result, err := b.signature(descriptor.list[2:])
	if err != nil {
		return err
	}

	b.module.Imports = append(
		b.module.Imports,
		&ir.Import{
			Module:       moduleName.atom,
			Field:        fieldName.atom,
			FunctionName: functionName,
			Params:       params,
			Result:       result,
		},
	)
	b.results[functionName] = result
	return nil
}

// registerGlobal handles
// (global $name T init?) and (global $name (mut T) init?)
func (b *builder) registerGlobal(field *element) error {
	if len(field.list) < 3 {
		return NewSyntaxError(field.pos, "malformed global")
	}
	globalName, err := name(field.list[1])
	if err != nil {
		return err
	}

	typeElement := field.list[2]
	mutable := false
	typeName := typeElement.atom
	if typeElement.isList {
		if len(typeElement.list) != 2 ||
			typeElement.list[0].atom != "mut" {

			return NewSyntaxError(typeElement.pos, "malformed global type")
		}
		mutable = true
		typeName = typeElement.list[1].atom
	}
	valueType, ok := ir.ValueTypeByName[typeName]
	if !ok {
		return NewSyntaxError(typeElement.pos, "unknown type %q", typeName)
	}

	b.module.Globals = append(
		b.module.Globals,
		&ir.Global{
			Name:      globalName,
			ValueType: valueType,
			Mutable:   mutable,
		},
	)
	b.globalTypes[globalName] = valueType
	return nil
}

func globalInitElement(field *element) *element {
	if len(field.list) > 3 {
		return field.list[3]
	}
	return nil
}

// registerFunction handles the signature of
// (func $name (param T)* (result T)? body...)
func (b *builder) registerFunction(field *element) error {
	if len(field.list) < 2 {
		return NewSyntaxError(field.pos, "malformed function")
	}
	functionName, err := name(field.list[1])
	if err != nil {
		return err
	}

	var signatureElements []*element
	for _, item := range field.list[2:] {
		if !isSignatureElement(item) {
			break
		}
		signatureElements = append(signatureElements, item)
	}
	params, result, err := b.signature(signatureElements)
	if err != nil {
		return err
	}

	b.module.Functions = append(
		b.module.Functions,
		&ir.Function{
			Name:   functionName,
			Params: params,
			Result: result,
		},
	)
	b.results[functionName] = result
	return nil
}

func functionBodyElements(field *element) []*element {
	body := field.list[2:]
	for len(body) > 0 && isSignatureElement(body[0]) {
		body = body[1:]
	}
	return body
}

func isSignatureElement(item *element) bool {
	if !item.isList || len(item.list) == 0 {
		return false
	}
	head := item.list[0].atom
	return head == "param" || head == "result"
}

func (b *builder) signature(items []*element) ([]ir.ValueType, ir.ValueType, error) {
	var params []ir.ValueType
	result := ir.None
	for _, item := range items {
		if !item.isList || len(item.list) == 0 {
			return nil, ir.None, NewSyntaxError(item.pos, "malformed signature")
		}
		switch item.list[0].atom {
		case "param":
			for _, param := range item.list[1:] {
				if strings.HasPrefix(param.atom, "$") {
					continue
				}
				valueType, ok := ir.ValueTypeByName[param.atom]
				if !ok {
					return nil, ir.None, NewSyntaxError(
						param.pos,
						"unknown type %q",
						param.atom,
					)
				}
				params = append(params, valueType)
			}
		case "result":
			if len(item.list) != 2 {
				return nil, ir.None, NewSyntaxError(item.pos, "malformed result")
			}
			valueType, ok := ir.ValueTypeByName[item.list[1].atom]
			if !ok {
				return nil, ir.None, NewSyntaxError(
					item.pos,
					"unknown type %q",
					item.list[1].atom,
				)
			}
			result = valueType
		default:
			return nil, ir.None, NewSyntaxError(item.pos, "malformed signature")
		}
	}
	return params, result, nil
}

// buildBody wraps a function or arm body in a block,
// so a body is always a single expression.
func (b *builder) buildBody(items []*element) (ir.Expression, error) {
	block := &ir.Block{}
	for _, item := range items {
		expression, err := b.buildExpression(item)
		if err != nil {
			return nil, err
		}
		block.List = append(block.List, expression)
	}
	return block, nil
}

func (b *builder) buildExpression(elem *element) (ir.Expression, error) {
	if !elem.isList || len(elem.list) == 0 || elem.list[0].isList {
		return nil, NewSyntaxError(elem.pos, "expected instruction")
	}
	head := elem.list[0]
	operands := elem.list[1:]

	switch head.atom {
	case "block":
		return b.buildBlock(elem, operands)
	case "if":
		return b.buildIf(elem, operands)
	case "br", "br_if":
		return b.buildBreak(elem, head.atom, operands)
	case "call":
		return b.buildCall(elem, operands)
	case "global.get":
		return b.buildGlobalGet(elem, operands)
	case "global.set":
		return b.buildGlobalSet(elem, operands)
	case "select":
		return b.buildSelect(elem, operands)
	case "nop":
		return &ir.Nop{}, nil
	case "unreachable":
		return &ir.Unreachable{}, nil
	}

	if strings.HasSuffix(head.atom, ".const") {
		return b.buildConst(elem, head.atom, operands)
	}

	if load, ok := loadsByName[head.atom]; ok {
		return b.buildLoad(elem, load, operands)
	}

	if op, ok := ir.UnaryOpByName[head.atom]; ok {
		if len(operands) != 1 {
			return nil, NewSyntaxError(elem.pos, "%s expects one operand", head.atom)
		}
		value, err := b.buildExpression(operands[0])
		if err != nil {
			return nil, err
		}
		return &ir.Unary{Op: op, Value: value}, nil
	}

	if op, ok := ir.BinaryOpByName[head.atom]; ok {
		if len(operands) != 2 {
			return nil, NewSyntaxError(elem.pos, "%s expects two operands", head.atom)
		}
		left, err := b.buildExpression(operands[0])
		if err != nil {
			return nil, err
		}
		right, err := b.buildExpression(operands[1])
		if err != nil {
			return nil, err
		}
		return &ir.Binary{Op: op, Left: left, Right: right}, nil
	}

	return nil, NewSyntaxError(head.pos, "unknown instruction %q", head.atom)
}

func (b *builder) buildBlock(elem *element, operands []*element) (ir.Expression, error) {
	block := &ir.Block{}
	if len(operands) > 0 && strings.HasPrefix(operands[0].atom, "$") {
		block.Label = operands[0].atom[1:]
		operands = operands[1:]
	}
	for _, item := range operands {
		expression, err := b.buildExpression(item)
		if err != nil {
			return nil, err
		}
		block.List = append(block.List, expression)
	}
	return block, nil
}

func (b *builder) buildIf(elem *element, operands []*element) (ir.Expression, error) {
	if len(operands) < 2 {
		return nil, NewSyntaxError(elem.pos, "malformed if")
	}
	condition, err := b.buildExpression(operands[0])
	if err != nil {
		return nil, err
	}
	result := &ir.If{Condition: condition}

	// both (if c (then ...) (else ...)?) and the bare
	// (if c true-expr false-expr?) forms are accepted
	if isKeywordList(operands[1], "then") {
		result.IfTrue, err = b.buildArm(operands[1])
		if err != nil {
			return nil, err
		}
		if len(operands) > 2 {
			if !isKeywordList(operands[2], "else") {
				return nil, NewSyntaxError(operands[2].pos, "expected (else ...)")
			}
			result.IfFalse, err = b.buildArm(operands[2])
			if err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	result.IfTrue, err = b.buildExpression(operands[1])
	if err != nil {
		return nil, err
	}
	if len(operands) > 2 {
		result.IfFalse, err = b.buildExpression(operands[2])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func isKeywordList(elem *element, keyword string) bool {
	return elem.isList &&
		len(elem.list) > 0 &&
		elem.list[0].atom == keyword
}

// buildArm unwraps (then body...) / (else body...).
// A single body expression stays bare, several wrap in a block.
func (b *builder) buildArm(elem *element) (ir.Expression, error) {
	body := elem.list[1:]
	if len(body) == 1 {
		return b.buildExpression(body[0])
	}
	return b.buildBody(body)
}

func (b *builder) buildBreak(elem *element, form string, operands []*element) (ir.Expression, error) {
	if len(operands) == 0 {
		return nil, NewSyntaxError(elem.pos, "malformed %s", form)
	}
	label, err := name(operands[0])
	if err != nil {
		return nil, err
	}
	result := &ir.Break{Label: label}
	operands = operands[1:]

	switch form {
	case "br":
		if len(operands) > 1 {
			return nil, NewSyntaxError(elem.pos, "malformed br")
		}
		if len(operands) == 1 {
			result.Value, err = b.buildExpression(operands[0])
			if err != nil {
				return nil, err
			}
		}
	case "br_if":
		// (br_if $l cond) or (br_if $l value cond)
		if len(operands) == 0 || len(operands) > 2 {
			return nil, NewSyntaxError(elem.pos, "malformed br_if")
		}
		if len(operands) == 2 {
			result.Value, err = b.buildExpression(operands[0])
			if err != nil {
				return nil, err
			}
			operands = operands[1:]
		}
		result.Condition, err = b.buildExpression(operands[0])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (b *builder) buildCall(elem *element, operands []*element) (ir.Expression, error) {
	if len(operands) == 0 {
		return nil, NewSyntaxError(elem.pos, "malformed call")
	}
	target, err := name(operands[0])
	if err != nil {
		return nil, err
	}
	result, ok := b.results[target]
	if !ok {
		return nil, NewSyntaxError(operands[0].pos, "undefined function %q", target)
	}
	call := &ir.Call{
		Target: target,
		Result: result,
	}
	for _, item := range operands[1:] {
		operand, err := b.buildExpression(item)
		if err != nil {
			return nil, err
		}
		call.Operands = append(call.Operands, operand)
	}
	return call, nil
}

func (b *builder) buildGlobalGet(elem *element, operands []*element) (ir.Expression, error) {
	if len(operands) != 1 {
		return nil, NewSyntaxError(elem.pos, "malformed global.get")
	}
	globalName, err := name(operands[0])
	if err != nil {
		return nil, err
	}
	valueType, ok := b.globalTypes[globalName]
	if !ok {
		return nil, NewSyntaxError(operands[0].pos, "undefined global %q", globalName)
	}
	return &ir.GlobalGet{
		Name:      globalName,
		ValueType: valueType,
	}, nil
}

func (b *builder) buildGlobalSet(elem *element, operands []*element) (ir.Expression, error) {
	if len(operands) != 2 {
		return nil, NewSyntaxError(elem.pos, "malformed global.set")
	}
	globalName, err := name(operands[0])
	if err != nil {
		return nil, err
	}
	if _, ok := b.globalTypes[globalName]; !ok {
		return nil, NewSyntaxError(operands[0].pos, "undefined global %q", globalName)
	}
	value, err := b.buildExpression(operands[1])
	if err != nil {
		return nil, err
	}
	return &ir.GlobalSet{
		Name:  globalName,
		Value: value,
	}, nil
}

func (b *builder) buildSelect(elem *element, operands []*element) (ir.Expression, error) {
	if len(operands) != 3 {
		return nil, NewSyntaxError(elem.pos, "malformed select")
	}
	ifTrue, err := b.buildExpression(operands[0])
	if err != nil {
		return nil, err
	}
	ifFalse, err := b.buildExpression(operands[1])
	if err != nil {
		return nil, err
	}
	condition, err := b.buildExpression(operands[2])
	if err != nil {
		return nil, err
	}
	return &ir.Select{
		IfTrue:    ifTrue,
		IfFalse:   ifFalse,
		Condition: condition,
	}, nil
}

func (b *builder) buildConst(elem *element, mnemonic string, operands []*element) (ir.Expression, error) {
	if len(operands) != 1 || operands[0].isList {
		return nil, NewSyntaxError(elem.pos, "malformed %s", mnemonic)
	}
	typeName := strings.TrimSuffix(mnemonic, ".const")
	valueType, ok := ir.ValueTypeByName[typeName]
	if !ok {
		return nil, NewSyntaxError(elem.pos, "unknown instruction %q", mnemonic)
	}
	text := operands[0].atom

	var literal ir.Literal
	switch valueType {
	case ir.I32:
		value, err := parseInt(text, 32)
		if err != nil {
			return nil, NewSyntaxError(operands[0].pos, "invalid i32 constant %q", text)
		}
		literal = ir.NewI32Literal(int32(value))
	case ir.I64:
		value, err := parseInt(text, 64)
		if err != nil {
			return nil, NewSyntaxError(operands[0].pos, "invalid i64 constant %q", text)
		}
		literal = ir.NewI64Literal(value)
	case ir.F32:
		value, err := strconv.ParseFloat(text, 32)
		if err != nil {
			return nil, NewSyntaxError(operands[0].pos, "invalid f32 constant %q", text)
		}
		literal = ir.NewF32Literal(float32(value))
	case ir.F64:
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, NewSyntaxError(operands[0].pos, "invalid f64 constant %q", text)
		}
		literal = ir.NewF64Literal(value)
	}
	return &ir.Const{Value: literal}, nil
}

func (b *builder) buildLoad(elem *element, load ir.Load, operands []*element) (ir.Expression, error) {
	result := load
	for len(operands) > 0 && !operands[0].isList {
		attr := operands[0].atom
		switch {
		case strings.HasPrefix(attr, "offset="):
			value, err := strconv.ParseUint(attr[len("offset="):], 0, 32)
			if err != nil {
				return nil, NewSyntaxError(operands[0].pos, "invalid offset %q", attr)
			}
			result.Offset = uint32(value)
		case strings.HasPrefix(attr, "align="):
			value, err := strconv.ParseUint(attr[len("align="):], 0, 32)
			if err != nil {
				return nil, NewSyntaxError(operands[0].pos, "invalid align %q", attr)
			}
			result.Align = uint32(value)
		default:
			return nil, NewSyntaxError(operands[0].pos, "unexpected %q", attr)
		}
		operands = operands[1:]
	}
	if len(operands) != 1 {
		return nil, NewSyntaxError(elem.pos, "load expects one address operand")
	}
	ptr, err := b.buildExpression(operands[0])
	if err != nil {
		return nil, err
	}
	result.Ptr = ptr
	return &result, nil
}

// loadsByName are load templates keyed by mnemonic;
// the builder fills in the attributes and address.
var loadsByName = map[string]ir.Load{
	"i32.load":     {Bytes: 4, ValueType: ir.I32},
	"i32.load8_s":  {Bytes: 1, Signed: true, ValueType: ir.I32},
	"i32.load8_u":  {Bytes: 1, ValueType: ir.I32},
	"i32.load16_s": {Bytes: 2, Signed: true, ValueType: ir.I32},
	"i32.load16_u": {Bytes: 2, ValueType: ir.I32},
	"i64.load":     {Bytes: 8, ValueType: ir.I64},
	"i64.load8_s":  {Bytes: 1, Signed: true, ValueType: ir.I64},
	"i64.load8_u":  {Bytes: 1, ValueType: ir.I64},
	"i64.load16_s": {Bytes: 2, Signed: true, ValueType: ir.I64},
	"i64.load16_u": {Bytes: 2, ValueType: ir.I64},
	"i64.load32_s": {Bytes: 4, Signed: true, ValueType: ir.I64},
	"i64.load32_u": {Bytes: 4, ValueType: ir.I64},
	"f32.load":     {Bytes: 4, ValueType: ir.F32},
	"f64.load":     {Bytes: 8, ValueType: ir.F64},
}

func name(elem *element) (string, error) {
	if elem.isList || !strings.HasPrefix(elem.atom, "$") || len(elem.atom) < 2 {
		return "", NewSyntaxError(elem.pos, "expected a $-prefixed name")
	}
	return elem.atom[1:], nil
}

func parseInt(text string, bits int) (int64, error) {
	value, err := strconv.ParseInt(text, 0, bits)
	if err == nil {
		return value, nil
	}
	unsigned, uerr := strconv.ParseUint(text, 0, bits)
	if uerr == nil {
		return int64(unsigned), nil
	}
	return 0, err
}
