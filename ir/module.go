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
	"fmt"
	"strconv"

	"github.com/turbolent/prettier"
)

// Import is an imported function: a named external callee
// with a declared signature.
type Import struct {
	Module       string
	Field        string
	FunctionName string
	Params       []ValueType
	Result       ValueType
}

// Global is a module-level variable.
type Global struct {
	Name      string
	ValueType ValueType
	Mutable   bool
	Init      Expression
}

// Function is a named function with a single body expression.
type Function struct {
	Name   string
	Params []ValueType
	Result ValueType
	Body   Expression
}

// Module owns its functions, globals, and imports.
// It provides the allocation context for optimization:
// each function body is exclusively owned by its function.
type Module struct {
	Imports   []*Import
	Globals   []*Global
	Functions []*Function
}

// GetFunction returns the named function, or nil.
func (m *Module) GetFunction(name string) *Function {
	for _, function := range m.Functions {
		if function.Name == name {
			return function
		}
	}
	return nil
}

// GetGlobal returns the named global, or nil.
func (m *Module) GetGlobal(name string) *Global {
	for _, global := range m.Globals {
		if global.Name == name {
			return global
		}
	}
	return nil
}

// GetImport returns the import with the given function name, or nil.
func (m *Module) GetImport(functionName string) *Import {
	for _, imported := range m.Imports {
		if imported.FunctionName == functionName {
			return imported
		}
	}
	return nil
}

func (i *Import) Doc() prettier.Doc {
	signature := []prettier.Doc{
		prettier.Text("func"),
		prettier.Text("$" + i.FunctionName),
	}
	for _, param := range i.Params {
		signature = append(
			signature,
			prettier.Text(fmt.Sprintf("(param %s)", param)),
		)
	}
	if i.Result != None {
		signature = append(
			signature,
			prettier.Text(fmt.Sprintf("(result %s)", i.Result)),
		)
	}
	return sexprDoc(
		[]prettier.Doc{
			prettier.Text("import"),
			prettier.Text(strconv.Quote(i.Module)),
			prettier.Text(strconv.Quote(i.Field)),
			sexprDoc(signature, nil),
		},
		nil,
	)
}

func (g *Global) Doc() prettier.Doc {
	typeDoc := prettier.Text(g.ValueType.String())
	if g.Mutable {
		typeDoc = prettier.Text(fmt.Sprintf("(mut %s)", g.ValueType))
	}
	parts := []prettier.Doc{
		prettier.Text("global"),
		prettier.Text("$" + g.Name),
		typeDoc,
	}
	var children []prettier.Doc
	if g.Init != nil {
		children = append(children, g.Init.Doc())
	}
	return sexprDoc(parts, children)
}

func (f *Function) Doc() prettier.Doc {
	parts := []prettier.Doc{
		prettier.Text("func"),
		prettier.Text("$" + f.Name),
	}
	for _, param := range f.Params {
		parts = append(
			parts,
			prettier.Text(fmt.Sprintf("(param %s)", param)),
		)
	}
	if f.Result != None {
		parts = append(
			parts,
			prettier.Text(fmt.Sprintf("(result %s)", f.Result)),
		)
	}
	var children []prettier.Doc
	if body, ok := f.Body.(*Block); ok && body.Label == "" {
		for _, item := range body.List {
			children = append(children, item.Doc())
		}
	} else if f.Body != nil {
		children = append(children, f.Body.Doc())
	}
	return sexprDoc(parts, children)
}

func (m *Module) Doc() prettier.Doc {
	var children []prettier.Doc
	for _, imported := range m.Imports {
		children = append(children, imported.Doc())
	}
	for _, global := range m.Globals {
		children = append(children, global.Doc())
	}
	for _, function := range m.Functions {
		children = append(children, function.Doc())
	}
	return sexprDoc(
		[]prettier.Doc{prettier.Text("module")},
		children,
	)
}

func (m *Module) String() string {
	return Format(m)
}
