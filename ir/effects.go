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

// EffectAnalyzer summarizes the side effects of one subtree,
// so two subtrees can be checked for reordering conflicts.
// Calls are opaque and treated as able to do anything.
type EffectAnalyzer struct {
	Calls          bool
	Branches       bool
	ReadsMemory    bool
	GlobalsRead    map[string]struct{}
	GlobalsWritten map[string]struct{}
}

// AnalyzeEffects walks the subtree and records its effects.
func AnalyzeEffects(expression Expression) *EffectAnalyzer {
	analyzer := &EffectAnalyzer{
		GlobalsRead:    map[string]struct{}{},
		GlobalsWritten: map[string]struct{}{},
	}
	analyzer.walk(expression)
	return analyzer
}

func (a *EffectAnalyzer) walk(expression Expression) {
	if expression == nil {
		return
	}

	switch expression := expression.(type) {
	case *Break:
		a.Branches = true

	case *Call:
		a.Calls = true

	case *GlobalGet:
		a.GlobalsRead[expression.Name] = struct{}{}

	case *GlobalSet:
		a.GlobalsWritten[expression.Name] = struct{}{}

	case *Load:
		a.ReadsMemory = true

	case *Block, *If, *Const, *Unary, *Binary, *Select,
		*Nop, *Unreachable:
		// children carry the effects

	default:
		panic(errors.NewUnreachableError())
	}

	for _, slot := range ChildSlots(expression) {
		a.walk(*slot)
	}
}

// HasSideEffects returns true if evaluating the subtree
// has any observable effect beyond producing its value.
func (a *EffectAnalyzer) HasSideEffects() bool {
	return a.Calls ||
		a.Branches ||
		len(a.GlobalsWritten) > 0
}

// Invalidates returns true if this subtree's evaluation
// cannot be reordered with the other's without possibly
// changing observable behavior.
func (a *EffectAnalyzer) Invalidates(other *EffectAnalyzer) bool {
	if a.Branches || other.Branches {
		return true
	}
	if a.Calls || other.Calls {
		return true
	}
	for name := range a.GlobalsWritten {
		if other.touchesGlobal(name) {
			return true
		}
	}
	for name := range other.GlobalsWritten {
		if a.touchesGlobal(name) {
			return true
		}
	}
	return false
}

func (a *EffectAnalyzer) touchesGlobal(name string) bool {
	if _, ok := a.GlobalsRead[name]; ok {
		return true
	}
	_, ok := a.GlobalsWritten[name]
	return ok
}
