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
	"strings"

	"github.com/turbolent/prettier"
)

const formatMaxLineWidth = 80
const formatIndent = " "

type hasDoc interface {
	Doc() prettier.Doc
}

// Format renders an expression or module as folded wat text.
func Format(element hasDoc) string {
	var builder strings.Builder
	prettier.Prettier(
		&builder,
		element.Doc(),
		formatMaxLineWidth,
		formatIndent,
	)
	return builder.String()
}

// sexprDoc lays out one parenthesized form:
// the head parts stay on the opening line,
// the children indent when the group breaks.
func sexprDoc(parts []prettier.Doc, children []prettier.Doc) prettier.Doc {
	head := prettier.Concat{prettier.Text("(")}
	for i, part := range parts {
		if i > 0 {
			head = append(head, prettier.Space)
		}
		head = append(head, part)
	}
	if len(children) == 0 {
		head = append(head, prettier.Text(")"))
		return head
	}
	inner := prettier.Concat{}
	for _, child := range children {
		inner = append(inner, prettier.Line{}, child)
	}
	return prettier.Group{
		Doc: prettier.Concat{
			head,
			prettier.Indent{Doc: inner},
			prettier.Text(")"),
		},
	}
}
