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

package parser

// element is one node of the s-expression tree:
// either an atom (symbol, number, or quoted string),
// or a parenthesized list of elements.
type element struct {
	pos    Position
	atom   string
	quoted bool
	list   []*element
	isList bool
}

// lexer reads the source rune by rune,
// producing the element tree directly:
// the wat subset needs no separate token stream.
type lexer struct {
	source []byte
	offset int
	line   int
	column int
}

func newLexer(source string) *lexer {
	return &lexer{
		source: []byte(source),
		line:   1,
		column: 1,
	}
}

func (l *lexer) position() Position {
	return Position{
		Offset: l.offset,
		Line:   l.line,
		Column: l.column,
	}
}

func (l *lexer) eof() bool {
	return l.offset >= len(l.source)
}

func (l *lexer) peek() byte {
	return l.source[l.offset]
}

func (l *lexer) next() byte {
	c := l.source[l.offset]
	l.offset++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *lexer) skipSpaceAndComments() error {
	for !l.eof() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.next()

		case c == ';':
			// line comment: ";;" to end of line
			start := l.position()
			l.next()
			if l.eof() || l.peek() != ';' {
				return NewSyntaxError(start, "unexpected ';'")
			}
			for !l.eof() && l.peek() != '\n' {
				l.next()
			}

		case c == '(' && l.offset+1 < len(l.source) && l.source[l.offset+1] == ';':
			// block comment: "(;" to ";)"
			start := l.position()
			l.next()
			l.next()
			closed := false
			for !l.eof() {
				if l.next() == ';' && !l.eof() && l.peek() == ')' {
					l.next()
					closed = true
					break
				}
			}
			if !closed {
				return NewSyntaxError(start, "unterminated block comment")
			}

		default:
			return nil
		}
	}
	return nil
}

// readElement reads one element, list or atom.
func (l *lexer) readElement() (*element, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return nil, err
	}
	if l.eof() {
		return nil, NewSyntaxError(l.position(), "unexpected end of input")
	}

	pos := l.position()

	switch c := l.peek(); c {
	case '(':
		l.next()
		result := &element{
			pos:    pos,
			isList: true,
		}
		for {
			if err := l.skipSpaceAndComments(); err != nil {
				return nil, err
			}
			if l.eof() {
				return nil, NewSyntaxError(pos, "unterminated list")
			}
			if l.peek() == ')' {
				l.next()
				return result, nil
			}
			item, err := l.readElement()
			if err != nil {
				return nil, err
			}
			result.list = append(result.list, item)
		}

	case ')':
		return nil, NewSyntaxError(pos, "unexpected ')'")

	case '"':
		l.next()
		var value []byte
		for {
			if l.eof() {
				return nil, NewSyntaxError(pos, "unterminated string")
			}
			c := l.next()
			if c == '"' {
				break
			}
			if c == '\\' {
				if l.eof() {
					return nil, NewSyntaxError(pos, "unterminated string")
				}
				c = l.next()
			}
			value = append(value, c)
		}
		return &element{
			pos:    pos,
			atom:   string(value),
			quoted: true,
		}, nil

	default:
		var value []byte
		for !l.eof() {
			c := l.peek()
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
				c == '(' || c == ')' || c == '"' || c == ';' {

				break
			}
			value = append(value, l.next())
		}
		return &element{
			pos:  pos,
			atom: string(value),
		}, nil
	}
}
