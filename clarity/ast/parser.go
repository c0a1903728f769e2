package ast

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Parse parses Clarity source text into its top-level forms. Comments (";;" to end of line) are skipped. Tuple
// sugar is desugared into (tuple (key value) ...) lists.
func Parse(source string) ([]Node, error) {
	parser := &parser{source: source}
	program := make([]Node, 0)
	for {
		parser.skipWhitespace()
		if parser.done() {
			return program, nil
		}
		node, err := parser.parseNode()
		if err != nil {
			return nil, err
		}
		program = append(program, node)
	}
}

// parser holds scanning state over one source text.
type parser struct {
	source string
	offset int
	line   int
}

func (p *parser) done() bool {
	return p.offset >= len(p.source)
}

func (p *parser) peek() byte {
	return p.source[p.offset]
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("parse error at line %d: %s", p.line+1, fmt.Sprintf(format, args...))
}

// skipWhitespace advances past whitespace and line comments.
func (p *parser) skipWhitespace() {
	for !p.done() {
		c := p.peek()
		if c == '\n' {
			p.line++
			p.offset++
		} else if c == ' ' || c == '\t' || c == '\r' || c == ',' {
			p.offset++
		} else if c == ';' {
			for !p.done() && p.peek() != '\n' {
				p.offset++
			}
		} else {
			return
		}
	}
}

// parseNode parses a single expression starting at the current offset.
func (p *parser) parseNode() (Node, error) {
	switch c := p.peek(); {
	case c == '(':
		return p.parseList(')')
	case c == '{':
		return p.parseTuple()
	case c == '"':
		return p.parseString(false)
	case c == 'u' && p.offset+1 < len(p.source) && p.source[p.offset+1] == '"':
		p.offset++
		return p.parseString(true)
	case c == ')' || c == '}':
		return nil, p.errorf("unexpected '%c'", c)
	default:
		return p.parseAtom()
	}
}

// parseList parses a parenthesized expression up to the given closing delimiter.
func (p *parser) parseList(closing byte) (*List, error) {
	p.offset++ // consume the opening delimiter
	items := make([]Node, 0)
	for {
		p.skipWhitespace()
		if p.done() {
			return nil, p.errorf("unterminated expression, expected '%c'", closing)
		}
		if p.peek() == closing {
			p.offset++
			return &List{Items: items}, nil
		}
		node, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		items = append(items, node)
	}
}

// parseTuple parses "{key: value, ...}" sugar into a (tuple (key value) ...) list.
func (p *parser) parseTuple() (*List, error) {
	p.offset++ // consume '{'
	items := []Node{&Atom{Token: "tuple"}}
	for {
		p.skipWhitespace()
		if p.done() {
			return nil, p.errorf("unterminated tuple, expected '}'")
		}
		if p.peek() == '}' {
			p.offset++
			return &List{Items: items}, nil
		}

		key, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		// Keys may be written "key:" or "key :".
		key.Token = strings.TrimSuffix(key.Token, ":")
		p.skipWhitespace()
		if !p.done() && p.peek() == ':' {
			p.offset++
			p.skipWhitespace()
		}

		value, err := p.parseNode()
		if err != nil {
			return nil, err
		}
		items = append(items, &List{Items: []Node{key, value}})
	}
}

// parseString parses a quoted string literal, handling escaped quotes and backslashes.
func (p *parser) parseString(utf8Literal bool) (*StringLiteral, error) {
	p.offset++ // consume '"'
	var builder strings.Builder
	for {
		if p.done() {
			return nil, p.errorf("unterminated string literal")
		}
		c := p.peek()
		if c == '"' {
			p.offset++
			return &StringLiteral{Value: builder.String(), Utf8: utf8Literal}, nil
		}
		if c == '\\' && p.offset+1 < len(p.source) {
			p.offset++
			switch escaped := p.peek(); escaped {
			case 'n':
				builder.WriteByte('\n')
			case 't':
				builder.WriteByte('\t')
			case 'r':
				builder.WriteByte('\r')
			default:
				builder.WriteByte(escaped)
			}
			p.offset++
			continue
		}
		if c == '\n' {
			p.line++
		}
		r, size := utf8.DecodeRuneInString(p.source[p.offset:])
		builder.WriteRune(r)
		p.offset += size
	}
}

// parseAtom parses a bare token. Trait references ("<name>") consume through the closing angle bracket; a leading
// '<' that is not followed by "identifier>" is an ordinary token, so the comparison operators "<" and "<=" parse
// as atoms.
func (p *parser) parseAtom() (*Atom, error) {
	start := p.offset
	if p.peek() == '<' && p.traitReferenceAhead() {
		for p.peek() != '>' {
			p.offset++
		}
		p.offset++ // consume '>'
		return &Atom{Token: p.source[start:p.offset]}, nil
	}
	for !p.done() {
		c := p.peek()
		if c == '(' || c == ')' || c == '{' || c == '}' || c == '"' || c == ';' || c == ',' ||
			unicode.IsSpace(rune(c)) {
			break
		}
		p.offset++
	}
	if start == p.offset {
		return nil, p.errorf("unexpected character '%c'", p.peek())
	}
	return &Atom{Token: p.source[start:p.offset]}, nil
}

// traitReferenceAhead reports whether the '<' at the current offset opens a "<identifier>" trait reference: at
// least one token character followed by '>' before any whitespace or delimiter.
func (p *parser) traitReferenceAhead() bool {
	for i := p.offset + 1; i < len(p.source); i++ {
		c := p.source[i]
		if c == '>' {
			return i > p.offset+1
		}
		if c == '(' || c == ')' || c == '{' || c == '}' || c == '"' || c == ';' || c == ',' ||
			unicode.IsSpace(rune(c)) {
			return false
		}
	}
	return false
}
