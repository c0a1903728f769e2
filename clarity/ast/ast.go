// Package ast models Clarity source as an S-expression syntax tree. The tree is consumed by the trait resolver to
// locate trait-reference parameter declarations and implemented-trait declarations, and by the embedded test chain
// to derive interfaces and evaluate function bodies.
package ast

// Node describes one node of a parsed Clarity syntax tree.
type Node interface {
	// isNode restricts implementations to this package.
	isNode()
}

// Atom describes a bare token: a symbol, keyword, number, hex buffer, principal literal or trait reference.
type Atom struct {
	Token string
}

// StringLiteral describes a quoted ASCII or UTF-8 string literal.
type StringLiteral struct {
	Value string
	Utf8  bool
}

// List describes a parenthesized expression. Tuple sugar ("{k: v}") parses into a List whose first item is the
// "tuple" atom followed by (key value) pairs, matching how the VM's own parser desugars it.
type List struct {
	Items []Node
}

func (n *Atom) isNode()          {}
func (n *StringLiteral) isNode() {}
func (n *List) isNode()          {}

// IsAtom returns whether the node is an atom with the given token.
func IsAtom(node Node, token string) bool {
	atom, ok := node.(*Atom)
	return ok && atom.Token == token
}

// AtomToken returns the token of an atom node, or "" if the node is not an atom.
func AtomToken(node Node) string {
	if atom, ok := node.(*Atom); ok {
		return atom.Token
	}
	return ""
}

// TopLevelForms returns the items of a parsed program whose head atom matches one of the given keywords, e.g.
// "define-public" or "use-trait".
func TopLevelForms(program []Node, keywords ...string) []*List {
	matched := make([]*List, 0)
	for _, node := range program {
		list, ok := node.(*List)
		if !ok || len(list.Items) == 0 {
			continue
		}
		for _, keyword := range keywords {
			if IsAtom(list.Items[0], keyword) {
				matched = append(matched, list)
				break
			}
		}
	}
	return matched
}

// FunctionDefinition locates the definition form for the named function within a parsed program, searching
// define-public, define-read-only and define-private forms. Returns nil if the function is not defined.
func FunctionDefinition(program []Node, name string) *List {
	for _, definition := range TopLevelForms(program, "define-public", "define-read-only", "define-private") {
		if len(definition.Items) < 2 {
			continue
		}
		header, ok := definition.Items[1].(*List)
		if !ok || len(header.Items) == 0 {
			continue
		}
		if IsAtom(header.Items[0], name) {
			return definition
		}
	}
	return nil
}
