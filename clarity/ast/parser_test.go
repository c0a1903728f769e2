package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseFunctionDefinition ensures a typical contract parses into locatable definition forms.
func TestParseFunctionDefinition(t *testing.T) {
	source := `
;; a tiny counter
(define-data-var count uint u0)

(define-public (increment (step uint))
  (ok (var-set count (+ (var-get count) step))))

(define-read-only (get-count)
  (var-get count))
`
	program, err := Parse(source)
	require.NoError(t, err)
	require.Len(t, program, 3)

	definition := FunctionDefinition(program, "increment")
	require.NotNil(t, definition)
	assert.True(t, IsAtom(definition.Items[0], "define-public"))

	header := definition.Items[1].(*List)
	require.Len(t, header.Items, 2)
	parameter := header.Items[1].(*List)
	assert.Equal(t, "step", AtomToken(parameter.Items[0]))
	assert.Equal(t, "uint", AtomToken(parameter.Items[1]))

	assert.Nil(t, FunctionDefinition(program, "missing"))
}

// TestParseTupleSugar ensures "{k: v}" desugars into a (tuple (k v)) list.
func TestParseTupleSugar(t *testing.T) {
	program, err := Parse(`{called: u0, label: "hi"}`)
	require.NoError(t, err)
	require.Len(t, program, 1)

	tuple := program[0].(*List)
	require.Len(t, tuple.Items, 3)
	assert.True(t, IsAtom(tuple.Items[0], "tuple"))

	calledPair := tuple.Items[1].(*List)
	assert.Equal(t, "called", AtomToken(calledPair.Items[0]))
	assert.Equal(t, "u0", AtomToken(calledPair.Items[1]))

	labelPair := tuple.Items[2].(*List)
	literal := labelPair.Items[1].(*StringLiteral)
	assert.Equal(t, "hi", literal.Value)
	assert.False(t, literal.Utf8)
}

// TestParseTraitReference ensures angle-bracketed trait references parse as single atoms.
func TestParseTraitReference(t *testing.T) {
	program, err := Parse(`(define-public (swap (token <token-trait>) (amount uint)) (ok true))`)
	require.NoError(t, err)

	definition := FunctionDefinition(program, "swap")
	require.NotNil(t, definition)
	header := definition.Items[1].(*List)
	tokenParameter := header.Items[1].(*List)
	assert.Equal(t, "<token-trait>", AtomToken(tokenParameter.Items[1]))
}

// TestParseComparisonOperators ensures "<" and "<=" parse as ordinary atoms rather than trait references.
func TestParseComparisonOperators(t *testing.T) {
	program, err := Parse(`(and (< a b) (<= c d) (> e f) (>= g h))`)
	require.NoError(t, err)
	require.Len(t, program, 1)

	conjunction := program[0].(*List)
	require.Len(t, conjunction.Items, 5)
	expected := []string{"<", "<=", ">", ">="}
	for i, operator := range expected {
		comparison := conjunction.Items[i+1].(*List)
		require.Len(t, comparison.Items, 3)
		assert.Equal(t, operator, AtomToken(comparison.Items[0]))
	}

	// A read-only body mixing comparisons with a trait-typed parameter keeps both meanings apart.
	program, err = Parse(`(define-read-only (check (token <token-trait>) (n uint)) (< n u3))`)
	require.NoError(t, err)
	definition := FunctionDefinition(program, "check")
	require.NotNil(t, definition)
	header := definition.Items[1].(*List)
	tokenParameter := header.Items[1].(*List)
	assert.Equal(t, "<token-trait>", AtomToken(tokenParameter.Items[1]))
	body := definition.Items[2].(*List)
	assert.Equal(t, "<", AtomToken(body.Items[0]))
}

// TestParseStrings covers escaped quotes and UTF-8 literals.
func TestParseStrings(t *testing.T) {
	program, err := Parse(`("a \"quoted\" word" u"déjà vu")`)
	require.NoError(t, err)

	list := program[0].(*List)
	require.Len(t, list.Items, 2)
	ascii := list.Items[0].(*StringLiteral)
	assert.Equal(t, `a "quoted" word`, ascii.Value)
	utf8Literal := list.Items[1].(*StringLiteral)
	assert.True(t, utf8Literal.Utf8)
	assert.Equal(t, "déjà vu", utf8Literal.Value)
}

// TestParseErrors ensures malformed inputs return errors instead of partial trees.
func TestParseErrors(t *testing.T) {
	for _, source := range []string{"(unterminated", `"open string`, "{a: u1", "(bad <trait", ")"} {
		_, err := Parse(source)
		assert.Error(t, err, "expected a parse error for %q", source)
	}
}

// TestParseComments ensures comments never leak into the tree.
func TestParseComments(t *testing.T) {
	program, err := Parse(";; leading comment\n(ok true) ;; trailing comment\n;; done")
	require.NoError(t, err)
	require.Len(t, program, 1)
}
