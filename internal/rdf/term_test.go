package rdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermSealed(t *testing.T) {
	var _ Term = NamedNode{}
	var _ Term = BlankNode{}
	var _ Term = Variable{}
	var _ Term = Wildcard{}
	var _ Term = Literal{}
}

func TestNewVariableStripsSigil(t *testing.T) {
	assert.Equal(t, Variable{Value: "s"}, NewVariable("?s"))
	assert.Equal(t, Variable{Value: "s"}, NewVariable("$s"))
	assert.Equal(t, Variable{Value: "s"}, NewVariable("s"))
}

func TestEqualIsStructural(t *testing.T) {
	assert.True(t, Equal(NewNamedNode("http://example.org/a"), NewNamedNode("http://example.org/a")))
	assert.False(t, Equal(NewNamedNode("http://example.org/a"), NewVariable("a")))
	assert.False(t, Equal(NewVariable("a"), NewBlankNode("a")))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(NewVariable("a"), nil))
}

func TestNFCNormalization(t *testing.T) {
	// precomposed U+00E9 vs "e" + U+0301 combining acute accent
	composed := NewLiteral("caf\u00e9")
	decomposed := NewLiteral("cafe\u0301")
	assert.True(t, Equal(composed, decomposed))

	assert.Equal(t, NewNamedNode("http://example.org/caf\u00e9"), NewNamedNode("http://example.org/cafe\u0301"))
}

func TestTypedLiteralDropsXSDString(t *testing.T) {
	assert.Equal(t, NewLiteral("a"), NewTypedLiteral("a", NamedNode{Value: XSDString}))
}

func TestTermString(t *testing.T) {
	testCases := []struct {
		name string
		term Term
		want string
	}{
		{"named node", NewNamedNode("http://example.org/a"), "<http://example.org/a>"},
		{"blank node", NewBlankNode("_:b0"), "_:b0"},
		{"variable", NewVariable("x"), "?x"},
		{"wildcard", Wildcard{}, "*"},
		{"plain literal", NewLiteral("hi"), `"hi"`},
		{"lang literal", NewLangLiteral("hi", "EN"), `"hi"@en`},
		{"typed literal", NewTypedLiteral("1", NewNamedNode(XSDInteger)), `"1"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"escaped literal", NewLiteral("a \"q\"\n"), `"a \"q\"\n"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.term.String())
		})
	}
}

func TestTermPredicates(t *testing.T) {
	assert.True(t, IsNamedNode(NewNamedNode("x")))
	assert.True(t, IsBlankNode(NewBlankNode("x")))
	assert.True(t, IsVariable(NewVariable("x")))
	assert.True(t, IsWildcard(Wildcard{}))
	assert.True(t, IsLiteral(NewLiteral("x")))
	assert.False(t, IsVariable(nil))

	name, ok := VariableName(NewVariable("o"))
	assert.True(t, ok)
	assert.Equal(t, "o", name)

	_, ok = VariableName(NewNamedNode("o"))
	assert.False(t, ok)
}

func TestMarshalTermRoundTrip(t *testing.T) {
	terms := []Term{
		NewNamedNode("http://example.org/a"),
		NewBlankNode("b"),
		NewVariable("v"),
		Wildcard{},
		NewLangLiteral("chat", "fr"),
		NewTypedLiteral("2", NewNamedNode(XSDInteger)),
	}

	for _, term := range terms {
		t.Run(term.String(), func(t *testing.T) {
			data, err := MarshalTerm(term)
			require.NoError(t, err)

			got, err := UnmarshalTerm(data)
			require.NoError(t, err)
			assert.True(t, Equal(term, got), "got %v", got)
		})
	}
}

func TestUnmarshalTermRejectsUnknownType(t *testing.T) {
	_, err := UnmarshalTerm([]byte(`{"termType":"Quad","value":"x"}`))
	assert.Error(t, err)
}
