package rdf

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Well-known IRIs used by the codec when it types numeric and boolean literals.
const (
	XSD           = "http://www.w3.org/2001/XMLSchema#"
	XSDString     = XSD + "string"
	XSDInteger    = XSD + "integer"
	XSDDecimal    = XSD + "decimal"
	XSDDouble     = XSD + "double"
	XSDBoolean    = XSD + "boolean"
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFType       = RDFNamespace + "type"
	RDFLangString = RDFNamespace + "langString"
)

// TermType identifies the variant of a Term.
type TermType uint8

const (
	// TermNamedNode is an IRI.
	TermNamedNode TermType = iota
	// TermBlankNode is a blank node label.
	TermBlankNode
	// TermVariable is a query variable.
	TermVariable
	// TermWildcard is the '*' projection.
	TermWildcard
	// TermLiteral is a plain, language-tagged or typed literal.
	TermLiteral
)

func (tt TermType) String() string {
	switch tt {
	case TermNamedNode:
		return "NamedNode"
	case TermBlankNode:
		return "BlankNode"
	case TermVariable:
		return "Variable"
	case TermWildcard:
		return "Wildcard"
	case TermLiteral:
		return "Literal"
	default:
		return "Unknown"
	}
}

// Term is a sealed interface over the RDF term variants that can appear in
// a query. Only the types in this package implement it.
type Term interface {
	Type() TermType
	// String returns the term in SPARQL surface syntax with full IRIs.
	String() string
	term()
}

// NamedNode is an IRI term.
type NamedNode struct {
	Value string
}

func (NamedNode) term()            {}
func (NamedNode) Type() TermType   { return TermNamedNode }
func (n NamedNode) String() string { return "<" + n.Value + ">" }

// BlankNode is a blank node term. Value is the label without "_:".
type BlankNode struct {
	Value string
}

func (BlankNode) term()            {}
func (BlankNode) Type() TermType   { return TermBlankNode }
func (b BlankNode) String() string { return "_:" + b.Value }

// Variable is a query variable. Value is the name without '?'.
type Variable struct {
	Value string
}

func (Variable) term()            {}
func (Variable) Type() TermType   { return TermVariable }
func (v Variable) String() string { return "?" + v.Value }

// Wildcard is the SELECT/DESCRIBE '*'.
type Wildcard struct{}

func (Wildcard) term()          {}
func (Wildcard) Type() TermType { return TermWildcard }
func (Wildcard) String() string { return "*" }

// Literal is an RDF literal. At most one of Language and Datatype is set;
// a zero Datatype means xsd:string (or rdf:langString with a Language).
type Literal struct {
	Value    string
	Language string
	Datatype NamedNode
}

func (Literal) term()          {}
func (Literal) Type() TermType { return TermLiteral }

func (l Literal) String() string {
	s := Quote(l.Value)
	switch {
	case l.Language != "":
		return s + "@" + l.Language
	case l.Datatype.Value != "" && l.Datatype.Value != XSDString:
		return s + "^^" + l.Datatype.String()
	default:
		return s
	}
}

// NewNamedNode creates an IRI term with an NFC normalized value.
func NewNamedNode(iri string) NamedNode {
	return NamedNode{Value: norm.NFC.String(iri)}
}

// NewBlankNode creates a blank node term, stripping any "_:" prefix.
func NewBlankNode(label string) BlankNode {
	return BlankNode{Value: strings.TrimPrefix(label, "_:")}
}

// NewVariable creates a variable term, stripping a leading '?' or '$'.
func NewVariable(name string) Variable {
	if name != "" && (name[0] == '?' || name[0] == '$') {
		name = name[1:]
	}
	return Variable{Value: name}
}

// NewLiteral creates a plain (xsd:string) literal.
func NewLiteral(value string) Literal {
	return Literal{Value: norm.NFC.String(value)}
}

// NewLangLiteral creates a language-tagged literal. Tags are lower-cased.
func NewLangLiteral(value, lang string) Literal {
	return Literal{Value: norm.NFC.String(value), Language: strings.ToLower(lang)}
}

// NewTypedLiteral creates a typed literal. An xsd:string datatype is dropped
// so that "a" and "a"^^xsd:string are the same term.
func NewTypedLiteral(value string, datatype NamedNode) Literal {
	if datatype.Value == XSDString {
		datatype = NamedNode{}
	}
	return Literal{Value: norm.NFC.String(value), Datatype: datatype}
}

// Equal reports whether two terms have the same variant and value.
// Nil terms are equal only to nil.
func Equal(a, b Term) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a == b
}

// IsNamedNode reports whether t is an IRI.
func IsNamedNode(t Term) bool { return t != nil && t.Type() == TermNamedNode }

// IsBlankNode reports whether t is a blank node.
func IsBlankNode(t Term) bool { return t != nil && t.Type() == TermBlankNode }

// IsVariable reports whether t is a variable.
func IsVariable(t Term) bool { return t != nil && t.Type() == TermVariable }

// IsWildcard reports whether t is the '*' wildcard.
func IsWildcard(t Term) bool { return t != nil && t.Type() == TermWildcard }

// IsLiteral reports whether t is a literal.
func IsLiteral(t Term) bool { return t != nil && t.Type() == TermLiteral }

// VariableName returns the name of a variable term and true, or "" and false.
func VariableName(t Term) (string, bool) {
	v, ok := t.(Variable)
	if !ok {
		return "", false
	}
	return v.Value, true
}

// Quote renders s as a double-quoted SPARQL string literal with escapes.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// termJSON is the RDF/JS style wire shape used by the CLI and HTTP surface.
type termJSON struct {
	TermType string `json:"termType"`
	Value    string `json:"value"`
	Language string `json:"language,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// MarshalTerm encodes a term as {"termType": ..., "value": ...}.
func MarshalTerm(t Term) ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	out := termJSON{TermType: t.Type().String()}
	switch v := t.(type) {
	case NamedNode:
		out.Value = v.Value
	case BlankNode:
		out.Value = v.Value
	case Variable:
		out.Value = v.Value
	case Wildcard:
		out.Value = "*"
	case Literal:
		out.Value = v.Value
		out.Language = v.Language
		out.Datatype = v.Datatype.Value
	default:
		return nil, fmt.Errorf("unknown term type: %T", t)
	}
	return json.Marshal(out)
}

// UnmarshalTerm decodes the shape produced by MarshalTerm.
func UnmarshalTerm(data []byte) (Term, error) {
	var in termJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode term: %w", err)
	}
	switch in.TermType {
	case "NamedNode":
		return NewNamedNode(in.Value), nil
	case "BlankNode":
		return NewBlankNode(in.Value), nil
	case "Variable":
		return NewVariable(in.Value), nil
	case "Wildcard":
		return Wildcard{}, nil
	case "Literal":
		switch {
		case in.Language != "":
			return NewLangLiteral(in.Value, in.Language), nil
		case in.Datatype != "":
			return NewTypedLiteral(in.Value, NewNamedNode(in.Datatype)), nil
		default:
			return NewLiteral(in.Value), nil
		}
	default:
		return nil, fmt.Errorf("unknown termType %q", in.TermType)
	}
}

func (n NamedNode) MarshalJSON() ([]byte, error) { return MarshalTerm(n) }
func (b BlankNode) MarshalJSON() ([]byte, error) { return MarshalTerm(b) }
func (v Variable) MarshalJSON() ([]byte, error)  { return MarshalTerm(v) }
func (w Wildcard) MarshalJSON() ([]byte, error)  { return MarshalTerm(w) }
func (l Literal) MarshalJSON() ([]byte, error)   { return MarshalTerm(l) }
