package form

import "github.com/roach88/sparqlayers/internal/rdf"

// Expression is a FILTER/BIND/projection expression.
//
// This is a sealed interface - only types in this package implement it.
type Expression interface {
	expression()
}

// TermExpression is a term used as an expression operand.
type TermExpression struct {
	Term rdf.Term
}

func (TermExpression) expression() {}

// Operation applies Operator to Args. Operator is one of the infix and
// prefix operators
//
//	|| && = != < > <= >= + - * / ! uminus uplus in notin
//
// or a lower-cased built-in call name such as "bound" or "regex".
// For in/notin, Args[0] is the tested value and Args[1:] the list.
type Operation struct {
	Operator string
	Args     []Expression
}

func (*Operation) expression() {}

// FunctionCall is an IRI function call.
type FunctionCall struct {
	Function rdf.NamedNode
	Distinct bool
	Args     []Expression
}

func (*FunctionCall) expression() {}

// Exists is EXISTS or NOT EXISTS over a group.
type Exists struct {
	Not     bool
	Pattern *Group
}

func (*Exists) expression() {}

// Aggregate is an aggregate call. A nil Expression is COUNT(*).
type Aggregate struct {
	Name       string // upper case: COUNT, SUM, MIN, MAX, AVG, SAMPLE, GROUP_CONCAT
	Distinct   bool
	Expression Expression
	Separator  string
}

func (*Aggregate) expression() {}

// Term wraps a term as an expression.
func Term(t rdf.Term) TermExpression {
	return TermExpression{Term: t}
}

// Binary builds a two-argument operation.
func Binary(op string, left, right Expression) *Operation {
	return &Operation{Operator: op, Args: []Expression{left, right}}
}

// Call builds a built-in call operation.
func Call(name string, args ...Expression) *Operation {
	return &Operation{Operator: name, Args: args}
}

// binaryOperators lists the operators rendered infix.
var binaryOperators = map[string]bool{
	"||": true, "&&": true,
	"=": true, "!=": true, "<": true, ">": true, "<=": true, ">=": true,
	"+": true, "-": true, "*": true, "/": true,
}

// IsInfix reports whether op is rendered between two operands.
func IsInfix(op string) bool {
	return binaryOperators[op]
}
