package algebra

import (
	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// Payload is the operator-specific part of a node.
//
// This is a sealed interface - only types in this package implement it.
// ComputeForm, ComputeQuery and dimension resolution switch over every
// payload type.
type Payload interface {
	Kind() Kind
	payload()
}

// Modifiers carries the dataset clauses and solution modifiers of a query
// operator.
type Modifiers struct {
	Distinct  bool
	Reduced   bool
	From      []rdf.NamedNode
	FromNamed []rdf.NamedNode
	GroupBy   []form.Expression
	Having    []form.Expression
	Order     []form.Ordering
	Limit     *int64
	Offset    *int64
}

func modifiersOf(q *form.Query) Modifiers {
	return Modifiers{
		Distinct:  q.Distinct,
		Reduced:   q.Reduced,
		From:      q.From,
		FromNamed: q.FromNamed,
		GroupBy:   q.GroupBy,
		Having:    q.Having,
		Order:     q.Order,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
}

func (m Modifiers) apply(q *form.Query) {
	q.Distinct = m.Distinct
	q.Reduced = m.Reduced
	q.From = m.From
	q.FromNamed = m.FromNamed
	q.GroupBy = m.GroupBy
	q.Having = m.Having
	q.Order = m.Order
	q.Limit = m.Limit
	q.Offset = m.Offset
}

// Ask answers whether its source chain has a solution.
type Ask struct {
	Modifiers Modifiers
}

// BGP is a leaf of triple patterns with editable predicate bookkeeping.
//
// DimensionToProperty and PropertyToDimension are mutual inverses: each maps
// an object variable name to the predicate IRI of its triple and back.
type BGP struct {
	Triples             []rdf.Triple
	DimensionToProperty map[string]string
	PropertyToDimension map[string]string
}

// NewBGP builds a BGP payload and indexes every triple whose predicate is an
// IRI and whose object is a variable not already mapped.
func NewBGP(triples []rdf.Triple) *BGP {
	b := &BGP{
		Triples:             append([]rdf.Triple(nil), triples...),
		DimensionToProperty: make(map[string]string),
		PropertyToDimension: make(map[string]string),
	}
	for _, t := range b.Triples {
		p, ok := t.Predicate.(rdf.NamedNode)
		if !ok {
			continue
		}
		dim, ok := rdf.VariableName(t.Object)
		if !ok {
			continue
		}
		if _, taken := b.DimensionToProperty[dim]; taken {
			continue
		}
		if _, taken := b.PropertyToDimension[p.Value]; taken {
			continue
		}
		b.DimensionToProperty[dim] = p.Value
		b.PropertyToDimension[p.Value] = dim
	}
	return b
}

// Construct builds a graph from Template over its source chain.
type Construct struct {
	Template  []rdf.Triple
	Modifiers Modifiers
}

// Describe describes the node's dimensions and the constant IRIs.
type Describe struct {
	Constants []rdf.NamedNode
	Modifiers Modifiers
}

// Extend binds Variable to Expression.
type Extend struct {
	Variable   string
	Expression form.Expression
}

// Filter restricts its source by Expression.
type Filter struct {
	Expression form.Expression
}

// Graph evaluates its child against the graph Name.
type Graph struct {
	Name rdf.Term
}

// Join joins its source with its child group.
type Join struct{}

// Optional left-joins its child onto its source.
type Optional struct{}

// Select projects its source chain.
type Select struct {
	Projections []form.Projection
	Modifiers   Modifiers
}

// Union alternates between its Complement branch and its Child branch.
type Union struct{}

// Service evaluates its child at the remote endpoint Name.
type Service struct {
	Name   rdf.Term
	Silent bool
}

// Unit is a placeholder. It carries the raw form it could not translate, or
// nothing.
type Unit struct {
	Form form.Form
}

// Values is inline data.
type Values struct {
	Variables []string
	Rows      []map[string]rdf.Term
}

func (*Ask) Kind() Kind       { return KindAsk }
func (*BGP) Kind() Kind       { return KindBGP }
func (*Construct) Kind() Kind { return KindConstruct }
func (*Describe) Kind() Kind  { return KindDescribe }
func (*Extend) Kind() Kind    { return KindExtend }
func (*Filter) Kind() Kind    { return KindFilter }
func (*Graph) Kind() Kind     { return KindGraph }
func (*Join) Kind() Kind      { return KindJoin }
func (*Optional) Kind() Kind  { return KindOptional }
func (*Select) Kind() Kind    { return KindSelect }
func (*Union) Kind() Kind     { return KindUnion }
func (*Service) Kind() Kind   { return KindService }
func (*Unit) Kind() Kind      { return KindUnit }
func (*Values) Kind() Kind    { return KindValues }

func (*Ask) payload()       {}
func (*BGP) payload()       {}
func (*Construct) payload() {}
func (*Describe) payload()  {}
func (*Extend) payload()    {}
func (*Filter) payload()    {}
func (*Graph) payload()     {}
func (*Join) payload()      {}
func (*Optional) payload()  {}
func (*Select) payload()    {}
func (*Union) payload()     {}
func (*Service) payload()   {}
func (*Unit) payload()      {}
func (*Values) payload()    {}

// isQueryKind reports whether the payload renders as a complete query that
// already contains its own source chain.
func isQueryKind(p Payload) bool {
	switch p.(type) {
	case *Ask, *Construct, *Describe, *Select:
		return true
	}
	return false
}
