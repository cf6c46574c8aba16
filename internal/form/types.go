package form

import "github.com/roach88/sparqlayers/internal/rdf"

// Type tags reported by Form.Type.
const (
	TagBGP      = "bgp"
	TagGroup    = "group"
	TagFilter   = "filter"
	TagBind     = "bind"
	TagOptional = "optional"
	TagMinus    = "minus"
	TagUnion    = "union"
	TagValues   = "values"
	TagGraph    = "graph"
	TagService  = "service"
	TagQuery    = "query"
)

// Query types carried by Query.QueryType.
const (
	QueryAsk       = "ASK"
	QuerySelect    = "SELECT"
	QueryConstruct = "CONSTRUCT"
	QueryDescribe  = "DESCRIBE"
)

// Form is any parsed syntactic construct.
//
// This is a sealed interface - only types in this package implement it.
type Form interface {
	Type() string
	form()
}

// Pattern is a Form that may appear in a group's pattern list.
type Pattern interface {
	Form
	pattern()
}

// BGP is a basic graph pattern: a conjunction of triple patterns.
type BGP struct {
	Triples []rdf.Triple
}

func (*BGP) Type() string { return TagBGP }
func (*BGP) form()        {}
func (*BGP) pattern()     {}

// Group is a braced group graph pattern.
type Group struct {
	Patterns []Pattern
}

func (*Group) Type() string { return TagGroup }
func (*Group) form()        {}
func (*Group) pattern()     {}

// Filter restricts the solutions of its group.
type Filter struct {
	Expression Expression
}

func (*Filter) Type() string { return TagFilter }
func (*Filter) form()        {}
func (*Filter) pattern()     {}

// Bind extends solutions with Variable bound to Expression.
type Bind struct {
	Variable   rdf.Variable
	Expression Expression
}

func (*Bind) Type() string { return TagBind }
func (*Bind) form()        {}
func (*Bind) pattern()     {}

// Optional is a left join against the contained patterns.
type Optional struct {
	Patterns []Pattern
}

func (*Optional) Type() string { return TagOptional }
func (*Optional) form()        {}
func (*Optional) pattern()     {}

// Minus removes compatible solutions of the contained patterns.
type Minus struct {
	Patterns []Pattern
}

func (*Minus) Type() string { return TagMinus }
func (*Minus) form()        {}
func (*Minus) pattern()     {}

// Union is an alternation. Each element is normally a *Group.
type Union struct {
	Patterns []Pattern
}

func (*Union) Type() string { return TagUnion }
func (*Union) form()        {}
func (*Union) pattern()     {}

// Values is inline data. Each row maps variable name to term; a missing
// entry is UNDEF.
type Values struct {
	Variables []rdf.Variable
	Rows      []map[string]rdf.Term
}

func (*Values) Type() string { return TagValues }
func (*Values) form()        {}
func (*Values) pattern()     {}

// Graph evaluates Patterns against the named graph Name (IRI or variable).
type Graph struct {
	Name     rdf.Term
	Patterns []Pattern
}

func (*Graph) Type() string { return TagGraph }
func (*Graph) form()        {}
func (*Graph) pattern()     {}

// Service delegates Patterns to the remote endpoint Name.
type Service struct {
	Name     rdf.Term
	Silent   bool
	Patterns []Pattern
}

func (*Service) Type() string { return TagService }
func (*Service) form()        {}
func (*Service) pattern()     {}

// Opaque carries a construct by tag without interpreting it.
type Opaque struct {
	Tag    string
	Fields map[string]any
}

func (o *Opaque) Type() string { return o.Tag }
func (*Opaque) form()          {}
func (*Opaque) pattern()       {}

// Prefix is one PREFIX declaration.
type Prefix struct {
	Name string // without ':'
	IRI  string
}

// Projection is one SELECT item or DESCRIBE target.
//
// For SELECT, Term is a Variable or Wildcard; when Expression is set the item
// is (Expression AS Term). For DESCRIBE, Term may also be a NamedNode.
type Projection struct {
	Term       rdf.Term
	Expression Expression
}

// Ordering is one ORDER BY condition.
type Ordering struct {
	Expression Expression
	Descending bool
}

// Query is a complete query or a sub-select. As a Pattern it is a subquery
// inside a group.
type Query struct {
	QueryType string // ASK, SELECT, CONSTRUCT, DESCRIBE
	Base      string
	Prefixes  []Prefix

	Distinct  bool
	Reduced   bool
	Variables []Projection // SELECT and DESCRIBE
	Template  []rdf.Triple // CONSTRUCT

	From      []rdf.NamedNode
	FromNamed []rdf.NamedNode

	Where []Pattern

	GroupBy []Expression
	Having  []Expression
	Order   []Ordering
	Limit   *int64
	Offset  *int64
}

func (*Query) Type() string { return TagQuery }
func (*Query) form()        {}
func (*Query) pattern()     {}

// IsWildcard reports whether the projection is exactly '*'.
func (q *Query) IsWildcard() bool {
	return len(q.Variables) == 1 && rdf.IsWildcard(q.Variables[0].Term) && q.Variables[0].Expression == nil
}

// HasModifiers reports whether the query has any solution modifier,
// DISTINCT/REDUCED or dataset clause.
func (q *Query) HasModifiers() bool {
	return q.Distinct || q.Reduced ||
		len(q.From) > 0 || len(q.FromNamed) > 0 ||
		len(q.GroupBy) > 0 || len(q.Having) > 0 || len(q.Order) > 0 ||
		q.Limit != nil || q.Offset != nil
}

// Wildcard returns the single '*' projection list.
func Wildcard() []Projection {
	return []Projection{{Term: rdf.Wildcard{}}}
}

// VariableProjections returns a projection list for the named variables.
func VariableProjections(names []string) []Projection {
	out := make([]Projection, 0, len(names))
	for _, n := range names {
		out = append(out, Projection{Term: rdf.NewVariable(n)})
	}
	return out
}

// NewSelect builds a SELECT * query over where.
func NewSelect(where []Pattern) *Query {
	return &Query{QueryType: QuerySelect, Variables: Wildcard(), Where: where}
}
