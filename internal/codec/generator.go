package codec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

const indentUnit = "  "

var (
	plainLocal    = regexp.MustCompile(`^([A-Za-z0-9_]([A-Za-z0-9_.-]*[A-Za-z0-9_-])?)?$`)
	integerForm   = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalForm   = regexp.MustCompile(`^[+-]?[0-9]*\.[0-9]+$`)
	doubleForm    = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]+)?|\.[0-9]+)[eE][+-]?[0-9]+$`)
	shorthandForm = map[string]*regexp.Regexp{
		rdf.XSDInteger: integerForm,
		rdf.XSDDecimal: decimalForm,
		rdf.XSDDouble:  doubleForm,
	}
)

// Generate renders a form as SPARQL text.
//
// A *form.Query renders as a complete query. Any other form renders as the
// lines it would occupy inside a group. Opaque forms fail with a
// *GenerateError.
func Generate(f form.Form) (string, error) {
	g := &generator{}
	if q, ok := f.(*form.Query); ok {
		g.prefixes = q.Prefixes
		if err := g.query(q, 0, true); err != nil {
			return "", err
		}
		return g.String(), nil
	}
	p, ok := f.(form.Pattern)
	if !ok {
		return "", &GenerateError{Message: "nil form"}
	}
	if err := g.pattern(p, 0, false); err != nil {
		return "", err
	}
	return g.String(), nil
}

type generator struct {
	prefixes []form.Prefix
	lines    []string
}

func (g *generator) String() string {
	return strings.Join(g.lines, "\n")
}

func (g *generator) line(depth int, s string) {
	g.lines = append(g.lines, strings.Repeat(indentUnit, depth)+s)
}

func (g *generator) query(q *form.Query, depth int, prologue bool) error {
	if prologue {
		if q.Base != "" {
			g.line(depth, "BASE <"+q.Base+">")
		}
		for _, p := range q.Prefixes {
			g.line(depth, "PREFIX "+p.Name+": <"+p.IRI+">")
		}
	}

	var header string
	switch q.QueryType {
	case form.QuerySelect, "":
		header = "SELECT"
		if q.Distinct {
			header += " DISTINCT"
		} else if q.Reduced {
			header += " REDUCED"
		}
		proj, err := g.projections(q.Variables)
		if err != nil {
			return err
		}
		header += " " + proj
	case form.QueryAsk:
		header = "ASK"
	case form.QueryDescribe:
		proj, err := g.projections(q.Variables)
		if err != nil {
			return err
		}
		header = "DESCRIBE " + proj
	case form.QueryConstruct:
		g.line(depth, "CONSTRUCT {")
		for _, t := range q.Template {
			g.line(depth+1, g.triple(t))
		}
		header = "}"
	default:
		return &GenerateError{Tag: form.TagQuery, Message: fmt.Sprintf("unknown query type %q", q.QueryType)}
	}

	dataset := len(q.From) > 0 || len(q.FromNamed) > 0
	withWhere := q.QueryType != form.QueryDescribe || len(q.Where) > 0
	switch {
	case dataset:
		g.line(depth, header)
		for _, iri := range q.From {
			g.line(depth, "FROM "+g.term(iri))
		}
		for _, iri := range q.FromNamed {
			g.line(depth, "FROM NAMED "+g.term(iri))
		}
		if withWhere {
			g.line(depth, "WHERE {")
		}
	case withWhere:
		g.line(depth, header+" WHERE {")
	default:
		g.line(depth, header)
	}
	if withWhere {
		if err := g.body(q.Where, depth+1); err != nil {
			return err
		}
		g.line(depth, "}")
	}
	return g.modifiers(q, depth)
}

func (g *generator) projections(ps []form.Projection) (string, error) {
	if len(ps) == 0 {
		return "*", nil
	}
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		if p.Expression == nil {
			parts = append(parts, g.term(p.Term))
			continue
		}
		e, err := g.expression(p.Expression)
		if err != nil {
			return "", err
		}
		parts = append(parts, "("+e+" AS "+g.term(p.Term)+")")
	}
	return strings.Join(parts, " "), nil
}

func (g *generator) modifiers(q *form.Query, depth int) error {
	if len(q.GroupBy) > 0 {
		parts := make([]string, 0, len(q.GroupBy))
		for _, e := range q.GroupBy {
			s, err := g.condition(e)
			if err != nil {
				return err
			}
			parts = append(parts, s)
		}
		g.line(depth, "GROUP BY "+strings.Join(parts, " "))
	}
	if len(q.Having) > 0 {
		parts := make([]string, 0, len(q.Having))
		for _, e := range q.Having {
			s, err := g.expression(e)
			if err != nil {
				return err
			}
			parts = append(parts, "("+s+")")
		}
		g.line(depth, "HAVING "+strings.Join(parts, " "))
	}
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			if o.Descending {
				s, err := g.expression(o.Expression)
				if err != nil {
					return err
				}
				parts = append(parts, "DESC("+s+")")
				continue
			}
			s, err := g.condition(o.Expression)
			if err != nil {
				return err
			}
			parts = append(parts, s)
		}
		g.line(depth, "ORDER BY "+strings.Join(parts, " "))
	}
	if q.Limit != nil {
		g.line(depth, "LIMIT "+strconv.FormatInt(*q.Limit, 10))
	}
	if q.Offset != nil {
		g.line(depth, "OFFSET "+strconv.FormatInt(*q.Offset, 10))
	}
	return nil
}

// condition renders a GROUP BY or ORDER BY key; anything but a variable is
// bracketted.
func (g *generator) condition(e form.Expression) (string, error) {
	if te, ok := e.(form.TermExpression); ok && rdf.IsVariable(te.Term) {
		return g.term(te.Term), nil
	}
	s, err := g.expression(e)
	if err != nil {
		return "", err
	}
	return "(" + s + ")", nil
}

func (g *generator) body(patterns []form.Pattern, depth int) error {
	for _, p := range patterns {
		if err := g.pattern(p, depth, len(patterns) == 1); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) block(depth int, open string, patterns []form.Pattern) error {
	g.line(depth, open+" {")
	if err := g.body(patterns, depth+1); err != nil {
		return err
	}
	g.line(depth, "}")
	return nil
}

// pattern renders p at depth. alone reports whether p is the only pattern of
// its group, which lets a subquery skip its own braces.
func (g *generator) pattern(p form.Pattern, depth int, alone bool) error {
	switch p := p.(type) {
	case *form.BGP:
		for _, t := range p.Triples {
			g.line(depth, g.triple(t))
		}
	case *form.Group:
		g.line(depth, "{")
		if err := g.body(p.Patterns, depth+1); err != nil {
			return err
		}
		g.line(depth, "}")
	case *form.Filter:
		s, err := g.expression(p.Expression)
		if err != nil {
			return err
		}
		g.line(depth, "FILTER("+s+")")
	case *form.Bind:
		s, err := g.expression(p.Expression)
		if err != nil {
			return err
		}
		g.line(depth, "BIND("+s+" AS "+g.term(p.Variable)+")")
	case *form.Optional:
		return g.block(depth, "OPTIONAL", p.Patterns)
	case *form.Minus:
		return g.block(depth, "MINUS", p.Patterns)
	case *form.Union:
		for i, branch := range p.Patterns {
			if i > 0 {
				g.line(depth, "UNION")
			}
			if _, ok := branch.(*form.Group); !ok {
				branch = &form.Group{Patterns: []form.Pattern{branch}}
			}
			if err := g.pattern(branch, depth, false); err != nil {
				return err
			}
		}
	case *form.Values:
		g.values(p, depth)
	case *form.Graph:
		return g.block(depth, "GRAPH "+g.term(p.Name), p.Patterns)
	case *form.Service:
		open := "SERVICE "
		if p.Silent {
			open += "SILENT "
		}
		return g.block(depth, open+g.term(p.Name), p.Patterns)
	case *form.Query:
		if alone {
			return g.query(p, depth, false)
		}
		g.line(depth, "{")
		if err := g.query(p, depth+1, false); err != nil {
			return err
		}
		g.line(depth, "}")
	case *form.Opaque:
		return &GenerateError{Tag: p.Tag, Message: "opaque form has no text rendering"}
	case nil:
		return &GenerateError{Message: "nil pattern"}
	default:
		return &GenerateError{Tag: p.Type(), Message: "unsupported pattern"}
	}
	return nil
}

func (g *generator) values(v *form.Values, depth int) {
	names := make([]string, 0, len(v.Variables))
	for _, name := range v.Variables {
		names = append(names, g.term(name))
	}
	g.line(depth, "VALUES ("+strings.Join(names, " ")+") {")
	for _, row := range v.Rows {
		cells := make([]string, 0, len(v.Variables))
		for _, name := range v.Variables {
			if t, ok := row[name.Value]; ok && t != nil {
				cells = append(cells, g.term(t))
			} else {
				cells = append(cells, "UNDEF")
			}
		}
		g.line(depth+1, "("+strings.Join(cells, " ")+")")
	}
	g.line(depth, "}")
}

func (g *generator) triple(t rdf.Triple) string {
	pred := g.term(t.Predicate)
	if n, ok := t.Predicate.(rdf.NamedNode); ok && n.Value == rdf.RDFType {
		pred = "a"
	}
	return g.term(t.Subject) + " " + pred + " " + g.term(t.Object) + " ."
}

func (g *generator) term(t rdf.Term) string {
	switch t := t.(type) {
	case rdf.NamedNode:
		return g.iri(t.Value)
	case rdf.Literal:
		return g.literal(t)
	case nil:
		return "UNDEF"
	default:
		return t.String()
	}
}

// iri abbreviates with the longest matching prefix whose local part can be
// written as a prefixed name.
func (g *generator) iri(iri string) string {
	best := -1
	for i, p := range g.prefixes {
		if !strings.HasPrefix(iri, p.IRI) || !plainLocal.MatchString(iri[len(p.IRI):]) {
			continue
		}
		if best < 0 || len(p.IRI) > len(g.prefixes[best].IRI) {
			best = i
		}
	}
	if best < 0 {
		return "<" + iri + ">"
	}
	p := g.prefixes[best]
	return p.Name + ":" + iri[len(p.IRI):]
}

func (g *generator) literal(l rdf.Literal) string {
	if l.Language != "" {
		return rdf.Quote(l.Value) + "@" + l.Language
	}
	switch dt := l.Datatype.Value; dt {
	case "", rdf.XSDString:
		return rdf.Quote(l.Value)
	case rdf.XSDBoolean:
		if l.Value == "true" || l.Value == "false" {
			return l.Value
		}
	default:
		if re, ok := shorthandForm[dt]; ok && re.MatchString(l.Value) {
			return l.Value
		}
	}
	return rdf.Quote(l.Value) + "^^" + g.iri(l.Datatype.Value)
}

func (g *generator) expression(e form.Expression) (string, error) {
	switch e := e.(type) {
	case form.TermExpression:
		return g.term(e.Term), nil
	case *form.Operation:
		return g.operation(e)
	case *form.FunctionCall:
		args, err := g.arguments(e.Args)
		if err != nil {
			return "", err
		}
		if e.Distinct {
			args = "DISTINCT " + args
		}
		return g.iri(e.Function.Value) + "(" + args + ")", nil
	case *form.Exists:
		sub := &generator{prefixes: g.prefixes}
		if e.Pattern != nil {
			if err := sub.body(e.Pattern.Patterns, 0); err != nil {
				return "", err
			}
		}
		kw := "EXISTS"
		if e.Not {
			kw = "NOT EXISTS"
		}
		if len(sub.lines) == 0 {
			return kw + " {}", nil
		}
		parts := make([]string, len(sub.lines))
		for i, l := range sub.lines {
			parts[i] = strings.TrimSpace(l)
		}
		return kw + " { " + strings.Join(parts, " ") + " }", nil
	case *form.Aggregate:
		inner := "*"
		if e.Expression != nil {
			s, err := g.expression(e.Expression)
			if err != nil {
				return "", err
			}
			inner = s
		}
		if e.Distinct {
			inner = "DISTINCT " + inner
		}
		if e.Separator != "" {
			inner += "; SEPARATOR=" + rdf.Quote(e.Separator)
		}
		return e.Name + "(" + inner + ")", nil
	case nil:
		return "", &GenerateError{Message: "nil expression"}
	default:
		return "", &GenerateError{Message: fmt.Sprintf("unsupported expression %T", e)}
	}
}

func (g *generator) operation(op *form.Operation) (string, error) {
	switch {
	case form.IsInfix(op.Operator):
		if len(op.Args) != 2 {
			return "", &GenerateError{Message: fmt.Sprintf("operator %s needs 2 arguments, got %d", op.Operator, len(op.Args))}
		}
		left, err := g.operand(op.Args[0])
		if err != nil {
			return "", err
		}
		right, err := g.operand(op.Args[1])
		if err != nil {
			return "", err
		}
		return left + " " + op.Operator + " " + right, nil
	case op.Operator == "!" || op.Operator == "uminus" || op.Operator == "uplus":
		if len(op.Args) != 1 {
			return "", &GenerateError{Message: fmt.Sprintf("operator %s needs 1 argument, got %d", op.Operator, len(op.Args))}
		}
		arg, err := g.operand(op.Args[0])
		if err != nil {
			return "", err
		}
		if te, ok := op.Args[0].(form.TermExpression); ok && rdf.IsLiteral(te.Term) {
			arg = "(" + arg + ")"
		}
		sign := map[string]string{"!": "!", "uminus": "-", "uplus": "+"}[op.Operator]
		return sign + arg, nil
	case op.Operator == "in" || op.Operator == "notin":
		if len(op.Args) == 0 {
			return "", &GenerateError{Message: op.Operator + " needs a tested value"}
		}
		left, err := g.operand(op.Args[0])
		if err != nil {
			return "", err
		}
		list, err := g.arguments(op.Args[1:])
		if err != nil {
			return "", err
		}
		kw := " IN ("
		if op.Operator == "notin" {
			kw = " NOT IN ("
		}
		return left + kw + list + ")", nil
	default:
		args, err := g.arguments(op.Args)
		if err != nil {
			return "", err
		}
		return strings.ToUpper(op.Operator) + "(" + args + ")", nil
	}
}

// operand renders an operator argument, bracketting nested infix and IN
// operations.
func (g *generator) operand(e form.Expression) (string, error) {
	s, err := g.expression(e)
	if err != nil {
		return "", err
	}
	if op, ok := e.(*form.Operation); ok {
		if form.IsInfix(op.Operator) || op.Operator == "in" || op.Operator == "notin" {
			return "(" + s + ")", nil
		}
	}
	return s, nil
}

func (g *generator) arguments(args []form.Expression) (string, error) {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		s, err := g.expression(a)
		if err != nil {
			return "", err
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", "), nil
}
