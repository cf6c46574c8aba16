package codec

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// parser is a recursive-descent parser over a token slice. The slice always
// ends with a TokenEOF, and next never moves past it.
type parser struct {
	toks     []Token
	pos      int
	base     string
	prefixes map[string]string
	blanks   int
}

// Parse reads SPARQL query text into a query form.
//
// Prefixed names are expanded and relative IRIs resolved against BASE.
// Malformed input returns a *ParseError.
func Parse(text string) (*form.Query, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, prefixes: make(map[string]string)}
	q, err := p.query()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); isKeyword(t, "VALUES") {
		return nil, p.errorf(t, "trailing VALUES clause is not supported")
	}
	if t := p.peek(); t.Type != TokenEOF {
		return nil, p.unexpected(t, "end of input")
	}
	return q, nil
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekN(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func isKeyword(t Token, kw string) bool {
	return t.Type == TokenKeyword && strings.EqualFold(t.Text, kw)
}

func isPunct(t Token, s string) bool {
	return t.Type == TokenPunct && t.Text == s
}

func isNumber(t Token) bool {
	return t.Type == TokenInteger || t.Type == TokenDecimal || t.Type == TokenDouble
}

func (p *parser) atKeyword(kw string) bool { return isKeyword(p.peek(), kw) }
func (p *parser) atPunct(s string) bool    { return isPunct(p.peek(), s) }

func (p *parser) acceptKeyword(kw string) bool {
	if p.atKeyword(kw) {
		p.next()
		return true
	}
	return false
}

func (p *parser) acceptPunct(s string) bool {
	if p.atPunct(s) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expectKeyword(kw string) error {
	if t := p.next(); !isKeyword(t, kw) {
		return p.unexpected(t, kw)
	}
	return nil
}

func (p *parser) expectPunct(s string) error {
	if t := p.next(); !isPunct(t, s) {
		return p.unexpected(t, strconv.Quote(s))
	}
	return nil
}

func (p *parser) expectVar() (rdf.Variable, error) {
	t := p.next()
	if t.Type != TokenVar {
		return rdf.Variable{}, p.unexpected(t, "variable")
	}
	return rdf.NewVariable(t.Text), nil
}

func (p *parser) errorf(t Token, format string, args ...any) error {
	return &ParseError{Line: t.Line, Column: t.Column, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) unexpected(t Token, want string) error {
	return p.errorf(t, "expected %s, found %s", want, t)
}

func (p *parser) query() (*form.Query, error) {
	q := &form.Query{}
	if err := p.prologue(q); err != nil {
		return nil, err
	}
	var err error
	switch t := p.peek(); {
	case isKeyword(t, "SELECT"):
		err = p.selectQuery(q, false)
	case isKeyword(t, "CONSTRUCT"):
		err = p.constructQuery(q)
	case isKeyword(t, "DESCRIBE"):
		err = p.describeQuery(q)
	case isKeyword(t, "ASK"):
		err = p.askQuery(q)
	default:
		err = p.unexpected(t, "SELECT, CONSTRUCT, DESCRIBE or ASK")
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (p *parser) prologue(q *form.Query) error {
	for {
		switch t := p.peek(); {
		case isKeyword(t, "BASE"):
			p.next()
			it := p.next()
			if it.Type != TokenIRI {
				return p.unexpected(it, "IRI")
			}
			p.base = p.resolve(it.Text)
			q.Base = p.base
		case isKeyword(t, "PREFIX"):
			p.next()
			pt := p.next()
			if pt.Type != TokenPName || strings.IndexByte(pt.Text, ':') != len(pt.Text)-1 {
				return p.unexpected(pt, "prefix name")
			}
			it := p.next()
			if it.Type != TokenIRI {
				return p.unexpected(it, "IRI")
			}
			name := strings.TrimSuffix(pt.Text, ":")
			ns := p.resolve(it.Text)
			p.prefixes[name] = ns
			q.Prefixes = append(q.Prefixes, form.Prefix{Name: name, IRI: ns})
		default:
			return nil
		}
	}
}

func (p *parser) selectQuery(q *form.Query, sub bool) error {
	p.next()
	q.QueryType = form.QuerySelect
	if p.acceptKeyword("DISTINCT") {
		q.Distinct = true
	} else if p.acceptKeyword("REDUCED") {
		q.Reduced = true
	}
	if err := p.projections(q); err != nil {
		return err
	}
	if !sub {
		if err := p.dataset(q); err != nil {
			return err
		}
	}
	where, err := p.where()
	if err != nil {
		return err
	}
	q.Where = where
	return p.modifiers(q)
}

func (p *parser) projections(q *form.Query) error {
	if p.acceptPunct("*") {
		q.Variables = form.Wildcard()
		return nil
	}
	for {
		t := p.peek()
		switch {
		case t.Type == TokenVar:
			p.next()
			q.Variables = append(q.Variables, form.Projection{Term: rdf.NewVariable(t.Text)})
		case isPunct(t, "("):
			p.next()
			e, err := p.expression()
			if err != nil {
				return err
			}
			if err := p.expectKeyword("AS"); err != nil {
				return err
			}
			v, err := p.expectVar()
			if err != nil {
				return err
			}
			if err := p.expectPunct(")"); err != nil {
				return err
			}
			q.Variables = append(q.Variables, form.Projection{Term: v, Expression: e})
		default:
			if len(q.Variables) == 0 {
				return p.unexpected(t, "projection")
			}
			return nil
		}
	}
}

func (p *parser) constructQuery(q *form.Query) error {
	p.next()
	q.QueryType = form.QueryConstruct
	if p.atPunct("{") {
		tmpl, err := p.template()
		if err != nil {
			return err
		}
		q.Template = tmpl
		if err := p.dataset(q); err != nil {
			return err
		}
		where, err := p.where()
		if err != nil {
			return err
		}
		q.Where = where
		return p.modifiers(q)
	}

	// CONSTRUCT WHERE { triples }: the template is the pattern.
	if err := p.dataset(q); err != nil {
		return err
	}
	if err := p.expectKeyword("WHERE"); err != nil {
		return err
	}
	tmpl, err := p.template()
	if err != nil {
		return err
	}
	q.Template = tmpl
	if len(tmpl) > 0 {
		q.Where = []form.Pattern{&form.BGP{Triples: append([]rdf.Triple(nil), tmpl...)}}
	}
	return p.modifiers(q)
}

func (p *parser) template() ([]rdf.Triple, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var out []rdf.Triple
	for {
		switch {
		case p.acceptPunct("}"):
			return out, nil
		case p.acceptPunct("."):
		default:
			triples, err := p.triplesSameSubject()
			if err != nil {
				return nil, err
			}
			out = append(out, triples...)
		}
	}
}

func (p *parser) describeQuery(q *form.Query) error {
	p.next()
	q.QueryType = form.QueryDescribe
	if p.acceptPunct("*") {
		q.Variables = form.Wildcard()
	} else {
		for {
			t := p.peek()
			if t.Type == TokenVar {
				p.next()
				q.Variables = append(q.Variables, form.Projection{Term: rdf.NewVariable(t.Text)})
				continue
			}
			if t.Type == TokenIRI || t.Type == TokenPName {
				p.next()
				iri, err := p.iri(t)
				if err != nil {
					return err
				}
				q.Variables = append(q.Variables, form.Projection{Term: iri})
				continue
			}
			if len(q.Variables) == 0 {
				return p.unexpected(t, "variable or IRI")
			}
			break
		}
	}
	if err := p.dataset(q); err != nil {
		return err
	}
	if p.atKeyword("WHERE") || p.atPunct("{") {
		where, err := p.where()
		if err != nil {
			return err
		}
		q.Where = where
	}
	return p.modifiers(q)
}

func (p *parser) askQuery(q *form.Query) error {
	p.next()
	q.QueryType = form.QueryAsk
	if err := p.dataset(q); err != nil {
		return err
	}
	where, err := p.where()
	if err != nil {
		return err
	}
	q.Where = where
	return p.modifiers(q)
}

func (p *parser) dataset(q *form.Query) error {
	for p.acceptKeyword("FROM") {
		named := p.acceptKeyword("NAMED")
		iri, err := p.iri(p.next())
		if err != nil {
			return err
		}
		if named {
			q.FromNamed = append(q.FromNamed, iri)
		} else {
			q.From = append(q.From, iri)
		}
	}
	return nil
}

func (p *parser) where() ([]form.Pattern, error) {
	p.acceptKeyword("WHERE")
	return p.groupBody()
}

func (p *parser) modifiers(q *form.Query) error {
	if p.acceptKeyword("GROUP") {
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			e, err := p.condition()
			if err != nil {
				return err
			}
			q.GroupBy = append(q.GroupBy, e)
			if !p.atCondition() {
				break
			}
		}
	}
	if p.acceptKeyword("HAVING") {
		for {
			e, err := p.constraint()
			if err != nil {
				return err
			}
			q.Having = append(q.Having, e)
			if !p.atCondition() {
				break
			}
		}
	}
	if p.acceptKeyword("ORDER") {
		if err := p.expectKeyword("BY"); err != nil {
			return err
		}
		for {
			o, err := p.orderCondition()
			if err != nil {
				return err
			}
			q.Order = append(q.Order, o)
			if !p.atCondition() {
				break
			}
		}
	}
	for range 2 {
		switch {
		case p.acceptKeyword("LIMIT"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			q.Limit = &n
		case p.acceptKeyword("OFFSET"):
			n, err := p.integer()
			if err != nil {
				return err
			}
			q.Offset = &n
		}
	}
	return nil
}

// atCondition reports whether the next token starts a GROUP BY, HAVING or
// ORDER BY condition.
func (p *parser) atCondition() bool {
	t := p.peek()
	switch t.Type {
	case TokenVar, TokenIRI, TokenPName:
		return true
	case TokenPunct:
		return t.Text == "("
	case TokenKeyword:
		if isKeyword(t, "VALUES") || isKeyword(t, "HAVING") {
			return false
		}
		return isPunct(p.peekN(1), "(")
	}
	return false
}

func (p *parser) condition() (form.Expression, error) {
	t := p.peek()
	if isPunct(t, "(") {
		p.next()
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if p.atKeyword("AS") {
			return nil, p.errorf(p.peek(), "GROUP BY aliases are not supported")
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	}
	if t.Type == TokenVar {
		p.next()
		return form.Term(rdf.NewVariable(t.Text)), nil
	}
	return p.constraint()
}

func (p *parser) orderCondition() (form.Ordering, error) {
	t := p.peek()
	if (isKeyword(t, "ASC") || isKeyword(t, "DESC")) && isPunct(p.peekN(1), "(") {
		p.next()
		p.next()
		e, err := p.expression()
		if err != nil {
			return form.Ordering{}, err
		}
		if err := p.expectPunct(")"); err != nil {
			return form.Ordering{}, err
		}
		return form.Ordering{Expression: e, Descending: isKeyword(t, "DESC")}, nil
	}
	e, err := p.condition()
	if err != nil {
		return form.Ordering{}, err
	}
	return form.Ordering{Expression: e}, nil
}

func (p *parser) integer() (int64, error) {
	t := p.next()
	if t.Type != TokenInteger {
		return 0, p.unexpected(t, "integer")
	}
	n, err := strconv.ParseInt(t.Text, 10, 64)
	if err != nil {
		return 0, p.errorf(t, "integer out of range: %s", t.Text)
	}
	return n, nil
}

// groupBody parses '{' ... '}' and returns the contained patterns.
// Consecutive triples merge into one BGP; any other pattern ends it.
func (p *parser) groupBody() ([]form.Pattern, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	if p.atKeyword("SELECT") {
		sub := &form.Query{}
		if err := p.selectQuery(sub, true); err != nil {
			return nil, err
		}
		if err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		return []form.Pattern{sub}, nil
	}

	var patterns []form.Pattern
	var bgp *form.BGP
	needDot := false
	for {
		t := p.peek()
		switch {
		case isPunct(t, "}"):
			p.next()
			return patterns, nil
		case isPunct(t, "."):
			p.next()
			needDot = false
			continue
		case p.atTriplesStart():
			if needDot {
				return nil, p.unexpected(t, `"."`)
			}
			triples, err := p.triplesSameSubject()
			if err != nil {
				return nil, err
			}
			if bgp == nil {
				bgp = &form.BGP{}
				patterns = append(patterns, bgp)
			}
			bgp.Triples = append(bgp.Triples, triples...)
			needDot = true
			continue
		}
		pat, err := p.graphPatternNotTriples()
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, pat)
		bgp = nil
		needDot = false
	}
}

func (p *parser) group() (*form.Group, error) {
	pats, err := p.groupBody()
	if err != nil {
		return nil, err
	}
	return &form.Group{Patterns: pats}, nil
}

func (p *parser) atTriplesStart() bool {
	t := p.peek()
	switch t.Type {
	case TokenVar, TokenIRI, TokenPName, TokenBlank, TokenString, TokenInteger, TokenDecimal, TokenDouble:
		return true
	case TokenPunct:
		return t.Text == "[" || t.Text == "("
	}
	return false
}

func (p *parser) graphPatternNotTriples() (form.Pattern, error) {
	t := p.peek()
	switch {
	case isPunct(t, "{"):
		return p.groupOrUnion()
	case isKeyword(t, "OPTIONAL"):
		p.next()
		pats, err := p.groupBody()
		if err != nil {
			return nil, err
		}
		return &form.Optional{Patterns: pats}, nil
	case isKeyword(t, "MINUS"):
		p.next()
		pats, err := p.groupBody()
		if err != nil {
			return nil, err
		}
		return &form.Minus{Patterns: pats}, nil
	case isKeyword(t, "GRAPH"):
		p.next()
		name, err := p.varOrIRI()
		if err != nil {
			return nil, err
		}
		pats, err := p.groupBody()
		if err != nil {
			return nil, err
		}
		return &form.Graph{Name: name, Patterns: pats}, nil
	case isKeyword(t, "SERVICE"):
		p.next()
		silent := p.acceptKeyword("SILENT")
		name, err := p.varOrIRI()
		if err != nil {
			return nil, err
		}
		pats, err := p.groupBody()
		if err != nil {
			return nil, err
		}
		return &form.Service{Name: name, Silent: silent, Patterns: pats}, nil
	case isKeyword(t, "FILTER"):
		p.next()
		e, err := p.constraint()
		if err != nil {
			return nil, err
		}
		return &form.Filter{Expression: e}, nil
	case isKeyword(t, "BIND"):
		p.next()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("AS"); err != nil {
			return nil, err
		}
		v, err := p.expectVar()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &form.Bind{Variable: v, Expression: e}, nil
	case isKeyword(t, "VALUES"):
		p.next()
		return p.values()
	}
	return nil, p.unexpected(t, "graph pattern")
}

// groupOrUnion parses a group, or a chain of groups joined by UNION.
func (p *parser) groupOrUnion() (form.Pattern, error) {
	first, err := p.group()
	if err != nil {
		return nil, err
	}
	if !p.atKeyword("UNION") {
		return first, nil
	}
	u := &form.Union{Patterns: []form.Pattern{first}}
	for p.acceptKeyword("UNION") {
		g, err := p.group()
		if err != nil {
			return nil, err
		}
		u.Patterns = append(u.Patterns, g)
	}
	return u, nil
}

func (p *parser) values() (*form.Values, error) {
	v := &form.Values{}
	if t := p.peek(); t.Type == TokenVar {
		p.next()
		v.Variables = []rdf.Variable{rdf.NewVariable(t.Text)}
		if err := p.expectPunct("{"); err != nil {
			return nil, err
		}
		for !p.acceptPunct("}") {
			val, undef, err := p.dataValue()
			if err != nil {
				return nil, err
			}
			row := map[string]rdf.Term{}
			if !undef {
				row[t.Text] = val
			}
			v.Rows = append(v.Rows, row)
		}
		return v, nil
	}

	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	for !p.acceptPunct(")") {
		name, err := p.expectVar()
		if err != nil {
			return nil, err
		}
		v.Variables = append(v.Variables, name)
	}
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	for !p.acceptPunct("}") {
		open := p.peek()
		if err := p.expectPunct("("); err != nil {
			return nil, err
		}
		row := map[string]rdf.Term{}
		i := 0
		for ; !p.acceptPunct(")"); i++ {
			if i >= len(v.Variables) {
				return nil, p.errorf(open, "VALUES row has more than %d values", len(v.Variables))
			}
			val, undef, err := p.dataValue()
			if err != nil {
				return nil, err
			}
			if !undef {
				row[v.Variables[i].Value] = val
			}
		}
		if i != len(v.Variables) {
			return nil, p.errorf(open, "VALUES row has %d values, want %d", i, len(v.Variables))
		}
		v.Rows = append(v.Rows, row)
	}
	return v, nil
}

func (p *parser) dataValue() (rdf.Term, bool, error) {
	if p.acceptKeyword("UNDEF") {
		return nil, true, nil
	}
	t := p.peek()
	term, err := p.term()
	if err != nil {
		return nil, false, err
	}
	if rdf.IsVariable(term) || rdf.IsBlankNode(term) {
		return nil, false, p.unexpected(t, "IRI, literal or UNDEF")
	}
	return term, false, nil
}

func (p *parser) triplesSameSubject() ([]rdf.Triple, error) {
	subj, err := p.term()
	if err != nil {
		return nil, err
	}
	var out []rdf.Triple
	for {
		verb, err := p.verb()
		if err != nil {
			return nil, err
		}
		for {
			obj, err := p.term()
			if err != nil {
				return nil, err
			}
			out = append(out, rdf.NewTriple(subj, verb, obj))
			if !p.acceptPunct(",") {
				break
			}
		}
		if !p.acceptPunct(";") {
			return out, nil
		}
		if p.atPunct(".") || p.atPunct("}") {
			return out, nil
		}
	}
}

func (p *parser) verb() (rdf.Term, error) {
	t := p.peek()
	if t.Type == TokenKeyword && t.Text == "a" {
		p.next()
		return rdf.NewNamedNode(rdf.RDFType), nil
	}
	return p.varOrIRI()
}

func (p *parser) varOrIRI() (rdf.Term, error) {
	t := p.next()
	if t.Type == TokenVar {
		return rdf.NewVariable(t.Text), nil
	}
	iri, err := p.iri(t)
	if err != nil {
		return nil, p.unexpected(t, "variable or IRI")
	}
	return iri, nil
}

// term parses a variable or RDF term.
func (p *parser) term() (rdf.Term, error) {
	t := p.next()
	switch t.Type {
	case TokenVar:
		return rdf.NewVariable(t.Text), nil
	case TokenIRI, TokenPName:
		return p.iri(t)
	case TokenBlank:
		return rdf.NewBlankNode(t.Text), nil
	case TokenString:
		return p.literal(t)
	case TokenInteger, TokenDecimal, TokenDouble:
		return numeric(t.Text, t.Type), nil
	case TokenKeyword:
		if b, ok := boolean(t); ok {
			return b, nil
		}
	case TokenPunct:
		switch t.Text {
		case "[":
			if !p.acceptPunct("]") {
				return nil, p.errorf(t, "blank node property lists are not supported")
			}
			label := fmt.Sprintf("b%d", p.blanks)
			p.blanks++
			return rdf.NewBlankNode(label), nil
		case "(":
			return nil, p.errorf(t, "collections are not supported")
		case "+", "-":
			if n := p.peek(); isNumber(n) {
				p.next()
				return numeric(t.Text+n.Text, n.Type), nil
			}
		}
	}
	return nil, p.unexpected(t, "RDF term")
}

func (p *parser) iri(t Token) (rdf.NamedNode, error) {
	switch t.Type {
	case TokenIRI:
		return rdf.NewNamedNode(p.resolve(t.Text)), nil
	case TokenPName:
		i := strings.IndexByte(t.Text, ':')
		prefix, local := t.Text[:i], t.Text[i+1:]
		ns, ok := p.prefixes[prefix]
		if !ok {
			return rdf.NamedNode{}, p.errorf(t, "unknown prefix %q", prefix)
		}
		return rdf.NewNamedNode(ns + local), nil
	}
	return rdf.NamedNode{}, p.unexpected(t, "IRI")
}

// resolve resolves iri against the current BASE.
func (p *parser) resolve(iri string) string {
	if p.base == "" {
		return iri
	}
	ref, err := url.Parse(iri)
	if err != nil || ref.IsAbs() {
		return iri
	}
	base, err := url.Parse(p.base)
	if err != nil {
		return iri
	}
	return base.ResolveReference(ref).String()
}

func (p *parser) literal(t Token) (rdf.Literal, error) {
	switch n := p.peek(); {
	case n.Type == TokenLangTag:
		p.next()
		return rdf.NewLangLiteral(t.Text, n.Text), nil
	case isPunct(n, "^^"):
		p.next()
		dt, err := p.iri(p.next())
		if err != nil {
			return rdf.Literal{}, err
		}
		return rdf.NewTypedLiteral(t.Text, dt), nil
	}
	return rdf.NewLiteral(t.Text), nil
}

func numeric(text string, tt TokenType) rdf.Literal {
	dt := rdf.XSDInteger
	switch tt {
	case TokenDecimal:
		dt = rdf.XSDDecimal
	case TokenDouble:
		dt = rdf.XSDDouble
	}
	return rdf.NewTypedLiteral(text, rdf.NewNamedNode(dt))
}

func boolean(t Token) (rdf.Literal, bool) {
	if isKeyword(t, "true") || isKeyword(t, "false") {
		return rdf.NewTypedLiteral(strings.ToLower(t.Text), rdf.NewNamedNode(rdf.XSDBoolean)), true
	}
	return rdf.Literal{}, false
}

func (p *parser) expression() (form.Expression, error) {
	left, err := p.conjunction()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("||") {
		right, err := p.conjunction()
		if err != nil {
			return nil, err
		}
		left = form.Binary("||", left, right)
	}
	return left, nil
}

func (p *parser) conjunction() (form.Expression, error) {
	left, err := p.relational()
	if err != nil {
		return nil, err
	}
	for p.acceptPunct("&&") {
		right, err := p.relational()
		if err != nil {
			return nil, err
		}
		left = form.Binary("&&", left, right)
	}
	return left, nil
}

func (p *parser) relational() (form.Expression, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	t := p.peek()
	if t.Type == TokenPunct {
		switch t.Text {
		case "=", "!=", "<", ">", "<=", ">=":
			p.next()
			right, err := p.additive()
			if err != nil {
				return nil, err
			}
			return form.Binary(t.Text, left, right), nil
		}
	}
	op := ""
	switch {
	case isKeyword(t, "IN"):
		p.next()
		op = "in"
	case isKeyword(t, "NOT") && isKeyword(p.peekN(1), "IN"):
		p.next()
		p.next()
		op = "notin"
	default:
		return left, nil
	}
	list, err := p.expressionList()
	if err != nil {
		return nil, err
	}
	return &form.Operation{Operator: op, Args: append([]form.Expression{left}, list...)}, nil
}

func (p *parser) additive() (form.Expression, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for p.atPunct("+") || p.atPunct("-") {
		op := p.next().Text
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = form.Binary(op, left, right)
	}
	return left, nil
}

func (p *parser) multiplicative() (form.Expression, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for p.atPunct("*") || p.atPunct("/") {
		op := p.next().Text
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = form.Binary(op, left, right)
	}
	return left, nil
}

func (p *parser) unary() (form.Expression, error) {
	t := p.peek()
	op := ""
	switch {
	case isPunct(t, "!"):
		op = "!"
	case isPunct(t, "-"), isPunct(t, "+"):
		if isNumber(p.peekN(1)) {
			term, err := p.term()
			if err != nil {
				return nil, err
			}
			return form.Term(term), nil
		}
		op = "uminus"
		if t.Text == "+" {
			op = "uplus"
		}
	default:
		return p.primary()
	}
	p.next()
	e, err := p.unary()
	if err != nil {
		return nil, err
	}
	return &form.Operation{Operator: op, Args: []form.Expression{e}}, nil
}

func (p *parser) primary() (form.Expression, error) {
	t := p.peek()
	switch t.Type {
	case TokenPunct:
		if t.Text == "(" {
			return p.bracketted()
		}
	case TokenVar:
		p.next()
		return form.Term(rdf.NewVariable(t.Text)), nil
	case TokenIRI, TokenPName:
		p.next()
		iri, err := p.iri(t)
		if err != nil {
			return nil, err
		}
		if !p.atPunct("(") {
			return form.Term(iri), nil
		}
		distinct, args, err := p.argList(true)
		if err != nil {
			return nil, err
		}
		return &form.FunctionCall{Function: iri, Distinct: distinct, Args: args}, nil
	case TokenString, TokenInteger, TokenDecimal, TokenDouble:
		term, err := p.term()
		if err != nil {
			return nil, err
		}
		return form.Term(term), nil
	case TokenKeyword:
		return p.keywordExpression()
	}
	return nil, p.unexpected(t, "expression")
}

func (p *parser) bracketted() (form.Expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	e, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return e, nil
}

// constraint parses a FILTER or HAVING condition: a bracketted expression
// or a function call.
func (p *parser) constraint() (form.Expression, error) {
	t := p.peek()
	if isPunct(t, "(") {
		return p.bracketted()
	}
	e, err := p.primary()
	if err != nil {
		return nil, err
	}
	if _, ok := e.(form.TermExpression); ok {
		return nil, p.unexpected(t, "constraint")
	}
	return e, nil
}

var aggregates = map[string]bool{
	"COUNT": true, "SUM": true, "MIN": true, "MAX": true,
	"AVG": true, "SAMPLE": true, "GROUP_CONCAT": true,
}

func (p *parser) keywordExpression() (form.Expression, error) {
	t := p.next()
	if b, ok := boolean(t); ok {
		return form.Term(b), nil
	}
	name := strings.ToUpper(t.Text)
	switch {
	case name == "NOT" && p.atKeyword("EXISTS"):
		p.next()
		g, err := p.group()
		if err != nil {
			return nil, err
		}
		return &form.Exists{Not: true, Pattern: g}, nil
	case name == "EXISTS":
		g, err := p.group()
		if err != nil {
			return nil, err
		}
		return &form.Exists{Pattern: g}, nil
	case aggregates[name]:
		return p.aggregate(name)
	}
	if !p.atPunct("(") {
		return nil, p.unexpected(t, "expression")
	}
	_, args, err := p.argList(false)
	if err != nil {
		return nil, err
	}
	return form.Call(strings.ToLower(t.Text), args...), nil
}

func (p *parser) aggregate(name string) (form.Expression, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	agg := &form.Aggregate{Name: name, Distinct: p.acceptKeyword("DISTINCT")}
	if !(name == "COUNT" && p.acceptPunct("*")) {
		e, err := p.expression()
		if err != nil {
			return nil, err
		}
		agg.Expression = e
	}
	if name == "GROUP_CONCAT" && p.acceptPunct(";") {
		if err := p.expectKeyword("SEPARATOR"); err != nil {
			return nil, err
		}
		if err := p.expectPunct("="); err != nil {
			return nil, err
		}
		s := p.next()
		if s.Type != TokenString {
			return nil, p.unexpected(s, "string")
		}
		agg.Separator = s.Text
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return agg, nil
}

func (p *parser) argList(allowDistinct bool) (bool, []form.Expression, error) {
	if err := p.expectPunct("("); err != nil {
		return false, nil, err
	}
	if p.acceptPunct(")") {
		return false, nil, nil
	}
	distinct := allowDistinct && p.acceptKeyword("DISTINCT")
	var args []form.Expression
	for {
		e, err := p.expression()
		if err != nil {
			return false, nil, err
		}
		args = append(args, e)
		if !p.acceptPunct(",") {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return false, nil, err
	}
	return distinct, args, nil
}

func (p *parser) expressionList() ([]form.Expression, error) {
	_, args, err := p.argList(false)
	return args, err
}
