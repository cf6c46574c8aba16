package codec

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

const ex = "http://example.org/"

func v(name string) rdf.Variable  { return rdf.NewVariable(name) }
func iri(s string) rdf.NamedNode  { return rdf.NewNamedNode(s) }
func integer(s string) rdf.Literal { return rdf.NewTypedLiteral(s, iri(rdf.XSDInteger)) }

func TestParse_SimpleSelect(t *testing.T) {
	q, err := Parse("SELECT * WHERE { ?s ?p ?o }")
	require.NoError(t, err)

	assert.Equal(t, form.QuerySelect, q.QueryType)
	assert.True(t, q.IsWildcard())
	require.Len(t, q.Where, 1)
	bgp, ok := q.Where[0].(*form.BGP)
	require.True(t, ok, "expected *form.BGP, got %T", q.Where[0])
	assert.Equal(t, []rdf.Triple{rdf.NewTriple(v("s"), v("p"), v("o"))}, bgp.Triples)
}

func TestParse_PrefixesAndPredicateLists(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT ?s WHERE { ?s a ex:Person ; ex:name "Ann"@EN , "Anne" . }`)
	require.NoError(t, err)

	assert.Equal(t, []form.Prefix{{Name: "ex", IRI: ex}}, q.Prefixes)
	assert.Equal(t, form.VariableProjections([]string{"s"}), q.Variables)
	require.Len(t, q.Where, 1)
	bgp := q.Where[0].(*form.BGP)
	assert.Equal(t, []rdf.Triple{
		rdf.NewTriple(v("s"), iri(rdf.RDFType), iri(ex+"Person")),
		rdf.NewTriple(v("s"), iri(ex+"name"), rdf.NewLangLiteral("Ann", "en")),
		rdf.NewTriple(v("s"), iri(ex+"name"), rdf.NewLiteral("Anne")),
	}, bgp.Triples)
}

func TestParse_FilterSplitsTriples(t *testing.T) {
	q, err := Parse("SELECT * WHERE { ?s ?p ?o . FILTER(?o > 1) ?s ?q ?r }")
	require.NoError(t, err)

	require.Len(t, q.Where, 3)
	assert.IsType(t, &form.BGP{}, q.Where[0])
	assert.Equal(t, &form.Filter{
		Expression: form.Binary(">", form.Term(v("o")), form.Term(integer("1"))),
	}, q.Where[1])
	assert.Equal(t, &form.BGP{Triples: []rdf.Triple{rdf.NewTriple(v("s"), v("q"), v("r"))}}, q.Where[2])
}

func TestParse_GroupPatterns(t *testing.T) {
	q, err := Parse(`SELECT * WHERE {
  { ?s ?p ?o } UNION { ?s ?q ?o }
  OPTIONAL { ?s <http://example.org/label> ?l }
  MINUS { ?s a <http://example.org/Hidden> }
  GRAPH ?g { ?s ?p ?o }
  SERVICE SILENT <http://remote/sparql> { ?s ?p ?o }
  BIND(STR(?s) AS ?str)
}`)
	require.NoError(t, err)
	require.Len(t, q.Where, 6)

	u, ok := q.Where[0].(*form.Union)
	require.True(t, ok)
	require.Len(t, u.Patterns, 2)
	assert.IsType(t, &form.Group{}, u.Patterns[0])
	assert.IsType(t, &form.Group{}, u.Patterns[1])

	assert.IsType(t, &form.Optional{}, q.Where[1])
	assert.IsType(t, &form.Minus{}, q.Where[2])

	g := q.Where[3].(*form.Graph)
	assert.Equal(t, rdf.Term(v("g")), g.Name)
	require.Len(t, g.Patterns, 1)

	s := q.Where[4].(*form.Service)
	assert.True(t, s.Silent)
	assert.Equal(t, rdf.Term(iri("http://remote/sparql")), s.Name)

	assert.Equal(t, &form.Bind{
		Variable:   v("str"),
		Expression: form.Call("str", form.Term(v("s"))),
	}, q.Where[5])
}

func TestParse_Subquery(t *testing.T) {
	q, err := Parse("SELECT * WHERE { { SELECT ?s WHERE { ?s ?p ?o } LIMIT 1 } ?s ?q ?x }")
	require.NoError(t, err)
	require.Len(t, q.Where, 2)

	g, ok := q.Where[0].(*form.Group)
	require.True(t, ok)
	require.Len(t, g.Patterns, 1)
	sub, ok := g.Patterns[0].(*form.Query)
	require.True(t, ok)
	require.NotNil(t, sub.Limit)
	assert.Equal(t, int64(1), *sub.Limit)
	assert.IsType(t, &form.BGP{}, q.Where[1])
}

func TestParse_Modifiers(t *testing.T) {
	q, err := Parse(`SELECT DISTINCT ?s (COUNT(*) AS ?n) WHERE { ?s ?p ?o }
GROUP BY ?s HAVING (COUNT(*) > 1) ORDER BY DESC(?n) ?s LIMIT 10 OFFSET 5`)
	require.NoError(t, err)

	assert.True(t, q.Distinct)
	require.Len(t, q.Variables, 2)
	assert.Equal(t, &form.Aggregate{Name: "COUNT"}, q.Variables[1].Expression)
	assert.Equal(t, []form.Expression{form.Term(v("s"))}, q.GroupBy)
	assert.Equal(t, []form.Expression{
		form.Binary(">", &form.Aggregate{Name: "COUNT"}, form.Term(integer("1"))),
	}, q.Having)
	assert.Equal(t, []form.Ordering{
		{Expression: form.Term(v("n")), Descending: true},
		{Expression: form.Term(v("s"))},
	}, q.Order)
	require.NotNil(t, q.Limit)
	require.NotNil(t, q.Offset)
	assert.Equal(t, int64(10), *q.Limit)
	assert.Equal(t, int64(5), *q.Offset)
}

func TestParse_Literals(t *testing.T) {
	q, err := Parse(`PREFIX ex: <http://example.org/>
SELECT * WHERE { ?s ex:p -1, 2.5, 1e3, true, "x"^^ex:dt, [] }`)
	require.NoError(t, err)

	bgp := q.Where[0].(*form.BGP)
	objects := make([]rdf.Term, 0, len(bgp.Triples))
	for _, tr := range bgp.Triples {
		objects = append(objects, tr.Object)
	}
	assert.Equal(t, []rdf.Term{
		integer("-1"),
		rdf.NewTypedLiteral("2.5", iri(rdf.XSDDecimal)),
		rdf.NewTypedLiteral("1e3", iri(rdf.XSDDouble)),
		rdf.NewTypedLiteral("true", iri(rdf.XSDBoolean)),
		rdf.NewTypedLiteral("x", iri(ex+"dt")),
		rdf.NewBlankNode("b0"),
	}, objects)
}

func TestParse_Values(t *testing.T) {
	q, err := Parse(`SELECT * WHERE { VALUES (?x ?y) { (1 UNDEF) ("a" <http://e/>) } }`)
	require.NoError(t, err)

	assert.Equal(t, &form.Values{
		Variables: []rdf.Variable{v("x"), v("y")},
		Rows: []map[string]rdf.Term{
			{"x": integer("1")},
			{"x": rdf.NewLiteral("a"), "y": iri("http://e/")},
		},
	}, q.Where[0])
}

func TestParse_Expressions(t *testing.T) {
	q, err := Parse(`SELECT * WHERE { ?s ?p ?o
  FILTER(?o IN (1, 2) && !BOUND(?x) || ?o NOT IN (3))
  FILTER NOT EXISTS { ?s ?q ?o }
  FILTER regex(?o, "^a", "i")
}`)
	require.NoError(t, err)
	require.Len(t, q.Where, 4)

	in := &form.Operation{Operator: "in", Args: []form.Expression{form.Term(v("o")), form.Term(integer("1")), form.Term(integer("2"))}}
	notBound := &form.Operation{Operator: "!", Args: []form.Expression{form.Call("bound", form.Term(v("x")))}}
	notIn := &form.Operation{Operator: "notin", Args: []form.Expression{form.Term(v("o")), form.Term(integer("3"))}}
	assert.Equal(t, &form.Filter{Expression: form.Binary("||", form.Binary("&&", in, notBound), notIn)}, q.Where[1])

	exists := q.Where[2].(*form.Filter).Expression.(*form.Exists)
	assert.True(t, exists.Not)
	require.Len(t, exists.Pattern.Patterns, 1)

	assert.Equal(t, form.Call("regex", form.Term(v("o")), form.Term(rdf.NewLiteral("^a")), form.Term(rdf.NewLiteral("i"))),
		q.Where[3].(*form.Filter).Expression)
}

func TestParse_OtherQueryForms(t *testing.T) {
	t.Run("construct where", func(t *testing.T) {
		q, err := Parse("CONSTRUCT WHERE { ?s ?p ?o }")
		require.NoError(t, err)
		assert.Equal(t, form.QueryConstruct, q.QueryType)
		assert.Equal(t, []rdf.Triple{rdf.NewTriple(v("s"), v("p"), v("o"))}, q.Template)
		assert.Len(t, q.Where, 1)
	})

	t.Run("ask with dataset", func(t *testing.T) {
		q, err := Parse("ASK FROM <http://g1> FROM NAMED <http://g2> { ?s ?p ?o }")
		require.NoError(t, err)
		assert.Equal(t, form.QueryAsk, q.QueryType)
		assert.Equal(t, []rdf.NamedNode{iri("http://g1")}, q.From)
		assert.Equal(t, []rdf.NamedNode{iri("http://g2")}, q.FromNamed)
	})

	t.Run("describe without where", func(t *testing.T) {
		q, err := Parse("DESCRIBE <http://example.org/x>")
		require.NoError(t, err)
		assert.Equal(t, form.QueryDescribe, q.QueryType)
		assert.Equal(t, []form.Projection{{Term: iri(ex + "x")}}, q.Variables)
		assert.Empty(t, q.Where)
	})

	t.Run("base resolution", func(t *testing.T) {
		q, err := Parse("BASE <http://example.org/a/>\nSELECT * WHERE { <b> ?p ?o }")
		require.NoError(t, err)
		assert.Equal(t, "http://example.org/a/", q.Base)
		assert.Equal(t, rdf.Term(iri("http://example.org/a/b")), q.Where[0].(*form.BGP).Triples[0].Subject)
	})

	t.Run("keywords are case insensitive", func(t *testing.T) {
		q, err := Parse("select * where { ?s ?p ?o } limit 3")
		require.NoError(t, err)
		assert.Equal(t, int64(3), *q.Limit)
	})
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"unknown prefix", "SELECT * WHERE { ?s ex:p ?o }", `unknown prefix "ex"`},
		{"trailing values", "SELECT * WHERE { ?s ?p ?o } VALUES ?s { <http://e/> }", "trailing VALUES clause is not supported"},
		{"missing object", "SELECT * WHERE {\n  ?s ?p \n}", `line 3, column 1: expected RDF term, found "}"`},
		{"not a query", "INSERT DATA { }", "expected SELECT, CONSTRUCT, DESCRIBE or ASK"},
		{"unclosed group", "SELECT * WHERE { ?s ?p ?o", "expected graph pattern, found end of input"},
		{"triples without separator", "SELECT * WHERE { ?s ?p ?o ?a ?b ?c }", `expected ".", found VAR "a"`},
		{"property list", "SELECT * WHERE { ?s ?p [ ?q ?o ] }", "blank node property lists are not supported"},
		{"invalid utf-8", "SELECT * WHERE {\n  ?s ?p \"\xff\xfe\" }", "line 2, column 10: invalid UTF-8 byte 0xff"},
		{"values row arity", "SELECT * WHERE { VALUES (?x ?y) { (1) } }", "VALUES row has 1 values, want 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected *ParseError, got %T", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
