package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparqlayers/internal/codec"
	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

const ex = "http://example.org/"

func translateText(t *testing.T, text string) (*Tree, Result) {
	t.Helper()
	q, err := codec.Parse(text)
	require.NoError(t, err)
	tree := New()
	return tree, tree.Translate(NewDefaultRegistry(), q)
}

func bgpOf(s, p, o rdf.Term) *form.BGP {
	return &form.BGP{Triples: []rdf.Triple{rdf.NewTriple(s, p, o)}}
}

func TestTranslate_SimpleSelectIsBGP(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s ?p ?o }")

	require.True(t, res.OK())
	root := tree.Node(res.Root)
	assert.Equal(t, KindBGP, root.Kind())
	assert.Equal(t, []string{"s", "p", "o"}, root.Dimensions)
	assert.Equal(t, None, root.Source)
}

func TestTranslate_FilterOverBGP(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s ?p ?o FILTER(?o != 0) }")

	require.True(t, res.OK())
	root := tree.Node(res.Root)
	assert.Equal(t, KindFilter, root.Kind())
	source := tree.Node(root.Source)
	require.NotNil(t, source)
	assert.Equal(t, KindBGP, source.Kind())
	assert.Equal(t, []string{"s", "p", "o"}, root.Dimensions)
}

func TestTranslate_FormAttached(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s ?p ?o FILTER(?o != 0) }")

	root := tree.Node(res.Root)
	_, ok := root.Form.(*form.Filter)
	assert.True(t, ok, "filter node should carry its filter form, got %T", root.Form)
	_, ok = tree.Node(root.Source).Form.(*form.BGP)
	assert.True(t, ok)
}

func TestTranslate_QueryTypes(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind Kind
	}{
		{"ask", "ASK WHERE { ?s ?p ?o }", KindAsk},
		{"construct", "CONSTRUCT { ?s <" + ex + "p> ?o } WHERE { ?s ?p ?o }", KindConstruct},
		{"describe", "DESCRIBE ?s WHERE { ?s ?p ?o }", KindDescribe},
		{"projection", "SELECT ?s WHERE { ?s ?p ?o }", KindSelect},
		{"wildcard with limit", "SELECT * WHERE { ?s ?p ?o } LIMIT 10", KindSelect},
		{"distinct wildcard", "SELECT DISTINCT * WHERE { ?s ?p ?o }", KindSelect},
		{"empty where", "SELECT * WHERE { }", KindSelect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree, res := translateText(t, tt.text)
			require.True(t, res.OK(), "fallbacks: %v", res.Fallbacks)
			assert.Equal(t, tt.kind, tree.Node(res.Root).Kind())
		})
	}
}

func TestTranslate_SelectDimensions(t *testing.T) {
	tree, res := translateText(t, "SELECT ?s ?o WHERE { ?s ?p ?o } LIMIT 5")

	root := tree.Node(res.Root)
	sel, ok := root.Payload.(*Select)
	require.True(t, ok)
	assert.Equal(t, []string{"s", "o"}, root.Dimensions)
	require.NotNil(t, sel.Modifiers.Limit)
	assert.Equal(t, int64(5), *sel.Modifiers.Limit)
}

func TestTranslate_DescribeSplitsTerms(t *testing.T) {
	tree, res := translateText(t, "DESCRIBE ?s <"+ex+"alice> WHERE { ?s ?p ?o }")

	root := tree.Node(res.Root)
	d, ok := root.Payload.(*Describe)
	require.True(t, ok)
	assert.Equal(t, []string{"s"}, root.Dimensions)
	assert.Equal(t, []rdf.NamedNode{rdf.NewNamedNode(ex + "alice")}, d.Constants)
}

func TestTranslate_PrefixesRecorded(t *testing.T) {
	tree, _ := translateText(t, "PREFIX ex: <"+ex+"> SELECT * WHERE { ?s ex:p ?o }")

	assert.Equal(t, []form.Prefix{{Name: "ex", IRI: ex}}, tree.Prefixes)
}

func TestTranslateWhere_ChainOrder(t *testing.T) {
	a := bgpOf(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("o"))
	b := &form.Filter{Expression: form.Binary("!=", form.Term(rdf.NewVariable("o")), form.Term(rdf.NewTypedLiteral("0", rdf.NewNamedNode(rdf.XSDInteger))))}
	c := &form.Bind{Variable: rdf.NewVariable("x"), Expression: form.Term(rdf.NewVariable("o"))}

	tree := New()
	res := tree.TranslateWhere(NewDefaultRegistry(), []form.Pattern{a, b, c})
	require.True(t, res.OK())

	cn := tree.Node(res.Root)
	assert.Equal(t, KindExtend, cn.Kind())
	bn := tree.Node(cn.Source)
	require.NotNil(t, bn)
	assert.Equal(t, KindFilter, bn.Kind())
	an := tree.Node(bn.Source)
	require.NotNil(t, an)
	assert.Equal(t, KindBGP, an.Kind())
	assert.Equal(t, None, an.Source)
}

func TestTranslateWhere_GroupForcesJoin(t *testing.T) {
	a := bgpOf(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("o"))
	g := &form.Group{Patterns: []form.Pattern{
		bgpOf(rdf.NewVariable("s"), rdf.NewNamedNode(ex+"q"), rdf.NewVariable("v")),
	}}

	tree := New()
	res := tree.TranslateWhere(NewDefaultRegistry(), []form.Pattern{a, g})
	require.True(t, res.OK())

	join := tree.Node(res.Root)
	assert.Equal(t, KindJoin, join.Kind())
	assert.Equal(t, KindBGP, tree.Node(join.Source).Kind())
	child := tree.Node(join.Child)
	require.NotNil(t, child)
	assert.Equal(t, KindBGP, child.Kind())
	assert.Equal(t, None, child.Source, "joined group keeps its own chain")
	assert.Equal(t, []string{"s", "p", "o", "v"}, join.Dimensions)
}

func TestTranslateWhere_LeadingGroupJoinsNothing(t *testing.T) {
	g := &form.Group{Patterns: []form.Pattern{
		bgpOf(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("o")),
	}}

	tree := New()
	res := tree.TranslateWhere(NewDefaultRegistry(), []form.Pattern{g})

	join := tree.Node(res.Root)
	assert.Equal(t, KindJoin, join.Kind())
	assert.Equal(t, None, join.Source)
	assert.NotEqual(t, None, join.Child)
}

func TestTranslateWhere_SubqueryIsJoined(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?a ?b ?c { SELECT ?s WHERE { ?s ?p ?o } LIMIT 1 } }")
	require.True(t, res.OK())

	join := tree.Node(res.Root)
	require.Equal(t, KindJoin, join.Kind())
	sel := tree.Node(join.Child)
	require.Equal(t, KindSelect, sel.Kind())
	assert.Equal(t, KindBGP, tree.Node(sel.Source).Kind(), "subquery keeps its where chain")
}

func TestMapSources_Order(t *testing.T) {
	a := bgpOf(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("o"))
	b := &form.Filter{Expression: form.Term(rdf.NewVariable("o"))}
	c := &form.Bind{Variable: rdf.NewVariable("x"), Expression: form.Term(rdf.NewVariable("o"))}

	tree := New()
	res := tree.TranslateWhere(NewDefaultRegistry(), []form.Pattern{a, b, c})

	kinds := MapSources(tree, res.Root, func(n *Node) Kind { return n.Kind() })
	assert.Equal(t, []Kind{KindExtend, KindFilter, KindBGP}, kinds)

	reversed := make([]Kind, 0, len(kinds))
	for i := len(kinds) - 1; i >= 0; i-- {
		reversed = append(reversed, kinds[i])
	}
	assert.Equal(t, []Kind{KindBGP, KindFilter, KindExtend}, reversed)
}

func TestTranslate_UnknownTagFallsBack(t *testing.T) {
	bogus := &form.Opaque{Tag: "__bogus__", Fields: map[string]any{"x": 1}}
	tree := New()

	var res Result
	require.NotPanics(t, func() {
		res = tree.Translate(NewDefaultRegistry(), bogus)
	})

	root := tree.Node(res.Root)
	unit, ok := root.Payload.(*Unit)
	require.True(t, ok)
	assert.Same(t, bogus, unit.Form)
	assert.Same(t, bogus, root.Form)
	require.Len(t, res.Fallbacks, 1)
	assert.Equal(t, "__bogus__", res.Fallbacks[0].Tag)
	assert.Equal(t, res.Root, res.Fallbacks[0].Node)
	assert.False(t, res.OK())
}

func TestTranslate_NilFormFallsBack(t *testing.T) {
	tree := New()
	res := tree.Translate(NewDefaultRegistry(), nil)

	assert.Equal(t, KindUnit, tree.Node(res.Root).Kind())
	assert.Len(t, res.Fallbacks, 1)
}

func TestTranslate_MinusFallsBackInChain(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s ?p ?o MINUS { ?s <"+ex+"p> ?x } }")

	root := tree.Node(res.Root)
	assert.Equal(t, KindUnit, root.Kind())
	assert.Equal(t, KindBGP, tree.Node(root.Source).Kind())
	require.Len(t, res.Fallbacks, 1)
	assert.Equal(t, form.TagMinus, res.Fallbacks[0].Tag)
}

func TestTranslate_UnionArity(t *testing.T) {
	branch := func(p string) form.Pattern {
		return &form.Group{Patterns: []form.Pattern{
			bgpOf(rdf.NewVariable("s"), rdf.NewNamedNode(ex+p), rdf.NewVariable("o")),
		}}
	}

	t.Run("two branches", func(t *testing.T) {
		tree := New()
		res := tree.Translate(NewDefaultRegistry(), &form.Union{Patterns: []form.Pattern{branch("a"), branch("b")}})
		require.True(t, res.OK())

		u := tree.Node(res.Root)
		assert.Equal(t, KindUnion, u.Kind())
		require.NotEqual(t, None, u.Complement)
		require.NotEqual(t, None, u.Child)
		first := tree.Node(u.Complement).Payload.(*BGP)
		second := tree.Node(u.Child).Payload.(*BGP)
		assert.Equal(t, rdf.NewNamedNode(ex+"a"), first.Triples[0].Predicate)
		assert.Equal(t, rdf.NewNamedNode(ex+"b"), second.Triples[0].Predicate)
	})

	t.Run("three branches", func(t *testing.T) {
		tree := New()
		u := &form.Union{Patterns: []form.Pattern{branch("a"), branch("b"), branch("c")}}
		res := tree.Translate(NewDefaultRegistry(), u)

		root := tree.Node(res.Root)
		assert.Equal(t, KindUnit, root.Kind())
		require.Len(t, res.Fallbacks, 1)
		assert.Contains(t, res.Fallbacks[0].Reason, "want 2")
		assert.Equal(t, 1, tree.Len(), "no branch nodes are built before the arity check")
	})
}

func TestTranslate_ServiceArity(t *testing.T) {
	svc := func(n int) *form.Service {
		s := &form.Service{Name: rdf.NewNamedNode(ex + "sparql")}
		for i := 0; i < n; i++ {
			s.Patterns = append(s.Patterns, bgpOf(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("o")))
		}
		return s
	}

	tree := New()
	res := tree.Translate(NewDefaultRegistry(), svc(1))
	require.True(t, res.OK())
	root := tree.Node(res.Root)
	assert.Equal(t, KindService, root.Kind())
	assert.Equal(t, KindBGP, tree.Node(root.Child).Kind())

	for _, n := range []int{0, 2} {
		tree := New()
		res := tree.Translate(NewDefaultRegistry(), svc(n))
		assert.Equal(t, KindUnit, tree.Node(res.Root).Kind(), "service with %d patterns", n)
		assert.False(t, res.OK())
	}
}

func TestTranslateBGP_AcceptsWrappingGroup(t *testing.T) {
	reg := NewDefaultRegistry()
	fn, ok := reg.Lookup(form.TagBGP)
	require.True(t, ok)

	tree := New()
	tx := &Translation{tree: tree, registry: reg}
	g := &form.Group{Patterns: []form.Pattern{bgpOf(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("o"))}}
	id, err := fn(tx, g)
	require.NoError(t, err)
	assert.Equal(t, KindBGP, tree.Node(id).Kind())

	_, err = fn(tx, &form.Group{})
	assert.Error(t, err)
}

func TestRegistry_FoldsTags(t *testing.T) {
	reg := NewRegistry()
	called := 0
	require.NoError(t, reg.Register("Custom", func(tx *Translation, f form.Form) (NodeID, error) {
		called++
		return tx.Tree().Add(&Unit{}, None, None), nil
	}))

	_, ok := reg.Lookup("CUSTOM")
	assert.True(t, ok)

	tree := New()
	res := tree.Translate(reg, &form.Opaque{Tag: "cUsToM"})
	assert.True(t, res.OK())
	assert.Equal(t, 1, called)
	assert.Equal(t, []string{"custom"}, reg.Tags())
}

func TestRegistry_AppendOnly(t *testing.T) {
	reg := NewDefaultRegistry()

	err := reg.Register("GROUP", translateGroup)
	assert.ErrorIs(t, err, ErrDuplicateTranslator)

	assert.Contains(t, reg.Tags(), "select")
	assert.NotContains(t, reg.Tags(), form.TagMinus)
}

func TestConnect_BackReferences(t *testing.T) {
	tree, res := translateText(t, `SELECT ?s WHERE {
  ?s ?p ?o
  OPTIONAL { ?s <`+ex+`name> ?name FILTER(?name != "") }
  { ?s ?q ?v } UNION { ?v ?q ?s }
  GRAPH ?g { ?s ?r ?w }
}`)
	require.True(t, res.OK(), "fallbacks: %v", res.Fallbacks)

	conn := Connection{Location: "http://localhost:8080/sparql", Authentication: "Basic x"}
	tree.Connect(res.Root, conn)

	visited := 0
	tree.MapOperations(res.Root, func(n *Node) {
		visited++
		assert.Equal(t, conn, n.Connection)
		if n.Child != None {
			assert.Equal(t, n.ID, tree.Parent(n.Child), "parent of child of %s", n.Kind())
		}
		if n.Complement != None {
			assert.Equal(t, n.ID, tree.Parent(n.Complement))
		}
		if n.Source != None {
			assert.Equal(t, n.ID, tree.Destination(n.Source), "destination of source of %s", n.Kind())
		}
	})
	assert.Equal(t, tree.Len(), visited, "every node is reachable from the root")
	assert.Equal(t, res.Root, tree.Root(1), "root is found from the first leaf")
}
