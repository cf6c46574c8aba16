package algebra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparqlayers/internal/rdf"
)

func assertBijective(t *testing.T, b *BGP) {
	t.Helper()
	assert.Len(t, b.PropertyToDimension, len(b.DimensionToProperty))
	for dim, prop := range b.DimensionToProperty {
		assert.Equal(t, dim, b.PropertyToDimension[prop], "inverse of %s", dim)
	}
}

func TestNewBGP_IndexesPredicates(t *testing.T) {
	name := rdf.NewNamedNode(ex + "name")
	b := NewBGP([]rdf.Triple{
		rdf.NewTriple(rdf.NewVariable("s"), name, rdf.NewVariable("n")),
		rdf.NewTriple(rdf.NewVariable("s"), name, rdf.NewVariable("alias")),
		rdf.NewTriple(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("o")),
		rdf.NewTriple(rdf.NewVariable("s"), rdf.NewNamedNode(ex+"age"), rdf.NewLiteral("3")),
	})

	assert.Equal(t, map[string]string{"n": ex + "name"}, b.DimensionToProperty)
	assertBijective(t, b)
}

func TestPredicateDimension(t *testing.T) {
	b := NewBGP([]rdf.Triple{
		rdf.NewTriple(rdf.NewVariable("s"), rdf.NewNamedNode(ex+"label"), rdf.NewVariable("title")),
		rdf.NewTriple(rdf.NewVariable("s"), rdf.NewVariable("p"), rdf.NewVariable("name")),
	})

	tests := []struct {
		iri  string
		want string
	}{
		{ex + "label", "title"},
		{"http://xmlns.com/foaf/0.1/age", "age"},
		{"http://www.w3.org/2000/01/rdf-schema#comment", "comment"},
		{"http://xmlns.com/foaf/0.1/name", "name2"},
		{"http://example.org/has-part", "haspart"},
		{"http://example.org/things/", "p2"},
	}
	for _, tt := range tests {
		t.Run(tt.iri, func(t *testing.T) {
			assert.Equal(t, tt.want, b.PredicateDimension(rdf.NewNamedNode(tt.iri)))
		})
	}
}

func TestSetPredicateState_OnOffRestores(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?item <"+ex+"label> ?label }")
	id := res.Root
	b := tree.Node(id).Payload.(*BGP)
	initial := append([]rdf.Triple(nil), b.Triples...)

	preds := []rdf.NamedNode{
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/name"),
		rdf.NewNamedNode("http://xmlns.com/foaf/0.1/age"),
		rdf.NewNamedNode(ex + "other/name"),
	}
	for _, p := range preds {
		require.NoError(t, tree.SetPredicateState(id, p, true))
		assertBijective(t, b)
	}
	require.Len(t, b.Triples, 4)
	assert.Equal(t, rdf.NewTriple(rdf.NewVariable("item"), preds[0], rdf.NewVariable("name")), b.Triples[1])
	assert.Equal(t, rdf.NewVariable("name2"), b.Triples[3].Object)
	assert.Equal(t, []string{"item", "label", "name", "age", "name2"}, tree.Node(id).Dimensions)

	for i := len(preds) - 1; i >= 0; i-- {
		require.NoError(t, tree.SetPredicateState(id, preds[i], false))
		assertBijective(t, b)
	}
	assert.Equal(t, initial, b.Triples)
	assert.Equal(t, map[string]string{"label": ex + "label"}, b.DimensionToProperty)
}

func TestSetPredicateState_Idempotent(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s <"+ex+"label> ?label }")
	b := tree.Node(res.Root).Payload.(*BGP)
	label := rdf.NewNamedNode(ex + "label")

	require.NoError(t, tree.SetPredicateState(res.Root, label, true))
	assert.Len(t, b.Triples, 1, "present predicate is not added twice")

	missing := rdf.NewNamedNode(ex + "missing")
	require.NoError(t, tree.SetPredicateState(res.Root, missing, false))
	assert.Len(t, b.Triples, 1)
}

func TestSetPredicateState_EmptyBGPUsesDefaultSubject(t *testing.T) {
	tree := New()
	id := tree.Add(NewBGP(nil), None, None)

	require.NoError(t, tree.SetPredicateState(id, rdf.NewNamedNode(ex+"name"), true))

	b := tree.Node(id).Payload.(*BGP)
	require.Len(t, b.Triples, 1)
	assert.Equal(t, rdf.NewVariable("s"), b.Triples[0].Subject)
	assert.Equal(t, []string{"s", "name"}, tree.Node(id).Dimensions)
}

func TestSetPredicateState_InvalidatesAndPresents(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s <"+ex+"label> ?label FILTER(?label != \"\") }")
	filter := res.Root
	bgp := tree.Node(filter).Source
	view := &recordingView{}
	tree.Node(bgp).View = view

	before, err := tree.Expression(filter)
	require.NoError(t, err)

	require.NoError(t, tree.SetPredicateState(bgp, rdf.NewNamedNode(ex+"age"), true))

	after, err := tree.Expression(filter)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Contains(t, after, "?s <"+ex+"age> ?age .")
	assert.Equal(t, []string{ReasonQuery}, view.reasons)
	assert.Equal(t, []string{"s", "label", "age"}, tree.Node(filter).Dimensions)
}

func TestSetPredicateState_NotBGP(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s ?p ?o FILTER(?o != 0) }")

	err := tree.SetPredicateState(res.Root, rdf.NewNamedNode(ex+"p"), true)
	assert.ErrorIs(t, err, ErrNotBGP)

	err = tree.SetPredicateState(99, rdf.NewNamedNode(ex+"p"), true)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestSetPredicateDimension(t *testing.T) {
	tree, res := translateText(t, "SELECT * WHERE { ?s <"+ex+"label> ?label . ?s <"+ex+"age> ?age }")
	id := res.Root
	b := tree.Node(id).Payload.(*BGP)
	label := rdf.NewNamedNode(ex + "label")

	require.NoError(t, tree.SetPredicateDimension(id, label, "title"))
	assert.Equal(t, rdf.NewVariable("title"), b.Triples[0].Object)
	assert.Equal(t, "title", b.PropertyToDimension[ex+"label"])
	assert.Equal(t, ex+"label", b.DimensionToProperty["title"])
	_, stale := b.DimensionToProperty["label"]
	assert.False(t, stale)
	assertBijective(t, b)
	assert.Equal(t, []string{"s", "title", "age"}, tree.Node(id).Dimensions)

	assert.NoError(t, tree.SetPredicateDimension(id, label, "title"), "renaming to the current name is a no-op")

	err := tree.SetPredicateDimension(id, label, "age")
	assert.ErrorIs(t, err, ErrDimensionTaken)

	err = tree.SetPredicateDimension(id, rdf.NewNamedNode(ex+"missing"), "x")
	assert.ErrorIs(t, err, ErrUnknownPredicate)

	err = tree.SetPredicateDimension(id, label, "bad name")
	assert.ErrorIs(t, err, ErrInvalidDimension)
}
