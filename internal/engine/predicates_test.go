package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/codec"
	"github.com/roach88/sparqlayers/internal/testutil"
)

const deepQuery = `SELECT * WHERE {
	?s <http://example.org/name> ?name .
	OPTIONAL { ?s <http://example.org/age> ?age }
	FILTER(?name != "x")
	{ ?s ?p ?o } UNION { ?o ?p ?s }
}`

func nodeIDs(doc *Document) []algebra.NodeID {
	var ids []algebra.NodeID
	doc.Tree.MapOperations(doc.Root, func(n *algebra.Node) { ids = append(ids, n.ID) })
	return ids
}

func TestPredicatesQuery_IsCanonical(t *testing.T) {
	q, err := codec.Parse(PredicatesQuery)
	require.NoError(t, err)
	text, err := codec.Generate(q)
	require.NoError(t, err)
	assert.Equal(t, PredicatesQuery, text)
}

func TestWithPredicates_Dedupes(t *testing.T) {
	stub := testutil.NewStubTransport("").Respond(PredicatesQuery, predicateResults)
	e := newTestEngine(t, stub)
	doc := load(t, e, "SELECT * WHERE { ?s ?p ?o }")

	ps, err := e.WithPredicates(context.Background(), doc.Tree, doc.Root)
	require.NoError(t, err)
	assert.Equal(t, []string{ex + "name", ex + "age"}, ps)
}

func TestWithPredicates_SingleFetchSequential(t *testing.T) {
	stub := testutil.NewStubTransport("").Respond(PredicatesQuery, predicateResults)
	e := newTestEngine(t, stub)
	doc := load(t, e, deepQuery)
	ids := nodeIDs(doc)
	require.Greater(t, len(ids), 3)

	// Leaves first, so every lookup has to climb to the root.
	for i := len(ids) - 1; i >= 0; i-- {
		ps, err := e.WithPredicates(context.Background(), doc.Tree, ids[i])
		require.NoError(t, err)
		assert.Len(t, ps, 2)
	}
	assert.Equal(t, 1, stub.Calls())
}

func TestWithPredicates_SingleFetchConcurrent(t *testing.T) {
	stub := testutil.NewStubTransport("").Respond(PredicatesQuery, predicateResults)
	stub.Gate = make(chan struct{})
	e := newTestEngine(t, stub)
	doc := load(t, e, deepQuery)
	ids := nodeIDs(doc)

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.WithPredicates(context.Background(), doc.Tree, id)
			errs <- err
		}()
	}
	close(stub.Gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, stub.Calls())
	for _, id := range ids {
		ps, ok := doc.Tree.Node(id).Predicates()
		assert.True(t, ok, "node %d", id)
		assert.Len(t, ps, 2)
	}
}

func TestWithPredicates_CancelledCallerDoesNotFailOthers(t *testing.T) {
	stub := testutil.NewStubTransport("").Respond(PredicatesQuery, predicateResults)
	stub.Gate = make(chan struct{})
	e := newTestEngine(t, stub)
	doc := load(t, e, deepQuery)
	ids := nodeIDs(doc)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := e.WithPredicates(ctx, doc.Tree, doc.Root)
		first <- err
	}()
	require.Eventually(t, func() bool { return stub.Calls() == 1 }, time.Second, time.Millisecond)

	second := make(chan error, 1)
	go func() {
		_, err := e.WithPredicates(context.Background(), doc.Tree, ids[len(ids)-1])
		second <- err
	}()
	time.Sleep(10 * time.Millisecond)

	cancel()
	err := <-first
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(stub.Gate)
	require.NoError(t, <-second)
	assert.Equal(t, 1, stub.Calls())

	ps, ok := doc.Tree.Node(doc.Root).Predicates()
	assert.True(t, ok)
	assert.Len(t, ps, 2)
}

func TestWithPredicates_UsesRootConnection(t *testing.T) {
	stub := testutil.NewStubTransport("").Respond(PredicatesQuery, predicateResults)
	e := newTestEngine(t, stub)
	doc := load(t, e, deepQuery)
	doc.Tree.Connect(doc.Root, algebra.Connection{Location: "http://store", Authentication: "Basic x"})

	ids := nodeIDs(doc)
	_, err := e.WithPredicates(context.Background(), doc.Tree, ids[len(ids)-1])
	require.NoError(t, err)

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "http://store", reqs[0].Location)
	assert.Equal(t, "Basic x", reqs[0].Options.Authentication)
}

func TestWithPredicates_FailureNotCached(t *testing.T) {
	stub := testutil.NewStubTransport("")
	e := newTestEngine(t, stub)
	doc := load(t, e, "SELECT * WHERE { ?s ?p ?o }")

	_, err := e.WithPredicates(context.Background(), doc.Tree, doc.Root)
	assert.True(t, IsTransportError(err))
	_, ok := doc.Tree.Node(doc.Root).Predicates()
	assert.False(t, ok)

	stub.Respond(PredicatesQuery, predicateResults)
	ps, err := e.WithPredicates(context.Background(), doc.Tree, doc.Root)
	require.NoError(t, err)
	assert.Len(t, ps, 2)
	assert.Equal(t, 2, stub.Calls())
}
