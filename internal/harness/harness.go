package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/engine"
	"github.com/roach88/sparqlayers/internal/rdf"
	"github.com/roach88/sparqlayers/internal/store"
	"github.com/roach88/sparqlayers/internal/testutil"
)

// Location is the endpoint every scenario tree is connected to.
const Location = "http://scenario.test/sparql"

// Harness runs the flow of one scenario against one tree.
type Harness struct {
	store     *store.Store
	engine    *engine.Engine
	transport *testutil.StubTransport
	doc       *engine.Document
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Sequential node keys and a zeroed clock keep results reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database and stub endpoint
// 2. Load the query into a new tree
// 3. Execute flow steps with expect validation
// 4. Snapshot the tree and its queries
// 5. Evaluate assertions
//
// An error is returned only when the scenario cannot be run at all (store,
// parse); step failures that were not expected are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	transport, err := newTransport(scenario.Endpoint)
	if err != nil {
		return nil, err
	}

	eng := engine.New(transport,
		engine.WithKeyGenerator(&testutil.SequentialKeys{}),
		engine.WithDefaultConnection(algebra.Connection{Location: Location}),
		engine.WithRecorder(st),
		engine.WithParallelism(1),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	)

	doc, err := eng.Load(scenario.Query, algebra.Connection{})
	if err != nil {
		return nil, fmt.Errorf("failed to load query: %w", err)
	}

	h := &Harness{store: st, engine: eng, transport: transport, doc: doc}
	ctx := context.Background()

	result := NewResult()
	result.Fallbacks = len(doc.Fallbacks)
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	if err := h.snapshot(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// newTransport builds the stub endpoint. The predicate discovery query is
// answered from the scenario's predicate list.
func newTransport(ep Endpoint) (*testutil.StubTransport, error) {
	transport := testutil.NewStubTransport(ep.Default)
	if len(ep.Predicates) == 0 {
		return transport, nil
	}
	body, err := predicateResults(ep.Predicates)
	if err != nil {
		return nil, fmt.Errorf("failed to encode predicates: %w", err)
	}
	transport.Respond(engine.PredicatesQuery, body)
	return transport, nil
}

func predicateResults(predicates []string) (string, error) {
	type term struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}
	bindings := make([]map[string]term, 0, len(predicates))
	for _, p := range predicates {
		bindings = append(bindings, map[string]term{"p": {Type: "uri", Value: p}})
	}
	doc := map[string]any{
		"head":    map[string]any{"vars": []string{"p"}},
		"results": map[string]any{"bindings": bindings},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// preorder returns the IDs of every node in the tree, root first.
func (h *Harness) preorder() []algebra.NodeID {
	var ids []algebra.NodeID
	h.doc.Tree.MapOperations(h.doc.Root, func(n *algebra.Node) {
		ids = append(ids, n.ID)
	})
	return ids
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	event := TraceEvent{Step: index, Op: step.Op, Node: step.Node, Status: "ok"}

	ids := h.preorder()
	if step.Node >= len(ids) {
		event.Status = "error"
		event.Detail = fmt.Sprintf("no node at position %d", step.Node)
		h.finishStep(index, step, event, nil, result)
		return
	}
	id := ids[step.Node]
	tree := h.doc.Tree

	var (
		err        error
		predicates []string
	)
	switch step.Op {
	case OpExecute:
		var resp algebra.Response
		resp, err = h.engine.Execute(ctx, tree, id, algebra.Connection{})
		event.Seq = resp.Seq
	case OpPredicates:
		predicates, err = h.engine.WithPredicates(ctx, tree, id)
		event.Detail = strings.Join(predicates, " ")
	case OpSetPredicate:
		err = tree.SetPredicateState(id, rdf.NewNamedNode(step.Predicate), step.Enabled)
	case OpSetDimension:
		err = tree.SetPredicateDimension(id, rdf.NewNamedNode(step.Predicate), step.Dimension)
	case OpSetExpression:
		var res algebra.Result
		res, err = tree.SetExpression(h.engine.Registry(), id, step.Text)
		if err == nil && len(res.Fallbacks) > 0 {
			event.Detail = fmt.Sprintf("%d fallbacks", len(res.Fallbacks))
		}
	case OpSetArguments:
		err = h.engine.SetArguments(ctx, tree, id, algebra.Connection{Location: step.Location})
	case OpSetMode:
		tree.Node(id).Mode = algebra.Dormant
		if step.Mode == "active" {
			tree.Node(id).Mode = algebra.Active
		}
	}
	if err != nil {
		event.Status = "error"
		event.Detail = err.Error()
	}
	h.finishStep(index, step, event, predicates, result)
}

func (h *Harness) finishStep(index int, step Step, event TraceEvent, predicates []string, result *Result) {
	result.Trace = append(result.Trace, event)
	if step.Expect == nil {
		return
	}
	if event.Status != step.Expect.Status {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected status %s, got %s (%s)",
			index, step.Op, step.Expect.Status, event.Status, event.Detail))
		return
	}
	if step.Expect.Predicates != nil && !slices.Equal(step.Expect.Predicates, predicates) {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected predicates %v, got %v",
			index, step.Op, step.Expect.Predicates, predicates))
	}
}

// snapshot fills the tree outline, per-node queries and request counts.
func (h *Harness) snapshot(ctx context.Context, result *Result) error {
	tree := h.doc.Tree
	result.Tree = algebra.Format(tree, h.doc.Root)
	result.Queries = []NodeQuery{}
	for i, id := range h.preorder() {
		expr, err := tree.Expression(id)
		if err != nil {
			return fmt.Errorf("failed to render node %d: %w", i, err)
		}
		n := tree.Node(id)
		dims := append([]string{}, n.Dimensions...)
		result.Queries = append(result.Queries, NodeQuery{Node: i, Kind: n.Kind(), Dimensions: dims, Query: expr})
	}

	result.Requests = h.transport.Calls()
	history, err := h.store.History(ctx, "", -1)
	if err != nil {
		return fmt.Errorf("failed to read execution log: %w", err)
	}
	result.Recorded = len(history)
	return nil
}
