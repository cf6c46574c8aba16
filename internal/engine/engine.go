package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/codec"
	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/protocol"
)

// DefaultLocation is the endpoint used when nothing else names one.
const DefaultLocation = "http://localhost:8080/sparql"

// Engine executes algebra nodes against SPARQL endpoints.
//
// Thread-safety model:
//   - Execute, WithPredicates: safe from any goroutine for distinct or
//     identical nodes; node runtime state is guarded by the node mutex
//   - Load, SetArguments: edit the tree and must not overlap other access
//     to the same tree
type Engine struct {
	transport   protocol.Transport
	clock       *Clock
	registry    *algebra.Registry
	keys        algebra.KeyGenerator
	logger      *slog.Logger
	defaultConn algebra.Connection
	parallelism int
	recorder    Recorder

	flight singleflight.Group
}

// Recorder receives a record of every accepted or failed execution.
// Implemented by store.Store.
type Recorder interface {
	RecordExecution(ctx context.Context, e Execution) error
}

// Execution is one completed request.
type Execution struct {
	Seq      int64        `json:"seq"`
	NodeKey  string       `json:"node_key"`
	Kind     algebra.Kind `json:"kind"`
	Location string       `json:"location"`
	Query    string       `json:"query"`
	Status   string       `json:"status"`
	Bytes    int          `json:"bytes"`
	Error    string       `json:"error,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the request sequence clock.
// Default: NewClock().
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRegistry sets the translator registry used by Load.
// Default: algebra.NewDefaultRegistry().
func WithRegistry(r *algebra.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithKeyGenerator sets the node key generator for loaded trees.
func WithKeyGenerator(g algebra.KeyGenerator) Option {
	return func(e *Engine) {
		e.keys = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithDefaultConnection sets the connection used for nodes that have none.
// Default: DefaultLocation without authentication.
func WithDefaultConnection(c algebra.Connection) Option {
	return func(e *Engine) {
		e.defaultConn = c
	}
}

// WithParallelism bounds the number of concurrent requests in ExecuteTree.
// Default: runtime.NumCPU().
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithRecorder sets the execution log.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// New creates an Engine that sends requests through transport.
func New(transport protocol.Transport, opts ...Option) *Engine {
	e := &Engine{
		transport:   transport,
		clock:       NewClock(),
		registry:    algebra.NewDefaultRegistry(),
		keys:        algebra.UUIDv7Generator{},
		logger:      slog.Default(),
		defaultConn: algebra.Connection{Location: DefaultLocation},
		parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the translator registry.
func (e *Engine) Registry() *algebra.Registry { return e.registry }

// Document is one query held as an algebra tree.
type Document struct {
	Tree      *algebra.Tree
	Root      algebra.NodeID
	Fallbacks []algebra.Fallback
}

// Load parses text, translates it into a new tree and connects every node
// to conn (or the engine default). A parse failure is returned as a wrapped
// *codec.ParseError; untranslatable forms are listed in Fallbacks.
func (e *Engine) Load(text string, conn algebra.Connection) (*Document, error) {
	q, err := codec.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("load query: %w", err)
	}
	tree := algebra.New(algebra.WithKeyGenerator(e.keys), algebra.WithLogger(e.logger))
	res := tree.Translate(e.registry, q)
	tree.Connect(res.Root, e.connection(conn, algebra.Connection{}))

	e.logger.Info("query loaded",
		"root", tree.Node(res.Root).Kind(),
		"nodes", tree.Len(),
		"fallbacks", len(res.Fallbacks))
	return &Document{Tree: tree, Root: res.Root, Fallbacks: res.Fallbacks}, nil
}

func (e *Engine) connection(call, node algebra.Connection) algebra.Connection {
	switch {
	case !call.IsZero():
		return call
	case !node.IsZero():
		return node
	}
	return e.defaultConn
}

// Execute sends the node's expression to conn, or to the node's own
// connection when conn is zero, and applies the response.
//
// The response is stored on the node only if no newer request for the node
// was issued meanwhile; otherwise it is dropped and the returned error
// satisfies IsSuperseded. An applied response is passed to the node's view
// with ReasonResults, or ReasonError when the request or decoding failed.
func (e *Engine) Execute(ctx context.Context, tree *algebra.Tree, id algebra.NodeID, conn algebra.Connection) (algebra.Response, error) {
	n := tree.Node(id)
	if n == nil {
		return algebra.Response{}, newRuntimeError(ErrCodeUnknownNode, "", fmt.Sprintf("node %d", id), nil)
	}
	conn = e.connection(conn, n.Connection)
	if conn.IsZero() {
		return algebra.Response{}, newRuntimeError(ErrCodeNoConnection, n.Key, "no endpoint location", nil)
	}

	expr, err := tree.Expression(id)
	if err != nil {
		return algebra.Response{}, newRuntimeError(ErrCodeGenerate, n.Key, "render query", err)
	}
	queryType := tree.ComputeQuery(id).QueryType

	seq := e.clock.Next()
	n.Begin(seq)
	resp, err := e.transport.Get(ctx, conn.Location, expr, protocol.Options{
		Authentication: conn.Authentication,
		Accept:         acceptFor(queryType),
	})
	return e.acceptResponse(ctx, n, seq, conn, expr, queryType, resp, err)
}

func (e *Engine) acceptResponse(ctx context.Context, n *algebra.Node, seq int64, conn algebra.Connection, expr, queryType string, resp *protocol.Response, fetchErr error) (algebra.Response, error) {
	r := algebra.Response{Seq: seq}
	if fetchErr != nil {
		r.Err = newRuntimeError(ErrCodeTransport, n.Key, "fetch "+conn.Location, fetchErr)
	} else {
		r.Text = resp.Text()
		obj, err := parseResponse(queryType, resp)
		if err != nil {
			r.Err = newRuntimeError(ErrCodeDecode, n.Key, "decode response", err)
		}
		r.Object = obj
	}

	if !n.Accept(r) {
		e.logger.Debug("stale response dropped", "node", n.Key, "seq", seq)
		return r, newRuntimeError(ErrCodeSuperseded, n.Key, fmt.Sprintf("response %d superseded", seq), nil)
	}

	e.record(ctx, n, conn, expr, r, resp)

	if n.View != nil {
		reason := algebra.ReasonResults
		if r.Err != nil {
			reason = algebra.ReasonError
		}
		n.View.Present(n, reason)
	}
	return r, r.Err
}

func (e *Engine) record(ctx context.Context, n *algebra.Node, conn algebra.Connection, expr string, r algebra.Response, resp *protocol.Response) {
	if e.recorder == nil {
		return
	}
	ex := Execution{
		Seq:      r.Seq,
		NodeKey:  n.Key,
		Kind:     n.Kind(),
		Location: conn.Location,
		Query:    expr,
		Status:   "ok",
		Bytes:    len(r.Text),
	}
	if r.Err != nil {
		ex.Status = "error"
		ex.Error = r.Err.Error()
	}
	if resp != nil {
		ex.Bytes = len(resp.Body)
	}
	if err := e.recorder.RecordExecution(ctx, ex); err != nil {
		e.logger.Warn("failed to record execution", "node", n.Key, "seq", r.Seq, "error", err)
	}
}

func acceptFor(queryType string) string {
	switch queryType {
	case form.QueryConstruct, form.QueryDescribe:
		return protocol.AcceptNTriples
	}
	return protocol.AcceptResults
}

// ExecuteTree executes every node reachable from root concurrently, at
// most WithParallelism requests at a time. It waits for all requests and
// returns the first error.
func (e *Engine) ExecuteTree(ctx context.Context, tree *algebra.Tree, root algebra.NodeID) error {
	var ids []algebra.NodeID
	tree.MapOperations(root, func(n *algebra.Node) {
		ids = append(ids, n.ID)
	})

	var g errgroup.Group
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}
	for _, id := range ids {
		g.Go(func() error {
			_, err := e.Execute(ctx, tree, id, algebra.Connection{})
			return err
		})
	}
	return g.Wait()
}

// SetArguments binds the subtree at id to conn. An Active node is executed
// right away; a Dormant node only regenerates its expression.
func (e *Engine) SetArguments(ctx context.Context, tree *algebra.Tree, id algebra.NodeID, conn algebra.Connection) error {
	n := tree.Node(id)
	if n == nil {
		return newRuntimeError(ErrCodeUnknownNode, "", fmt.Sprintf("node %d", id), nil)
	}
	tree.Connect(id, conn)
	tree.Invalidate(id)
	if n.Mode != algebra.Active {
		if _, err := tree.Expression(id); err != nil {
			return newRuntimeError(ErrCodeGenerate, n.Key, "render query", err)
		}
		return nil
	}
	_, err := e.Execute(ctx, tree, id, conn)
	return err
}
