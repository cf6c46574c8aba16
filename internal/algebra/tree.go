package algebra

import (
	"fmt"
	"log/slog"

	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// Tree is the arena holding a set of algebra nodes.
//
// Index 0 is reserved for None; every live node has ID == its index.
type Tree struct {
	nodes  []*Node
	keys   KeyGenerator
	logger *slog.Logger

	// Prefixes abbreviate IRIs when expressions are generated. Translate
	// records the prologue of the first query it is given.
	Prefixes []form.Prefix
}

// Option configures a Tree.
type Option func(*Tree)

// WithKeyGenerator sets the generator for node keys.
// Default: UUIDv7Generator.
func WithKeyGenerator(g KeyGenerator) Option {
	return func(t *Tree) {
		t.keys = g
	}
}

// WithLogger sets the logger used for translation diagnostics.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Tree) {
		t.logger = l
	}
}

// New creates an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{
		nodes:  []*Node{nil},
		keys:   UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Add stores a new node with the given payload and edges and returns its ID.
func (t *Tree) Add(p Payload, source, child NodeID) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{
		ID:      id,
		Key:     t.keys.Generate(),
		Source:  source,
		Child:   child,
		Payload: p,
	})
	return id
}

// Node returns the node with the given ID, or nil.
func (t *Tree) Node(id NodeID) *Node {
	if id <= None || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) - 1 }

// Lookup finds a node by key.
func (t *Tree) Lookup(key string) (NodeID, bool) {
	for _, n := range t.nodes[1:] {
		if n.Key == key {
			return n.ID, true
		}
	}
	return None, false
}

func (t *Tree) mustNode(id NodeID) (*Node, error) {
	n := t.Node(id)
	if n == nil {
		return nil, fmt.Errorf("node %d: %w", id, ErrUnknownNode)
	}
	return n, nil
}

// Parent returns the node whose Child or Complement is id, or None.
func (t *Tree) Parent(id NodeID) NodeID {
	if id == None {
		return None
	}
	for _, n := range t.nodes[1:] {
		if n.Child == id || n.Complement == id {
			return n.ID
		}
	}
	return None
}

// Destination returns the node whose Source is id, or None.
func (t *Tree) Destination(id NodeID) NodeID {
	if id == None {
		return None
	}
	for _, n := range t.nodes[1:] {
		if n.Source == id {
			return n.ID
		}
	}
	return None
}

// Root walks Parent and Destination links up from id to the top of its
// connected tree.
func (t *Tree) Root(id NodeID) NodeID {
	seen := make(map[NodeID]bool)
	for !seen[id] {
		seen[id] = true
		if p := t.Parent(id); p != None {
			id = p
			continue
		}
		if d := t.Destination(id); d != None {
			id = d
			continue
		}
		break
	}
	return id
}

// MapSources applies fn to id and then to each node along its Source
// chain. Results are in traversal order: id first, furthest source last.
func MapSources[T any](t *Tree, id NodeID, fn func(*Node) T) []T {
	var out []T
	for n := t.Node(id); n != nil; n = t.Node(n.Source) {
		out = append(out, fn(n))
	}
	return out
}

// MapOperations visits id and then, recursively, its source, child and
// complement subtrees in pre-order.
func (t *Tree) MapOperations(id NodeID, fn func(*Node)) {
	n := t.Node(id)
	if n == nil {
		return
	}
	fn(n)
	t.MapOperations(n.Source, fn)
	t.MapOperations(n.Child, fn)
	t.MapOperations(n.Complement, fn)
}

// Connect assigns conn to every node reachable from root. After Connect,
// Parent(child) == node for every node with a child, and
// Destination(source) == node for every node with a source.
func (t *Tree) Connect(root NodeID, conn Connection) {
	t.MapOperations(root, func(n *Node) {
		n.Connection = conn
	})
}

// invalidate clears the memoized expression of id and of every node whose
// expression embeds it.
func (t *Tree) invalidate(id NodeID) {
	seen := make(map[NodeID]bool)
	var walk func(NodeID)
	walk = func(id NodeID) {
		n := t.Node(id)
		if n == nil || seen[id] {
			return
		}
		seen[id] = true
		n.clearExpression()
		walk(t.Parent(id))
		walk(t.Destination(id))
	}
	walk(id)
}

// Invalidate clears the memoized expression of id and its ancestors.
func (t *Tree) Invalidate(id NodeID) {
	t.invalidate(id)
}

// resolveDimensions recomputes Dimensions for id and everything below it.
func (t *Tree) resolveDimensions(id NodeID) []string {
	n := t.Node(id)
	if n == nil {
		return nil
	}
	source := t.resolveDimensions(n.Source)
	child := t.resolveDimensions(n.Child)
	complement := t.resolveDimensions(n.Complement)

	var dims []string
	switch p := n.Payload.(type) {
	case *Ask:
	case *BGP:
		dims = rdf.Variables(p.Triples)
	case *Construct:
		dims = rdf.Variables(p.Template)
	case *Describe:
		dims = append([]string(nil), n.Dimensions...)
	case *Extend:
		dims = []string{p.Variable}
	case *Filter:
		dims = source
	case *Graph:
		dims = union(source, child)
		if name, ok := rdf.VariableName(p.Name); ok {
			dims = union(dims, []string{name})
		}
	case *Join, *Optional:
		dims = union(source, child)
	case *Select:
		for _, proj := range p.Projections {
			if name, ok := rdf.VariableName(proj.Term); ok {
				dims = append(dims, name)
			}
		}
		if len(dims) == 0 {
			dims = source
		}
	case *Union:
		dims = union(union(source, complement), child)
	case *Service:
		dims = union(source, child)
		if name, ok := rdf.VariableName(p.Name); ok {
			dims = union(dims, []string{name})
		}
	case *Unit:
		dims = source
		if pat, ok := p.Form.(form.Pattern); ok {
			dims = union(dims, form.InScope([]form.Pattern{pat}))
		}
	case *Values:
		dims = append([]string(nil), p.Variables...)
	}
	n.Dimensions = dims
	return dims
}

// union appends the names of b missing from a, preserving order.
func union(a, b []string) []string {
	out := append([]string(nil), a...)
	seen := make(map[string]bool, len(a))
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
