package algebra

import (
	"sync"

	"github.com/roach88/sparqlayers/internal/form"
)

// NodeID indexes a node in its Tree. The zero value is None.
type NodeID int

// None is the absent node.
const None NodeID = 0

// Kind is the operator tag of a node.
type Kind string

const (
	KindAsk       Kind = "ask"
	KindBGP       Kind = "bgp"
	KindConstruct Kind = "construct"
	KindDescribe  Kind = "describe"
	KindExtend    Kind = "extend"
	KindFilter    Kind = "filter"
	KindGraph     Kind = "graph"
	KindJoin      Kind = "join"
	KindOptional  Kind = "optional"
	KindSelect    Kind = "select"
	KindUnion     Kind = "union"
	KindService   Kind = "service"
	KindUnit      Kind = "unit"
	KindValues    Kind = "values"
)

// Mode governs whether new arguments trigger execution.
type Mode int

const (
	// Dormant nodes only recompute their expression.
	Dormant Mode = iota
	// Active nodes re-execute whenever their arguments change.
	Active
)

func (m Mode) String() string {
	if m == Active {
		return "ACTIVE"
	}
	return "DORMANT"
}

// Connection locates the endpoint a node executes against.
type Connection struct {
	Location       string `json:"location" yaml:"location"`
	Authentication string `json:"authentication,omitempty" yaml:"authentication,omitempty"`
}

// IsZero reports whether no location is set.
func (c Connection) IsZero() bool { return c.Location == "" }

// Presentation reasons passed to View.Present.
const (
	ReasonQuery   = "query"
	ReasonResults = "results"
	ReasonError   = "error"
)

// View renders a node. Present is called after a response is accepted and
// after BGP predicate edits.
type View interface {
	Present(n *Node, reason string)
}

// Response is the last accepted execution result of a node.
type Response struct {
	Seq    int64
	Text   string
	Object any
	Err    error
}

// Model is a snapshot of a node for presentation.
type Model struct {
	Expression string `json:"expression"`
	Response   string `json:"response"`
	Data       any    `json:"data"`
}

// Node is one algebra operator in a Tree.
type Node struct {
	ID  NodeID
	Key string

	Source     NodeID
	Child      NodeID
	Complement NodeID

	Payload    Payload
	Dimensions []string

	// Form is the parsed form this node was translated from, if any.
	Form form.Form

	Connection Connection
	Mode       Mode
	View       View

	mu            sync.Mutex
	expression    string
	hasExpression bool
	issued        int64
	response      *Response
	predicates    []string
	hasPredicates bool
}

// Kind returns the operator tag of the node's payload.
func (n *Node) Kind() Kind {
	if n.Payload == nil {
		return KindUnit
	}
	return n.Payload.Kind()
}

// Begin records seq as issued for this node. Sequence numbers may reach
// Begin out of order; the highest one stays the latest.
func (n *Node) Begin(seq int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if seq > n.issued {
		n.issued = seq
	}
}

// Accept stores r if r.Seq is the latest request issued for this node.
// Responses to superseded requests are discarded and Accept returns false.
func (n *Node) Accept(r Response) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if r.Seq != n.issued {
		return false
	}
	n.response = &r
	return true
}

// Response returns the last accepted response.
func (n *Node) Response() (Response, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.response == nil {
		return Response{}, false
	}
	return *n.response, true
}

// Predicates returns the cached predicate list.
func (n *Node) Predicates() ([]string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.predicates, n.hasPredicates
}

// SetPredicates caches ps unless a list is already cached. It returns the
// list that is cached after the call.
func (n *Node) SetPredicates(ps []string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.hasPredicates {
		n.predicates = append([]string(nil), ps...)
		n.hasPredicates = true
	}
	return n.predicates
}

func (n *Node) cachedExpression() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.expression, n.hasExpression
}

func (n *Node) storeExpression(s string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expression = s
	n.hasExpression = true
}

func (n *Node) clearExpression() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expression = ""
	n.hasExpression = false
}
