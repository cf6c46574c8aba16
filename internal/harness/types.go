package harness

import "github.com/roach88/sparqlayers/internal/algebra"

// TraceEvent records one flow step.
type TraceEvent struct {
	Step   int    `json:"step"`
	Op     string `json:"op"`
	Node   int    `json:"node"`
	Seq    int64  `json:"seq,omitempty"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// NodeQuery is the standalone query of one operator.
type NodeQuery struct {
	Node       int          `json:"node"`
	Kind       algebra.Kind `json:"kind"`
	Dimensions []string     `json:"dimensions"`
	Query      string       `json:"query"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Tree is the algebra.Format outline of the final tree.
	Tree string `json:"tree"`

	// Queries lists every operator's query in pre-order.
	Queries []NodeQuery `json:"queries"`

	// Trace contains one event per flow step.
	Trace []TraceEvent `json:"trace"`

	// Requests is the number of requests the endpoint received.
	Requests int `json:"requests"`

	// Recorded is the number of executions in the execution log.
	Recorded int `json:"recorded"`

	// Fallbacks is the number of untranslated forms in the loaded query.
	Fallbacks int `json:"fallbacks"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// query returns the NodeQuery at pre-order position node.
func (r *Result) query(node int) (NodeQuery, bool) {
	if node < 0 || node >= len(r.Queries) {
		return NodeQuery{}, false
	}
	return r.Queries[node], true
}
