package testutil

import (
	"sync"

	"github.com/roach88/sparqlayers/internal/algebra"
)

// Presentation is one View.Present call.
type Presentation struct {
	Key    string
	Reason string
}

// RecordingView is an algebra.View that records every presentation.
type RecordingView struct {
	mu    sync.Mutex
	calls []Presentation
}

// Present implements algebra.View.
func (v *RecordingView) Present(n *algebra.Node, reason string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, Presentation{Key: n.Key, Reason: reason})
}

// Calls returns a copy of the recorded presentations.
func (v *RecordingView) Calls() []Presentation {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Presentation(nil), v.calls...)
}

// Reasons returns the recorded reasons in call order.
func (v *RecordingView) Reasons() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.calls))
	for _, c := range v.calls {
		out = append(out, c.Reason)
	}
	return out
}
