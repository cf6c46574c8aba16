package server

import (
	"github.com/roach88/sparqlayers/internal/algebra"
)

type nodeView struct {
	ID         algebra.NodeID `json:"id"`
	Key        string         `json:"key"`
	Kind       algebra.Kind   `json:"kind"`
	Mode       string         `json:"mode"`
	Dimensions []string       `json:"dimensions"`
	Source     algebra.NodeID `json:"source,omitempty"`
	Child      algebra.NodeID `json:"child,omitempty"`
	Complement algebra.NodeID `json:"complement,omitempty"`
	Expression string         `json:"expression,omitempty"`
}

func viewOf(n *algebra.Node) nodeView {
	dims := n.Dimensions
	if dims == nil {
		dims = []string{}
	}
	return nodeView{
		ID:         n.ID,
		Key:        n.Key,
		Kind:       n.Kind(),
		Mode:       n.Mode.String(),
		Dimensions: dims,
		Source:     n.Source,
		Child:      n.Child,
		Complement: n.Complement,
	}
}

type fallbackView struct {
	Node   algebra.NodeID `json:"node"`
	Tag    string         `json:"tag"`
	Reason string         `json:"reason"`
}

func fallbackViews(fs []algebra.Fallback) []fallbackView {
	out := make([]fallbackView, 0, len(fs))
	for _, f := range fs {
		out = append(out, fallbackView{Node: f.Node, Tag: f.Tag, Reason: f.Reason})
	}
	return out
}
