package algebra

import (
	"github.com/roach88/sparqlayers/internal/form"
	"github.com/roach88/sparqlayers/internal/rdf"
)

// ComputeForm returns the syntactic contribution of a single node.
//
// Query operators (ask, construct, describe, select) return a complete
// query whose where clause is their source chain. All other operators return
// the pattern they add to an enclosing group; their own source chain is not
// included.
func (t *Tree) ComputeForm(id NodeID) form.Pattern {
	n := t.Node(id)
	if n == nil {
		return &form.Group{}
	}

	switch p := n.Payload.(type) {
	case *Ask:
		q := &form.Query{QueryType: form.QueryAsk, Where: t.where(n.Source)}
		p.Modifiers.apply(q)
		return q

	case *BGP:
		return &form.BGP{Triples: append([]rdf.Triple(nil), p.Triples...)}

	case *Construct:
		q := &form.Query{
			QueryType: form.QueryConstruct,
			Template:  append([]rdf.Triple(nil), p.Template...),
			Where:     t.where(n.Source),
		}
		p.Modifiers.apply(q)
		return q

	case *Describe:
		vars := form.VariableProjections(n.Dimensions)
		for _, c := range p.Constants {
			vars = append(vars, form.Projection{Term: c})
		}
		if len(vars) == 0 {
			vars = form.Wildcard()
		}
		q := &form.Query{QueryType: form.QueryDescribe, Variables: vars, Where: t.where(n.Source)}
		p.Modifiers.apply(q)
		return q

	case *Extend:
		return &form.Bind{Variable: rdf.NewVariable(p.Variable), Expression: p.Expression}

	case *Filter:
		return &form.Filter{Expression: p.Expression}

	case *Graph:
		return &form.Graph{Name: p.Name, Patterns: t.where(n.Child)}

	case *Join:
		return &form.Group{Patterns: t.where(n.Child)}

	case *Optional:
		return &form.Optional{Patterns: t.where(n.Child)}

	case *Select:
		vars := p.Projections
		if len(vars) == 0 {
			vars = form.Wildcard()
		}
		q := &form.Query{QueryType: form.QuerySelect, Variables: vars, Where: t.where(n.Source)}
		p.Modifiers.apply(q)
		return q

	case *Union:
		return &form.Union{Patterns: []form.Pattern{
			&form.Group{Patterns: t.where(n.Complement)},
			&form.Group{Patterns: t.where(n.Child)},
		}}

	case *Service:
		return &form.Service{Name: p.Name, Silent: p.Silent, Patterns: t.where(n.Child)}

	case *Unit:
		if pat, ok := p.Form.(form.Pattern); ok {
			return pat
		}
		return &form.Group{}

	case *Values:
		v := &form.Values{Variables: make([]rdf.Variable, 0, len(p.Variables))}
		for _, name := range p.Variables {
			v.Variables = append(v.Variables, rdf.NewVariable(name))
		}
		v.Rows = append(v.Rows, p.Rows...)
		return v
	}
	return &form.Group{}
}

// where renders the source chain ending at id as an ordered pattern list,
// furthest source first. A query operator inside the chain already renders
// its own sources, so the walk stops there.
func (t *Tree) where(id NodeID) []form.Pattern {
	chain := MapSources(t, id, func(n *Node) *Node { return n })
	for i, n := range chain {
		if n.Payload != nil && isQueryKind(n.Payload) {
			chain = chain[:i+1]
			break
		}
	}
	patterns := make([]form.Pattern, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		// an empty group's placeholder adds nothing to the enclosing block
		if u, ok := chain[i].Payload.(*Unit); ok && u.Form == nil {
			continue
		}
		patterns = append(patterns, t.ComputeForm(chain[i].ID))
	}
	return patterns
}

// ComputeQuery returns the smallest standalone query reproducing the effect
// of id: query operators return their own query, everything else is wrapped
// as SELECT * over its source chain. The tree's prefixes are attached.
func (t *Tree) ComputeQuery(id NodeID) *form.Query {
	n := t.Node(id)
	var q *form.Query
	if n != nil {
		switch p := n.Payload.(type) {
		case *Ask, *Construct, *Describe, *Select:
			q = t.ComputeForm(id).(*form.Query)
		case *Unit:
			if raw, ok := p.Form.(*form.Query); ok && n.Source == None {
				cp := *raw
				q = &cp
			}
		}
	}
	if q == nil {
		q = form.NewSelect(t.where(id))
	}
	if len(q.Prefixes) == 0 {
		q.Prefixes = append([]form.Prefix(nil), t.Prefixes...)
	}
	return q
}
