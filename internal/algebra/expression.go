package algebra

import (
	"fmt"

	"github.com/roach88/sparqlayers/internal/codec"
)

// Expression returns the query text of id, generating and caching it on
// first use. The cache is cleared by SetExpression and by edits below id.
func (t *Tree) Expression(id NodeID) (string, error) {
	n, err := t.mustNode(id)
	if err != nil {
		return "", err
	}
	if s, ok := n.cachedExpression(); ok {
		return s, nil
	}
	s, err := codec.Generate(t.ComputeQuery(id))
	if err != nil {
		return "", fmt.Errorf("expression of node %d: %w", id, err)
	}
	n.storeExpression(s)
	return s, nil
}

// SetExpression replaces the subtree at id with the translation of text.
//
// The node keeps its ID, Key and position in the tree; its payload, edges,
// dimensions and form are taken from the new translation. text becomes the
// node's cached expression and the expressions of its ancestors are
// invalidated.
//
// A parse failure leaves the tree unchanged and returns a *codec.ParseError.
// Forms that cannot be translated are reported in the returned Result.
func (t *Tree) SetExpression(reg *Registry, id NodeID, text string) (Result, error) {
	n, err := t.mustNode(id)
	if err != nil {
		return Result{}, err
	}
	q, err := codec.Parse(text)
	if err != nil {
		return Result{}, fmt.Errorf("set expression of node %d: %w", id, err)
	}

	res := t.Translate(reg, q)
	fresh := t.Node(res.Root)

	n.Payload = fresh.Payload
	n.Source = fresh.Source
	n.Child = fresh.Child
	n.Complement = fresh.Complement
	n.Dimensions = fresh.Dimensions
	n.Form = fresh.Form

	// The translated root is now an orphan; leave it as an empty placeholder.
	fresh.Payload = &Unit{}
	fresh.Source, fresh.Child, fresh.Complement = None, None, None
	fresh.Dimensions = nil
	fresh.Form = nil

	for i := range res.Fallbacks {
		if res.Fallbacks[i].Node == res.Root {
			res.Fallbacks[i].Node = id
		}
	}
	res.Root = id

	conn := n.Connection
	t.MapOperations(id, func(m *Node) {
		if m.Connection.IsZero() {
			m.Connection = conn
		}
	})

	t.invalidate(id)
	t.resolveDimensions(t.Root(id))
	n.storeExpression(text)

	t.logger.Debug("expression replaced",
		"node", id,
		"kind", n.Kind(),
		"fallbacks", len(res.Fallbacks))
	return res, nil
}

// Model returns the presentation snapshot of id.
func (t *Tree) Model(id NodeID) (Model, error) {
	n, err := t.mustNode(id)
	if err != nil {
		return Model{}, err
	}
	expr, err := t.Expression(id)
	if err != nil {
		return Model{}, err
	}
	m := Model{Expression: expr}
	if r, ok := n.Response(); ok {
		m.Response = r.Text
		m.Data = r.Object
	}
	return m, nil
}
