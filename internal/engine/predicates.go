package engine

import (
	"context"
	"fmt"

	"github.com/roach88/sparqlayers/internal/algebra"
	"github.com/roach88/sparqlayers/internal/protocol"
)

// PredicatesQuery enumerates every predicate in the default graph and in
// all named graphs.
const PredicatesQuery = `SELECT DISTINCT ?p WHERE {
  {
    ?s ?p ?o .
  }
  UNION
  {
    GRAPH ?g {
      ?s ?p ?o .
    }
  }
}
ORDER BY ?p`

// WithPredicates returns the predicates observable at id.
//
// A cached list is returned as is. Otherwise the lookup is delegated to the
// node's parent, then its destination, so the whole connected tree shares
// the list of its root; every node on the way caches the result. Only the
// root fetches from its endpoint. Concurrent fetches for the same root are
// collapsed into one request, which keeps running when a waiting caller's
// ctx is cancelled.
func (e *Engine) WithPredicates(ctx context.Context, tree *algebra.Tree, id algebra.NodeID) ([]string, error) {
	n := tree.Node(id)
	if n == nil {
		return nil, newRuntimeError(ErrCodeUnknownNode, "", fmt.Sprintf("node %d", id), nil)
	}
	if ps, ok := n.Predicates(); ok {
		return ps, nil
	}

	for _, up := range []algebra.NodeID{tree.Parent(id), tree.Destination(id)} {
		if up == algebra.None {
			continue
		}
		ps, err := e.WithPredicates(ctx, tree, up)
		if err != nil {
			return nil, err
		}
		return n.SetPredicates(ps), nil
	}

	conn := e.connection(algebra.Connection{}, n.Connection)
	// The fetch is shared, so it must outlive any one caller's cancellation.
	fetchCtx := context.WithoutCancel(ctx)
	ch := e.flight.DoChan(n.Key, func() (any, error) {
		if ps, ok := n.Predicates(); ok {
			return ps, nil
		}
		ps, err := e.fetchPredicates(fetchCtx, conn)
		if err != nil {
			return nil, err
		}
		return n.SetPredicates(ps), nil
	})

	select {
	case <-ctx.Done():
		return nil, newRuntimeError(ErrCodeTransport, n.Key, "fetch predicates", ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, newRuntimeError(ErrCodeTransport, n.Key, "fetch predicates", r.Err)
		}
		if r.Shared {
			e.logger.Debug("predicate fetch shared", "node", n.Key)
		}
		return r.Val.([]string), nil
	}
}

func (e *Engine) fetchPredicates(ctx context.Context, conn algebra.Connection) ([]string, error) {
	resp, err := e.transport.Get(ctx, conn.Location, PredicatesQuery, protocol.Options{
		Authentication: conn.Authentication,
		Accept:         protocol.AcceptResults,
	})
	if err != nil {
		return nil, err
	}
	results, err := protocol.DecodeResults(resp.Body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	ps := []string{}
	for _, row := range results.Bindings() {
		b, ok := row["p"]
		if !ok || b.Type != protocol.BindingURI || seen[b.Value] {
			continue
		}
		seen[b.Value] = true
		ps = append(ps, b.Value)
	}
	e.logger.Debug("predicates fetched", "location", conn.Location, "count", len(ps))
	return ps, nil
}
