// Package algebra models a SPARQL query as a tree of algebra operators.
//
// Nodes live in an arena (Tree) and reference each other by NodeID. Each
// node carries a closed, operator-specific Payload. Forward edges are
// explicit:
//
//   - Source: the operation this node further restricts (sequential).
//   - Child: the nested group this node wraps.
//   - Complement: the first branch of a Union.
//
// Reverse relations (Parent, Destination) are computed from the forward
// edges on demand, so they never go stale after the tree is edited.
//
// TRANSLATION:
//
// A Registry maps form tags to TranslateFunc values. Translate dispatches a
// parsed form through the registry; TranslateWhere folds a flat where list
// into a single chain, materialising a Join only at group boundaries. Any
// form that cannot be translated becomes a Unit node carrying the raw form,
// recorded as a Fallback in the Result.
//
// SYNTHESIS:
//
// ComputeForm returns a node's own syntactic contribution; ComputeQuery
// returns the smallest standalone query reproducing the node's effect. Both
// switch exhaustively over the payload types. Clause order is textual left
// to right: the source chain is collected with MapSources and reversed.
//
// Thread-safety: structural edits (Add, Translate, SetExpression,
// SetPredicateState) must not run concurrently with other tree access.
// Per-node runtime state (memoized expression, responses, predicates) is
// guarded by the node's own mutex and may be used from many goroutines.
package algebra
