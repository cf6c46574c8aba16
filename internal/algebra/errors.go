package algebra

import "errors"

var (
	// ErrUnknownNode is returned for a NodeID outside the tree.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNotBGP is returned when a predicate operation targets a non-BGP node.
	ErrNotBGP = errors.New("node is not a bgp")

	// ErrDimensionTaken is returned when a dimension name is already bound to
	// another predicate.
	ErrDimensionTaken = errors.New("dimension already bound")

	// ErrInvalidDimension is returned for a dimension name that is not a
	// valid variable name.
	ErrInvalidDimension = errors.New("invalid dimension name")

	// ErrUnknownPredicate is returned when a BGP has no triple with the
	// given predicate.
	ErrUnknownPredicate = errors.New("predicate not in bgp")

	// ErrDuplicateTranslator is returned when a tag is registered twice.
	ErrDuplicateTranslator = errors.New("translator already registered")
)
