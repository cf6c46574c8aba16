// Package form provides the parsed-syntax representation of SPARQL queries.
//
// A Form is one syntactic construct: a whole query, a group, a basic graph
// pattern, a FILTER, and so on. Forms are produced by internal/codec.Parse,
// consumed by the algebra translators, and rendered back to text by
// internal/codec.Generate.
//
// SEALED INTERFACES:
//
// Form, Pattern and Expression are sealed with marker methods. Only types in
// this package implement them, so consumers can switch exhaustively:
//
//	switch p := pattern.(type) {
//	case *BGP:
//	case *Group:
//	...
//	case *Opaque:
//	    // tag the codec does not model
//	}
//
// TYPE TAGS:
//
// Every Form reports a lower-case tag through Type(). Tags are the keys of the
// algebra translator registry:
//
//	bgp group filter bind optional minus union values graph service query
//
// Opaque carries an arbitrary tag and its fields untouched. It exists so a
// translator can wrap a construct it does not understand instead of failing.
package form
