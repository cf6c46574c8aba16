// Package rdf provides the typed RDF term and triple-pattern values shared by
// the codec and the algebra.
//
// This package contains value types and pure helpers only. All other internal
// packages may import rdf; rdf imports nothing internal.
//
// Key design constraints:
//   - Term is a sealed interface: NamedNode, BlankNode, Variable, Wildcard, Literal
//   - Terms are immutable values and compare structurally (Equal)
//   - IRIs and literal lexical forms are NFC normalized on construction so
//     two spellings of the same text never produce unequal terms
//   - Variable names are stored without the leading '?' or '$'
package rdf
