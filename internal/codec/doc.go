// Package codec converts between SPARQL query text and the forms of
// internal/form.
//
// Parse reads a query into a *form.Query. Generate renders any form back to
// text. The two are inverse up to layout: Generate(Parse(text)) parses to a
// structurally equal form.
//
// The supported language is SPARQL 1.1 Query without property paths, blank
// node property lists ([ :p :o ]), collections and trailing VALUES clauses.
// Text outside that subset fails with a *ParseError carrying line and column.
//
// Prefixed names are expanded on parse. On generate, IRIs are abbreviated
// with the query's own PREFIX declarations when the local part is a plain name.
package codec
