// Package harness runs query scenarios end to end against a canned endpoint.
//
// A scenario is a YAML file naming a query, the endpoint's canned answers,
// a flow of steps (execute, predicate discovery, BGP edits, expression
// replacement) and assertions over the final tree. Each run gets a fresh
// in-memory store, a counting stub transport and sequential node keys, so
// the same scenario always produces the same snapshot.
//
// Steps and assertions address operators by their position in pre-order
// (root first, then source, child and complement subtrees), never by arena
// ID or key.
//
// Snapshots are compared with goldie against testdata/golden/{name}.golden.
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
package harness
