// Package engine runs algebra trees against SPARQL endpoints.
//
// The engine owns the runtime side of a node: it renders the node's
// expression, sends it through a protocol.Transport and stores the decoded
// response on the node.
//
// ARCHITECTURE:
//
// Request Flow:
// 1. Execute resolves the connection (call, then node, then engine default)
// 2. The request is stamped with Clock.Next() and recorded with Node.Begin
// 3. The transport fetches the response
// 4. acceptResponse decodes it and applies it only if it is still the
//    latest request for the node, then notifies the node's View
// 5. The outcome is appended to the execution log if a Recorder is set
//
// Predicate Discovery:
// WithPredicates walks up parent and destination links to the root of the
// connected tree, which performs a single fetch shared by every caller.
//
// CRITICAL PATTERNS:
//
// Last request wins:
// A response whose sequence number is not the latest issued for its node
// is dropped and reported as superseded. Completion order never decides
// which response a node shows.
//
// Shared fetch:
// Concurrent predicate fetches for one root are collapsed with
// singleflight, so a tree of N nodes costs exactly one request.
package engine
