// Package scenario provides a YAML-driven simulator for the governance core.
//
// A scenario file declares named accounts, the two recognized beacon pairs,
// and a step list of governance operations with expected outcomes. The runner
// executes the steps against an in-memory network with a manual clock and a
// fixed id generator, so the same scenario always produces a byte-identical
// event trace. Traces are compared against golden files.
//
// Scenario files are validated twice: strict YAML decoding rejects unknown
// fields (typos), and an embedded CUE schema rejects structurally valid but
// semantically wrong documents (bad op names, malformed addresses).
package scenario
