// Package document defines the in-memory model for documents inspected by
// privfilter and the parsers that build it.
//
// A document is a tree of ordered objects, arrays and scalars. Objects keep
// the key order of the source file so that flattening, reporting and display
// follow the order an operator sees in the original document. JSON, YAML and
// TOML sources are supported; OpenAttestation v2 wrapped documents can be
// unwrapped into their plain data with [Unwrap].
package document
