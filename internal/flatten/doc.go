// Package flatten turns a document into an ordered sequence of (path, value)
// leaf entries and resolves paths back to leaves.
//
// Paths join plain object keys with "." and write array indices as "[n]".
// Keys that are empty or contain any of . [ ] " \ or control characters are
// written in bracket form with a quoted key, e.g. ["a.b"]. The encoding is
// injective: distinct leaves never share a path, and every path produced by
// [Flatten] resolves to exactly one leaf via [Resolve].
//
// Empty objects and empty arrays contribute no entries.
package flatten
