// Package filter ties document loading, flattening, classification and the
// redaction selection together.
//
// A [Filter] holds the currently displayed document. Every replacement runs
// the same sequence: normalize the incoming value, optionally unwrap an
// envelope, require an object at the root, flatten, classify, and finally
// install the result and seed the redaction selection with the sensitive
// paths. A rejected replacement leaves the previous document, its findings
// and the operator's edits untouched.
//
// Operator edits ([Filter.Add], [Filter.Remove], [Filter.Toggle],
// [Filter.SetRedactions]) apply to the current document only; the next
// replacement discards them. Subscribers receive a [Snapshot] after every
// change, synchronously and in registration order.
package filter
