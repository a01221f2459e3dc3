// Package classify decides which leaves of a flattened document hold
// personally-sensitive data.
//
// Classification is rule based. Each [Rule] tests a single entry and either
// reports a [Match] with a category and severity, declines, or returns an
// error wrapping [ErrUnclassifiable] when the entry has a shape it cannot
// evaluate. Errors and panics are contained to that rule and that entry; the
// scan always runs to completion.
//
// Key rules look at the object keys along a field path (case folded, with
// punctuation removed), value rules look at string values, and the credential
// rule reuses the secret heuristics for API keys, JWTs and provider tokens.
//
// The classifier emits one [Descriptor] per sensitive path. When several rules
// match, the first matching rule decides the primary category; every matching
// category and rule is recorded, and the highest severity wins.
//
// Rule packs (YAML or JSON) can disable built-in rules, add custom key and
// value patterns, override severities per category, and ignore paths.
package classify
