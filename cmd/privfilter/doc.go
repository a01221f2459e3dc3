// Privfilter finds personal data in structured documents and proposes which
// fields to redact before the document is shared or displayed.
//
// Documents are flattened into field paths, each leaf is classified, and the
// sensitive paths seed a redaction selection the operator can edit. Exit
// codes are deterministic so scans can gate CI pipelines.
//
// Usage:
//
//	privfilter scan cert.json                   # report sensitive fields
//	privfilter scan --format sarif -o out.sarif cert.json
//	privfilter scan --keep name --fail-on high cert.json
//	privfilter flatten --mask cert.yaml         # print field paths, masked
//	privfilter view cert.json                   # show the document redacted
//	privfilter watch cert.json                  # re-render on every save
//	privfilter config set failOn medium
package main
