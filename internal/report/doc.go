// Package report builds the scan report: the sensitive fields found in a
// document, the redaction selection and a severity summary. Reports are
// rendered by package output.
package report
