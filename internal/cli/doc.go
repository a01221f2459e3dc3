// Package cli wires together the Cobra command tree for the privfilter binary.
//
// It defines the root command and all subcommands (scan, flatten, view,
// watch, config, version), binds flags, reads configuration, drives the
// privacy filter, and returns deterministic exit codes for CI gating.
package cli
