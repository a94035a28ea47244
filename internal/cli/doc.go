// Package cli wires together the Cobra command tree for the pyreview binary.
//
// It defines the root command and all subcommands (serve, review, config,
// models, tools, cache, version), binds flags, reads configuration, builds
// the review engine, and returns deterministic exit codes for CI gating.
package cli
