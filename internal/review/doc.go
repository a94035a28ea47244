// Package review contains the core types and the pipeline engine for
// reviewing a Python submission.
//
// It defines Finding, Suggestion, Report and Severity, and generates stable
// finding IDs as SHA-256 hashes of rule, position and message.
//
// Engine.Run drives one review: the analyzer and then the suggestion client
// run on one goroutine while the formatter and diff builder run on another.
// Stage failures do not fail the run; Assemble records them as unavailable
// sections in the Report, which is never modified once built.
//
// Rules packs (rules.go) allow callers to disable rules, override finding
// severities, and pass focus areas and required checks to the AI service.
// They may be written in JSON, YAML or TOML.
package review
