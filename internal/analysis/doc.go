// Package analysis runs static checks over a submission and turns their
// output into review findings.
//
// Three sources contribute findings: flake8 (style and error codes, source
// piped on stdin), radon (cyclomatic complexity per function) and a small set
// of built-in heuristics (PY001-PY006). Findings are clamped into the bounds
// of the submission and returned in document order.
//
// When a tool is missing, crashes, or cannot parse the source, Analyze
// returns no findings and an error wrapping ErrUnavailable. Callers treat
// that as a soft failure and still produce a report.
package analysis
