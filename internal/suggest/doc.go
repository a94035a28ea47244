// Package suggest asks an LLM provider for improvement suggestions on a
// Python submission.
//
// The source is redacted before it leaves the process, the call is bounded by
// a timeout and made exactly once, and responses are cached on disk keyed by
// the redacted request. Every failure is reported as an error wrapping
// [ErrUnavailable]; the review engine turns it into a flagged, empty
// suggestions section rather than a failed review.
package suggest
