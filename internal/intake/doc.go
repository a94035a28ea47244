// Package intake validates and normalizes submitted Python source.
//
// A [Submission] is the immutable, request-scoped input to every other
// component. Construction rejects blank text ([EmptyInputError]), text over
// the configured size ([OversizeError]), binary content ([NotTextError]) and
// uploads without a Python file extension ([UnsupportedFileError]). Line
// endings are normalized to "\n" before anything downstream sees the text.
package intake
