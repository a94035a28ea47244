package intake

import (
	"crypto/sha256"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Origin records how the source reached us.
type Origin string

const (
	OriginPaste  Origin = "paste"
	OriginUpload Origin = "upload"
	OriginFile   Origin = "file"
	OriginStdin  Origin = "stdin"
)

// DefaultMaxBytes is used when Options.MaxBytes is unset.
const DefaultMaxBytes = 256 * 1024

// Options controls validation.
type Options struct {
	MaxBytes int
	// Now is used for ReceivedAt; defaults to time.Now.
	Now func() time.Time
}

func (o Options) maxBytes() int {
	if o.MaxBytes > 0 {
		return o.MaxBytes
	}
	return DefaultMaxBytes
}

// Submission is validated, normalized source text.
type Submission struct {
	text       string
	origin     Origin
	filename   string
	receivedAt time.Time
	lines      int
	hash       string
}

// New validates text and returns a Submission.
func New(text string, origin Origin, filename string, opts Options) (Submission, error) {
	if limit := opts.maxBytes(); len(text) > limit {
		return Submission{}, &OversizeError{Limit: limit, Size: len(text)}
	}
	if strings.IndexByte(text, 0) >= 0 {
		return Submission{}, &NotTextError{Filename: filename}
	}

	text = strings.ToValidUTF8(text, "")
	text = NormalizeNewlines(text)
	if strings.TrimSpace(text) == "" {
		return Submission{}, &EmptyInputError{}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return Submission{
		text:       text,
		origin:     origin,
		filename:   filename,
		receivedAt: now().UTC(),
		lines:      countLines(text),
		hash:       fmt.Sprintf("%x", sha256.Sum256([]byte(text))),
	}, nil
}

// FromUpload reads an uploaded file, enforcing the size limit while reading.
func FromUpload(filename string, r io.Reader, opts Options) (Submission, error) {
	if !IsPythonFile(filename) {
		return Submission{}, &UnsupportedFileError{Filename: filename}
	}
	limit := opts.maxBytes()
	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return Submission{}, fmt.Errorf("reading upload: %w", err)
	}
	if len(data) > limit {
		return Submission{}, &OversizeError{Limit: limit, Size: len(data), Truncated: true}
	}
	return New(string(data), OriginUpload, filepath.Base(filename), opts)
}

// IsPythonFile reports whether name carries a Python source extension.
func IsPythonFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".py", ".pyw", ".pyi":
		return true
	}
	return false
}

// NormalizeNewlines converts \r\n and lone \r to \n.
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

// Text returns the normalized source.
func (s Submission) Text() string { return s.text }

// Origin returns how the source was submitted.
func (s Submission) Origin() Origin { return s.origin }

// Filename returns the uploaded file name, or "" for pasted text.
func (s Submission) Filename() string { return s.filename }

// DisplayName is the name shown in reports and passed to tools.
func (s Submission) DisplayName() string {
	if s.filename != "" {
		return s.filename
	}
	return "snippet.py"
}

// ReceivedAt is when the submission was accepted.
func (s Submission) ReceivedAt() time.Time { return s.receivedAt }

// Lines is the number of lines in the normalized text. A trailing newline
// does not start a new line.
func (s Submission) Lines() int { return s.lines }

// Hash is the hex SHA-256 of the normalized text.
func (s Submission) Hash() string { return s.hash }

// Line returns the 1-based line n without its terminator, or "" if out of range.
func (s Submission) Line(n int) string {
	if n < 1 || n > s.lines {
		return ""
	}
	rest := s.text
	for i := 1; i < n; i++ {
		idx := strings.IndexByte(rest, '\n')
		rest = rest[idx+1:]
	}
	if idx := strings.IndexByte(rest, '\n'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// IsZero reports whether s was never populated.
func (s Submission) IsZero() bool { return s.hash == "" }
