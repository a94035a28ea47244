package output

import (
	"io"

	"github.com/dshills/pyreview/internal/diff"
	"github.com/dshills/pyreview/internal/review"
)

// PatchWriter outputs the formatting changes as a unified diff. Nothing is
// written when black changed nothing.
type PatchWriter struct {
	Context int
}

func (p *PatchWriter) Write(w io.Writer, report *review.Report) error {
	context := p.Context
	if context <= 0 {
		context = diff.DefaultContext
	}
	return diff.WritePatch(w, report.Input.Name, report.Diff, context)
}
