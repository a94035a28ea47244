package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/pyreview/internal/review"
)

// JSONWriter outputs the full report as JSON. Source text is written as-is,
// so comparisons and ampersands in code survive without \u escapes.
type JSONWriter struct{}

func (j *JSONWriter) Write(w io.Writer, report *review.Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	return nil
}
