package diff

import "strings"

// Kind classifies a segment.
type Kind string

const (
	Unchanged Kind = "unchanged"
	Added     Kind = "added"
	Removed   Kind = "removed"
)

// Span is a half-open range of 0-based line indexes.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of lines covered by the span.
func (s Span) Len() int { return s.End - s.Start }

// Segment is one run of lines sharing the same kind. Added segments have an
// empty Original span positioned at the insertion point; removed segments
// have an empty Formatted span.
type Segment struct {
	Kind      Kind   `json:"kind"`
	Original  Span   `json:"original"`
	Formatted Span   `json:"formatted"`
	Text      string `json:"text"`
}

// Lines splits text into lines, keeping each line's "\n" terminator. A final
// line without a terminator is kept as is.
func Lines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Build compares original and formatted line by line.
func Build(original, formatted string) []Segment {
	a := Lines(original)
	b := Lines(formatted)
	return group(a, b, align(a, b))
}

// OriginalText concatenates the original side of segs.
func OriginalText(segs []Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		if s.Kind != Added {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// FormattedText concatenates the formatted side of segs.
func FormattedText(segs []Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		if s.Kind != Removed {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

// Stats summarizes a diff in lines.
type Stats struct {
	Added     int `json:"added"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Blocks    int `json:"blocks"`
}

// Changed reports whether the diff contains any added or removed line.
func (s Stats) Changed() bool { return s.Added > 0 || s.Removed > 0 }

// ComputeStats counts the lines of each kind and the number of changed blocks.
// A removed segment directly followed by an added one counts as one block.
func ComputeStats(segs []Segment) Stats {
	var st Stats
	prev := Unchanged
	for _, s := range segs {
		switch s.Kind {
		case Unchanged:
			st.Unchanged += s.Original.Len()
		case Removed:
			st.Removed += s.Original.Len()
			st.Blocks++
		case Added:
			st.Added += s.Formatted.Len()
			if prev != Removed {
				st.Blocks++
			}
		}
		prev = s.Kind
	}
	return st
}
