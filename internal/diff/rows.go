package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Row is one line of a side-by-side view. Line numbers are 1-based; zero
// means the side is blank.
type Row struct {
	Kind     Kind       `json:"kind"`
	LeftNo   int        `json:"leftNo,omitempty"`
	RightNo  int        `json:"rightNo,omitempty"`
	Left     []Fragment `json:"left,omitempty"`
	Right    []Fragment `json:"right,omitempty"`
	Modified bool       `json:"modified,omitempty"`
}

// Fragment is a piece of a line, marked when it differs from the other side.
type Fragment struct {
	Text    string `json:"text"`
	Changed bool   `json:"changed,omitempty"`
}

// LeftText returns the left side without highlighting.
func (r Row) LeftText() string { return joinFragments(r.Left) }

// RightText returns the right side without highlighting.
func (r Row) RightText() string { return joinFragments(r.Right) }

func joinFragments(fs []Fragment) string {
	var sb strings.Builder
	for _, f := range fs {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

// Rows lays segments out side by side. A removed segment followed by an added
// one is paired line by line; paired rows are marked Modified and carry
// intra-line highlights.
func Rows(segs []Segment) []Row {
	var rows []Row
	for x := 0; x < len(segs); x++ {
		s := segs[x]
		switch s.Kind {
		case Unchanged:
			for k, line := range Lines(s.Text) {
				text := trimEOL(line)
				rows = append(rows, Row{
					Kind:    Unchanged,
					LeftNo:  s.Original.Start + k + 1,
					RightNo: s.Formatted.Start + k + 1,
					Left:    []Fragment{{Text: text}},
					Right:   []Fragment{{Text: text}},
				})
			}
		case Removed:
			var added *Segment
			if x+1 < len(segs) && segs[x+1].Kind == Added {
				added = &segs[x+1]
				x++
			}
			rows = append(rows, pairRows(s, added)...)
		case Added:
			for k, line := range Lines(s.Text) {
				rows = append(rows, Row{
					Kind:    Added,
					RightNo: s.Formatted.Start + k + 1,
					Right:   []Fragment{{Text: trimEOL(line), Changed: true}},
				})
			}
		}
	}
	return rows
}

func pairRows(removed Segment, added *Segment) []Row {
	left := Lines(removed.Text)
	var right []string
	rightStart := 0
	if added != nil {
		right = Lines(added.Text)
		rightStart = added.Formatted.Start
	}

	n := max(len(left), len(right))
	rows := make([]Row, 0, n)
	for k := 0; k < n; k++ {
		switch {
		case k < len(left) && k < len(right):
			l, r := Inline(trimEOL(left[k]), trimEOL(right[k]))
			rows = append(rows, Row{
				Kind:     Removed,
				LeftNo:   removed.Original.Start + k + 1,
				RightNo:  rightStart + k + 1,
				Left:     l,
				Right:    r,
				Modified: true,
			})
		case k < len(left):
			rows = append(rows, Row{
				Kind:   Removed,
				LeftNo: removed.Original.Start + k + 1,
				Left:   []Fragment{{Text: trimEOL(left[k]), Changed: true}},
			})
		default:
			rows = append(rows, Row{
				Kind:    Added,
				RightNo: rightStart + k + 1,
				Right:   []Fragment{{Text: trimEOL(right[k]), Changed: true}},
			})
		}
	}
	return rows
}

// Inline highlights the characters that differ between two versions of a
// line. The left result holds the old line, the right the new one.
func Inline(a, b string) (left, right []Fragment) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			left = appendFragment(left, d.Text, false)
			right = appendFragment(right, d.Text, false)
		case diffmatchpatch.DiffDelete:
			left = appendFragment(left, d.Text, true)
		case diffmatchpatch.DiffInsert:
			right = appendFragment(right, d.Text, true)
		}
	}
	return left, right
}

func appendFragment(fs []Fragment, text string, changed bool) []Fragment {
	if text == "" {
		return fs
	}
	if n := len(fs); n > 0 && fs[n-1].Changed == changed {
		fs[n-1].Text += text
		return fs
	}
	return append(fs, Fragment{Text: text, Changed: changed})
}

func trimEOL(line string) string {
	return strings.TrimSuffix(line, "\n")
}
