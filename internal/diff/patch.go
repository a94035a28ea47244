package diff

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"fortio.org/safecast"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

const noNewline = "\\ No newline at end of file\n"

type patchLine struct {
	mark byte
	text string
}

// WritePatch writes segs as a unified diff of name. Nothing is written when
// the segments contain no change.
func WritePatch(w io.Writer, name string, segs []Segment, context int) error {
	if context < 0 {
		context = DefaultContext
	}
	hunks, err := buildHunks(flatten(segs), context)
	if err != nil {
		return err
	}
	if len(hunks) == 0 {
		return nil
	}
	fd := &godiff.FileDiff{
		OrigName: "a/" + name,
		NewName:  "b/" + name,
		Hunks:    hunks,
	}
	out, err := godiff.PrintFileDiff(fd)
	if err != nil {
		return fmt.Errorf("printing patch: %w", err)
	}
	_, err = w.Write(out)
	return err
}

// Patch returns the unified diff of name as a string.
func Patch(name string, segs []Segment) (string, error) {
	var b bytes.Buffer
	if err := WritePatch(&b, name, segs, DefaultContext); err != nil {
		return "", err
	}
	return b.String(), nil
}

func flatten(segs []Segment) []patchLine {
	var lines []patchLine
	for _, s := range segs {
		mark := byte(' ')
		switch s.Kind {
		case Removed:
			mark = '-'
		case Added:
			mark = '+'
		}
		for _, l := range Lines(s.Text) {
			lines = append(lines, patchLine{mark: mark, text: l})
		}
	}
	return lines
}

func buildHunks(lines []patchLine, context int) ([]*godiff.Hunk, error) {
	var hunks []*godiff.Hunk
	oldBefore, newBefore := 0, 0
	pos := 0
	for x := 0; x < len(lines); {
		if lines[x].mark == ' ' {
			x++
			continue
		}
		start := max(x-context, pos)
		last := x
		for y := x + 1; y < len(lines) && y <= last+2*context+1; y++ {
			if lines[y].mark != ' ' {
				last = y
			}
		}
		end := min(last+context+1, len(lines))

		gap := start - pos
		oldBefore += gap
		newBefore += gap

		h, err := makeHunk(lines[start:end], oldBefore, newBefore)
		if err != nil {
			return nil, err
		}
		hunks = append(hunks, h)

		for _, l := range lines[start:end] {
			if l.mark != '+' {
				oldBefore++
			}
			if l.mark != '-' {
				newBefore++
			}
		}
		pos = end
		x = end
	}
	return hunks, nil
}

func makeHunk(lines []patchLine, oldBefore, newBefore int) (*godiff.Hunk, error) {
	var body strings.Builder
	oldCount, newCount := 0, 0
	for _, l := range lines {
		if l.mark != '+' {
			oldCount++
		}
		if l.mark != '-' {
			newCount++
		}
		body.WriteByte(l.mark)
		body.WriteString(l.text)
		if !strings.HasSuffix(l.text, "\n") {
			body.WriteString("\n")
			body.WriteString(noNewline)
		}
	}

	oldStart, newStart := oldBefore, newBefore
	if oldCount > 0 {
		oldStart++
	}
	if newCount > 0 {
		newStart++
	}

	var h godiff.Hunk
	var err error
	if h.OrigStartLine, err = safecast.Conv[int32](oldStart); err != nil {
		return nil, fmt.Errorf("hunk start: %w", err)
	}
	if h.OrigLines, err = safecast.Conv[int32](oldCount); err != nil {
		return nil, fmt.Errorf("hunk length: %w", err)
	}
	if h.NewStartLine, err = safecast.Conv[int32](newStart); err != nil {
		return nil, fmt.Errorf("hunk start: %w", err)
	}
	if h.NewLines, err = safecast.Conv[int32](newCount); err != nil {
		return nil, fmt.Errorf("hunk length: %w", err)
	}
	h.Body = []byte(body.String())
	return &h, nil
}
