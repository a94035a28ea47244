package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxCells bounds the alignment table. Larger middles fall back to the
// line-mode Myers diff from diffmatchpatch, which still yields a minimal
// script but without the run tie-break.
const maxCells = 16 << 20

type op uint8

const (
	opEqual op = iota + 1
	opDelete
	opInsert
)

// align returns the edit script turning a into b. The common prefix and
// suffix are only stripped when the full table exceeds maxCells: pinning them
// as matches can split what would otherwise be a single unchanged run.
func align(a, b []string) []op {
	if (len(a)+1)*(len(b)+1) <= maxCells {
		return alignRuns(a, b, false)
	}

	prefix := 0
	for prefix < len(a) && prefix < len(b) && a[prefix] == b[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(a)-prefix && suffix < len(b)-prefix &&
		a[len(a)-1-suffix] == b[len(b)-1-suffix] {
		suffix++
	}

	ops := make([]op, 0, len(a)+len(b))
	for i := 0; i < prefix; i++ {
		ops = append(ops, opEqual)
	}

	midA := a[prefix : len(a)-suffix]
	midB := b[prefix : len(b)-suffix]
	switch {
	case len(midA) == 0:
		for range midB {
			ops = append(ops, opInsert)
		}
	case len(midB) == 0:
		for range midA {
			ops = append(ops, opDelete)
		}
	case (len(midA)+1)*(len(midB)+1) > maxCells:
		ops = append(ops, alignMyers(midA, midB)...)
	default:
		ops = append(ops, alignRuns(midA, midB, prefix > 0)...)
	}

	for i := 0; i < suffix; i++ {
		ops = append(ops, opEqual)
	}
	return ops
}

// alignRuns maximizes matched lines and, among those alignments, minimizes
// the number of unchanged runs. Scores are packed as matches*k - runs with
// k larger than any possible run count, so one comparison orders both.
// Ties prefer a match, then a deletion, then an insertion.
func alignRuns(a, b []string, afterMatch bool) []op {
	n, m := len(a), len(b)
	k := n + m + 2
	w := m + 1

	// next[j*2+p] holds the best score for a[i+1:], b[j:] given p.
	next := make([]int, w*2)
	cur := make([]int, w*2)
	choice := make([]op, (n+1)*w*2)

	for i := n; i >= 0; i-- {
		for j := m; j >= 0; j-- {
			for p := 0; p < 2; p++ {
				idx := (i*w+j)*2 + p
				if i == n && j == m {
					cur[j*2+p] = 0
					continue
				}
				best, bestOp := 0, op(0)
				if i < n && j < m && a[i] == b[j] {
					s := next[(j+1)*2+1] + k
					if p == 0 {
						s--
					}
					best, bestOp = s, opEqual
				}
				if i < n {
					if s := next[j*2]; bestOp == 0 || s > best {
						best, bestOp = s, opDelete
					}
				}
				if j < m {
					if s := cur[(j+1)*2]; bestOp == 0 || s > best {
						best, bestOp = s, opInsert
					}
				}
				cur[j*2+p] = best
				choice[idx] = bestOp
			}
		}
		next, cur = cur, next
	}

	ops := make([]op, 0, n+m)
	i, j, p := 0, 0, 0
	if afterMatch {
		p = 1
	}
	for i < n || j < m {
		o := choice[(i*w+j)*2+p]
		ops = append(ops, o)
		switch o {
		case opEqual:
			i, j, p = i+1, j+1, 1
		case opDelete:
			i, p = i+1, 0
		case opInsert:
			j, p = j+1, 0
		}
	}
	return ops
}

func alignMyers(a, b []string) []op {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(strings.Join(a, ""), strings.Join(b, ""))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineArray)

	ops := make([]op, 0, len(a)+len(b))
	for _, d := range diffs {
		count := len(Lines(d.Text))
		var o op
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			o = opEqual
		case diffmatchpatch.DiffDelete:
			o = opDelete
		case diffmatchpatch.DiffInsert:
			o = opInsert
		}
		for c := 0; c < count; c++ {
			ops = append(ops, o)
		}
	}
	return ops
}

// group turns an edit script into segments. Within a changed block every
// deletion is emitted before any insertion.
func group(a, b []string, ops []op) []Segment {
	var segs []Segment
	i, j := 0, 0
	for x := 0; x < len(ops); {
		if ops[x] == opEqual {
			start := x
			for x < len(ops) && ops[x] == opEqual {
				x++
			}
			cnt := x - start
			segs = append(segs, Segment{
				Kind:      Unchanged,
				Original:  Span{i, i + cnt},
				Formatted: Span{j, j + cnt},
				Text:      strings.Join(a[i:i+cnt], ""),
			})
			i += cnt
			j += cnt
			continue
		}

		dels, ins := 0, 0
		for x < len(ops) && ops[x] != opEqual {
			if ops[x] == opDelete {
				dels++
			} else {
				ins++
			}
			x++
		}
		if dels > 0 {
			segs = append(segs, Segment{
				Kind:      Removed,
				Original:  Span{i, i + dels},
				Formatted: Span{j, j},
				Text:      strings.Join(a[i:i+dels], ""),
			})
		}
		if ins > 0 {
			segs = append(segs, Segment{
				Kind:      Added,
				Original:  Span{i + dels, i + dels},
				Formatted: Span{j, j + ins},
				Text:      strings.Join(b[j:j+ins], ""),
			})
		}
		i += dels
		j += ins
	}
	return segs
}
