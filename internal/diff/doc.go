// Package diff builds the line-level comparison between a submission and its
// formatted counterpart.
//
// Build aligns the two texts with a longest-common-subsequence alignment and,
// among alignments with the same number of matched lines, picks the one with
// the fewest unchanged runs so that unchanged text stays in contiguous blocks.
// The resulting segments reproduce both inputs exactly when concatenated, see
// OriginalText and FormattedText.
//
// Rows and Inline shape segments for side-by-side display, and WritePatch
// renders them as a unified diff.
package diff
