// Package notes edits note text: the generated summary region, the source
// URL heading and note templates.
package notes

import "strings"

const (
	SummaryStartMarker = "<!-- paper_extractor:summary:start -->"
	SummaryEndMarker   = "<!-- paper_extractor:summary:end -->"
)

// BuildSummaryBlock wraps summary in the start/end markers. Markers inside
// the summary are dropped so the region stays well formed.
func BuildSummaryBlock(summary string) string {
	summary = strings.ReplaceAll(summary, SummaryStartMarker, "")
	summary = strings.ReplaceAll(summary, SummaryEndMarker, "")
	return SummaryStartMarker + "\n\n" + summary + "\n\n" + SummaryEndMarker
}

// UpsertSummaryBlock replaces the existing summary region in place, or
// appends a new one at the end of the note. Text outside the region is
// left byte-identical.
func UpsertSummaryBlock(noteText, summary string) string {
	block := BuildSummaryBlock(summary)

	if startIdx, endIdx, ok := findRegion(noteText); ok {
		return noteText[:startIdx] + block + noteText[endIdx+len(SummaryEndMarker):]
	}

	suffix := "\n\n"
	if strings.HasSuffix(noteText, "\n") {
		suffix = "\n"
	}
	return noteText + suffix + block
}

// ExtractSummary returns the text between the markers, if present
func ExtractSummary(noteText string) (string, bool) {
	startIdx, endIdx, ok := findRegion(noteText)
	if !ok {
		return "", false
	}
	inner := noteText[startIdx+len(SummaryStartMarker) : endIdx]
	return strings.TrimSpace(inner), true
}

// findRegion locates the first start marker and the first end marker after it
func findRegion(noteText string) (int, int, bool) {
	startIdx := strings.Index(noteText, SummaryStartMarker)
	if startIdx < 0 {
		return 0, 0, false
	}
	rel := strings.Index(noteText[startIdx+len(SummaryStartMarker):], SummaryEndMarker)
	if rel < 0 {
		return 0, 0, false
	}
	return startIdx, startIdx + len(SummaryStartMarker) + rel, true
}
