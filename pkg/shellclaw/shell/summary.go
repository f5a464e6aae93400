// Package shell – summary.go bounds command output for chat transport.
package shell

import "fmt"

// SummaryLimit is the default character budget for a summarized stream.
const SummaryLimit = 1800

// Summarize bounds text to limit characters, keeping the head and tail.
//
// Text at or under the limit is returned unchanged. Oversized text keeps
// 60% of the budget from the start and 35% from the end, with a marker
// counting the characters dropped from the middle. Limits and counts are
// in runes, so a cut never splits a multibyte sequence. Applying
// Summarize to its own output is a no-op.
func Summarize(text string, limit int) string {
	if limit <= 0 {
		limit = SummaryLimit
	}
	if len(text) <= limit {
		// Byte length bounds rune count; nothing to trim.
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	head := runes[:limit*6/10]
	tail := runes[len(runes)-limit*35/100:]
	omitted := len(runes) - len(head) - len(tail)
	return fmt.Sprintf("%s\n...\n[omitted %d chars]\n...\n%s", string(head), omitted, string(tail))
}
