// Package tribute builds the two fixed tribute texts shown on the page and
// posted by the chat bots. Every text is normalized to exactly WordCount words.
package tribute

import "strings"

// WordCount is the exact number of words every composed text contains.
const WordCount = 200

// Closing is appended to the joined fragments before padding or truncation.
const Closing = "I will keep you in my stories and in the quiet corners of my days."

// Compose joins fragments in order, appends Closing and normalizes the result
// to exactly WordCount space-separated words. Short texts are padded with the
// words of pad, repeated as often as needed; the final repetition may be cut
// mid-phrase. Long texts are truncated.
func Compose(fragments []string, pad string) string {
	base := strings.TrimSpace(strings.Join(fragments, ""))
	base += " " + Closing
	words := strings.Fields(base)

	// A pad without words would never reach WordCount.
	if len(strings.Fields(pad)) == 0 {
		pad = Closing
	}
	for len(words) < WordCount {
		words = append(words, strings.Fields(pad)...)
	}
	if len(words) > WordCount {
		words = words[:WordCount]
	}
	return strings.Join(words, " ")
}
