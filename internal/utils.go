package internal

import "unicode/utf8"

// Version is the dsxlate release version
const Version = "0.4.0"

// Snippet returns at most n runes of s, with "..." appended when s was cut.
// Used to keep long field values out of log lines.
func Snippet(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i] + "..."
		}
		count++
	}
	return s
}
