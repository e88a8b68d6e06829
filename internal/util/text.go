package util

import "unicode/utf8"

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// RuneWindow returns the n runes of s starting at rune offset start, clamped
// to the bounds of s.
func RuneWindow(s string, start, n int) string {
	runes := []rune(s)
	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}
	end := start + n
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[start:end])
}
