package service

import "strings"

const promptMarker = "prompt:"

// ExtractPrompt returns the text after the last "prompt:" marker (any case),
// or the whole segment when no marker is present. Both are trimmed.
func ExtractPrompt(segment string) string {
	if i := lastIndexFoldASCII(segment, promptMarker); i >= 0 {
		return strings.TrimSpace(segment[i+len(promptMarker):])
	}
	return strings.TrimSpace(segment)
}

// lastIndexFoldASCII is strings.LastIndex with ASCII case folding; substr must be lower-case ASCII.
func lastIndexFoldASCII(s, substr string) int {
	for i := len(s) - len(substr); i >= 0; i-- {
		if hasPrefixFoldASCII(s[i:], substr) {
			return i
		}
	}
	return -1
}

func hasPrefixFoldASCII(s, prefix string) bool {
	for j := 0; j < len(prefix); j++ {
		c := s[j]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[j] {
			return false
		}
	}
	return true
}
