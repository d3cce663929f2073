package utils

import (
	"fmt"
	"strings"
)

func ShortenString(s string, l int) string {
	if len(s) > l && l != 0 {
		return fmt.Sprintf("%s...", s[:l])
	}
	return s
}

// Normalize trims and lower-cases s. All the text comparisons done on
// page content go through this function.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ContainsAny reports whether s contains at least one of the given
// substrings. Empty substrings are ignored.
func ContainsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
