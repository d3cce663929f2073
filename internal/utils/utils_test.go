package utils

import (
	"testing"
)

func TestShortenString(t *testing.T) {
	tests := []struct {
		input    string
		length   int
		expected string
	}{
		{"hello world", 5, "hello..."},
		{"hello", 10, "hello"},
		{"", 3, ""},
		{"abcdef", 0, "abcdef"},
		{"abcdef", 6, "abcdef"},
		{"abcdef", 3, "abc..."},
	}

	for _, tt := range tests {
		result := ShortenString(tt.input, tt.length)
		if result != tt.expected {
			t.Errorf("ShortenString(%q, %d) = %q; want %q", tt.input, tt.length, result, tt.expected)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"  Follow  ", "follow"},
		{"FOLLOWING", "following"},
		{"\n\tSuivre\n", "suivre"},
		{"", ""},
	}

	for _, tt := range tests {
		result := Normalize(tt.input)
		if result != tt.expected {
			t.Errorf("Normalize(%q) = %q; want %q", tt.input, result, tt.expected)
		}
	}
}

func TestContainsAny(t *testing.T) {
	tests := []struct {
		input    string
		subs     []string
		expected bool
	}{
		{"following acme", []string{"following"}, true},
		{"follow acme", []string{"following", "unfollow"}, false},
		{"anything", []string{""}, false},
		{"anything", nil, false},
		{"ne plus suivre", []string{"suivi", "ne plus suivre"}, true},
	}

	for _, tt := range tests {
		result := ContainsAny(tt.input, tt.subs)
		if result != tt.expected {
			t.Errorf("ContainsAny(%q, %v) = %v; want %v", tt.input, tt.subs, result, tt.expected)
		}
	}
}
