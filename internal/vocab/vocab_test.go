package vocab

import (
	"slices"
	"testing"
)

func TestBaseLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"en-US", "en"},
		{"fr_FR", "fr"},
		{" DE ", "de"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := BaseLanguage(tt.input); got != tt.expected {
			t.Errorf("BaseLanguage(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestIsSupported(t *testing.T) {
	for _, lang := range []string{"en", "en-GB", "fr-FR", "de", "es", "pt-BR", "it", "nl"} {
		if !IsSupported(lang) {
			t.Errorf("expected %q to be supported", lang)
		}
	}
	for _, lang := range []string{"", "ja", "zh-CN", "ru"} {
		if IsSupported(lang) {
			t.Errorf("expected %q not to be supported", lang)
		}
	}
}

func TestSupportedIsSorted(t *testing.T) {
	langs := Supported()
	if !slices.IsSorted(langs) {
		t.Fatalf("expected sorted languages, got %v", langs)
	}
	if len(langs) != len(vocabularies) {
		t.Fatalf("expected %d languages, got %d", len(vocabularies), len(langs))
	}
}

func TestForMergesEnglish(t *testing.T) {
	v := For("fr-FR")
	if v.Lang != "fr" {
		t.Fatalf("expected lang 'fr' but got '%s'", v.Lang)
	}
	if !v.Follow["suivre"] || !v.Follow["follow"] {
		t.Fatalf("expected french and english follow labels, got %v", v.Follow)
	}
	if !slices.Contains(v.Following, "ne plus suivre") || !slices.Contains(v.Following, "following") {
		t.Fatalf("expected french and english following words, got %v", v.Following)
	}
	// the merged vocabulary must not alter the french source vocabulary
	if vocabularyFr.Follow["follow"] {
		t.Fatalf("merge mutated the french vocabulary")
	}
}

func TestForUnknownFallsBackToEnglish(t *testing.T) {
	v := For("ja")
	if v.Lang != "en" {
		t.Fatalf("expected english fallback but got '%s'", v.Lang)
	}
}
