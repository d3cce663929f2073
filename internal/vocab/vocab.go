// Package vocab holds the per locale words the target site uses on its follow
// controls.
package vocab

import (
	"slices"
	"strings"
)

// Vocabulary lists the lower-cased words that identify the state of a follow
// control in one interface language.
type Vocabulary struct {
	Lang string
	// Follow contains complete button labels of a control that will follow
	// the entity when clicked. They are matched exactly.
	Follow map[string]bool
	// FollowTokens are matched as substrings of accessible names.
	FollowTokens []string
	// Following are substrings signalling that the entity is already followed.
	Following []string
}

// ControlToken is the language independent marker the site puts into the
// control identifier attribute of follow buttons.
const ControlToken = "follow"

const defaultLang = "en"

// BaseLanguage reduces a language tag like "en-US" or "fr_FR" to its lower
// case primary subtag.
func BaseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}

// Supported returns the primary subtags of all languages with a vocabulary,
// sorted.
func Supported() []string {
	langs := make([]string, 0, len(vocabularies))
	for _, lm := range vocabularies {
		langs = append(langs, lm.lang)
	}
	slices.Sort(langs)
	return langs
}

// IsSupported reports whether lang (any tag form) has a vocabulary.
func IsSupported(lang string) bool {
	_, ok := lookup(BaseLanguage(lang))
	return ok
}

// For returns the vocabulary for the given language tag. Unknown languages get
// the English vocabulary. Every other language is merged with English because
// the site leaves some English labels untranslated.
func For(lang string) Vocabulary {
	base := BaseLanguage(lang)
	en, _ := lookup(defaultLang)
	v, ok := lookup(base)
	if !ok || base == defaultLang {
		return en
	}
	return merge(v, en)
}

func lookup(lang string) (Vocabulary, bool) {
	for _, lm := range vocabularies {
		if lm.lang == lang {
			return lm.vocabulary, true
		}
	}
	return Vocabulary{}, false
}

func merge(primary, secondary Vocabulary) Vocabulary {
	m := Vocabulary{
		Lang:   primary.Lang,
		Follow: map[string]bool{},
	}
	for _, v := range []Vocabulary{primary, secondary} {
		for w := range v.Follow {
			m.Follow[w] = true
		}
		m.FollowTokens = appendUnique(m.FollowTokens, v.FollowTokens...)
		m.Following = appendUnique(m.Following, v.Following...)
	}
	return m
}

func appendUnique(dst []string, words ...string) []string {
	for _, w := range words {
		if !slices.Contains(dst, w) {
			dst = append(dst, w)
		}
	}
	return dst
}
