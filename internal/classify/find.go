package classify

import (
	"slices"

	"github.com/prospection/autofollow/internal/dom"
	"github.com/prospection/autofollow/internal/vocab"
)

// PrioritizedSelectors are tried in order before falling back to a scan of
// every button-like element.
var PrioritizedSelectors = []string{
	"button.follow",
	`button[data-control-name="follow"]`,
	`button[data-test-id="follow-button"]`,
}

// Match is an element together with its classification.
type Match struct {
	Element        dom.Element
	Classification Classification
}

// Find returns the first element of d whose classification is one of
// targets. The prioritized selectors are searched first.
func Find(d *dom.Document, v vocab.Vocabulary, targets ...Classification) (Match, bool) {
	for _, sel := range PrioritizedSelectors {
		if m, ok := first(d.Query(sel), v, targets); ok {
			return m, true
		}
	}
	return first(d.Buttons(), v, targets)
}

func first(elements []dom.Element, v vocab.Vocabulary, targets []Classification) (Match, bool) {
	for _, el := range elements {
		c := Classify(el, v)
		if slices.Contains(targets, c) {
			return Match{Element: el, Classification: c}, true
		}
	}
	return Match{}, false
}
