// Package classify decides what a control on a page means for the follow
// automation and finds the control to act on.
package classify

import (
	"strings"

	"github.com/prospection/autofollow/internal/dom"
	"github.com/prospection/autofollow/internal/utils"
	"github.com/prospection/autofollow/internal/vocab"
)

// Classification is the follow affordance state of a control.
type Classification string

const (
	Unknown         Classification = "unknown"
	Follow          Classification = "follow"
	AlreadyFollowed Classification = "already followed"
)

const (
	ariaPressedAttr = "aria-pressed"
	ariaLabelAttr   = "aria-label"
	controlAttr     = "data-control-name"
)

// Classify returns the classification of el using the words of v. It only
// reads el and has no side effects.
func Classify(el dom.Element, v vocab.Vocabulary) Classification {
	if el.Disabled() {
		return Unknown
	}

	if pressed, _ := el.Attr(ariaPressedAttr); utils.Normalize(pressed) == "true" {
		return AlreadyFollowed
	}

	texts := candidateTexts(el)
	label, _ := el.Attr(ariaLabelAttr)
	label = utils.Normalize(label)
	control, _ := el.Attr(controlAttr)
	control = utils.Normalize(control)

	if utils.ContainsAny(label, v.Following) {
		return AlreadyFollowed
	}
	for _, t := range texts {
		if utils.ContainsAny(t, v.Following) {
			return AlreadyFollowed
		}
	}

	for _, t := range texts {
		if v.Follow[t] {
			return Follow
		}
	}
	if utils.ContainsAny(label, v.FollowTokens) {
		return Follow
	}
	if strings.Contains(control, vocab.ControlToken) {
		return Follow
	}
	return Unknown
}

// candidateTexts returns the normalized own text of el followed by the
// texts of its nested labels. Empty texts are dropped.
func candidateTexts(el dom.Element) []string {
	var texts []string
	if t := utils.Normalize(el.Text()); t != "" {
		texts = append(texts, t)
	}
	for _, lt := range el.LabelTexts() {
		if t := utils.Normalize(lt); t != "" {
			texts = append(texts, t)
		}
	}
	return texts
}
