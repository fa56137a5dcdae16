package state

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var fastPassTriggers = []string{
	"תשובה ישירה",
	"בלי שאלות",
	"רק תענה",
	"תענה ישר",
	"דלג על השאלה",
	"just answer",
	"just tell me",
	"skip the question",
	"no questions",
	"direct answer",
}

// IsFastPassRequest reports whether the student asked to skip diagnosis.
func IsFastPassRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, trigger := range fastPassTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// maxSelectorRunes bounds how much trailing text a choice may carry before it
// stops looking like an answer and starts looking like a new question.
const maxSelectorRunes = 40

// A Latin letter needs punctuation or nothing after it, so "a question about
// regression" is not read as choice A. Hebrew letters may be followed by a space.
var selectorPattern = regexp.MustCompile(`^\s*(?:[A-Da-d](?:\s*[.):,!\-]|$)|[אבגד](?:\s*[.):,!\-]|\s|$))`)

// IsAnswerToPriorQuestion reports whether text is a short multiple-choice
// selector such as "B", "b)", "ג." or "A. because it is central".
func IsAnswerToPriorQuestion(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxSelectorRunes {
		return false
	}
	return selectorPattern.MatchString(trimmed)
}
