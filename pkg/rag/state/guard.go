package state

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxDiagnosisRunes caps the length of a diagnosis-only reply.
const MaxDiagnosisRunes = 280

var (
	terminatorPattern = regexp.MustCompile(`[.!?؟]+`)
	forbiddenPatterns = []*regexp.Regexp{
		// formulas
		regexp.MustCompile(`[=√∑σμ^]|x̄`),
		regexp.MustCompile(`\d\s*[+\-*/×÷]\s*\d`),
		regexp.MustCompile(`\\(frac|sum|sqrt|bar)`),
		// enumerated or bulleted lists
		regexp.MustCompile(`(?m)^\s*(\d+[.)]|[-*•])\s+`),
		// definitions
		regexp.MustCompile(`(?i)\b(is defined as|definition|formula|is calculated)\b`),
		regexp.MustCompile(`הגדרה|מוגדר|נוסחה|מחושב`),
	}
)

// IsValidDiagnosisOnlyOutput reports whether text is a short assessment
// question with no teaching content in it.
func IsValidDiagnosisOnlyOutput(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > MaxDiagnosisRunes {
		return false
	}
	if len(terminatorPattern.FindAllString(trimmed, -1)) > 2 {
		return false
	}
	questions := strings.Count(trimmed, "?") + strings.Count(trimmed, "؟")
	if questions < 1 || questions > 2 {
		return false
	}
	for _, p := range forbiddenPatterns {
		if p.MatchString(trimmed) {
			return false
		}
	}
	return true
}

// FallbackDiagnosisQuestion replaces a diagnosis-only reply that failed the
// guard. An empty name asks the student to name a topic in their own words;
// no lettered choices are offered because a bare letter cannot pick a topic.
func FallbackDiagnosisQuestion(topicName string) string {
	if strings.TrimSpace(topicName) == "" {
		return "על איזה נושא בסטטיסטיקה תרצה לעבוד היום, למשל ממוצע, שונות, הסתברות או רגרסיה?"
	}
	return fmt.Sprintf("לפני שנצלול לנושא %s, מה הכי מתאר את ההיכרות שלך איתו: A) חדש לי לגמרי B) שמעתי עליו C) מכיר את הבסיס D) מרגיש בטוח בו?", topicName)
}
