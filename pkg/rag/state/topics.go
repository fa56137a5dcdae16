package state

import (
	"regexp"

	"ai-tutor-be/internal/entity"
)

// Topic is one row of the detection table. Name is the display name used in
// prompts, rewritten retrieval queries and the fallback question.
type Topic struct {
	ID       entity.TopicID
	Name     string
	Category string
	Patterns []*regexp.Regexp
}

func (t Topic) Matches(text string) bool {
	for _, p := range t.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

// DefaultTopics is evaluated in order and the first match wins, so more
// specific phrases sit above the words they contain.
func DefaultTopics() []Topic {
	return []Topic{
		{entity.TopicStandardDeviation, "סטיית תקן", "descriptive", patterns(`סטיי?ת\s+(ה)?תקן`, `standard\s+deviation`, `\bstd\.?\s*dev`)},
		{entity.TopicConfidenceInterval, "רווח סמך", "inference", patterns(`רווחי?\s+(ה)?סמך`, `confidence\s+intervals?`)},
		{entity.TopicHypothesisTesting, "בדיקת השערות", "inference", patterns(`השערו?ת`, `השערת\s+(ה)?אפס`, `hypothes[ie]s`, `p[\s-]?value`, `null\s+hypothesis`)},
		{entity.TopicNormalDistribution, "התפלגות נורמלית", "probability", patterns(`נורמלי`, `גאוסיאני`, `normal\s+distribution`, `\bgaussian\b`, `\bz[\s-]?scores?\b`)},
		{entity.TopicRegression, "רגרסיה", "relationships", patterns(`רגרסי`, `\bregression\b`, `least\s+squares`)},
		{entity.TopicCorrelation, "מתאם", "relationships", patterns(`מתאם`, `קורלצי`, `\bcorrelat`, `pearson`)},
		{entity.TopicProbability, "הסתברות", "probability", patterns(`הסתברו`, `\bprobabilit`)},
		{entity.TopicVariance, "שונות", "descriptive", patterns(`שונות`, `\bvariance\b`)},
		{entity.TopicMedian, "חציון", "descriptive", patterns(`חציון`, `\bmedian\b`)},
		{entity.TopicMode, "שכיח", "descriptive", patterns(`שכיח`, `\bmode\b`)},
		{entity.TopicMean, "ממוצע", "descriptive", patterns(`ממוצע`, `\bmean\b`, `\baverage\b`)},
	}
}
