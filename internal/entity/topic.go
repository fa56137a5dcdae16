package entity

import "strings"

// TopicID identifies a course subject. The set is closed: anything the
// detector cannot place resolves to TopicUnknown.
type TopicID uint8

const (
	TopicUnknown TopicID = iota
	TopicMean
	TopicMedian
	TopicMode
	TopicVariance
	TopicStandardDeviation
	TopicNormalDistribution
	TopicProbability
	TopicCorrelation
	TopicRegression
	TopicHypothesisTesting
	TopicConfidenceInterval
)

var topicSlugs = map[TopicID]string{
	TopicUnknown:            "unknown",
	TopicMean:               "mean",
	TopicMedian:             "median",
	TopicMode:               "mode",
	TopicVariance:           "variance",
	TopicStandardDeviation:  "standard_deviation",
	TopicNormalDistribution: "normal_distribution",
	TopicProbability:        "probability",
	TopicCorrelation:        "correlation",
	TopicRegression:         "regression",
	TopicHypothesisTesting:  "hypothesis_testing",
	TopicConfidenceInterval: "confidence_interval",
}

func (t TopicID) String() string {
	if s, ok := topicSlugs[t]; ok {
		return s
	}
	return topicSlugs[TopicUnknown]
}

func (t TopicID) IsKnown() bool {
	_, ok := topicSlugs[t]
	return ok && t != TopicUnknown
}

// ParseTopicID maps a stored slug back to its TopicID. Unrecognized slugs
// return TopicUnknown and false.
func ParseTopicID(s string) (TopicID, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	for id, slug := range topicSlugs {
		if slug == s {
			return id, id != TopicUnknown
		}
	}
	return TopicUnknown, false
}

// MarshalText stores topics by slug so persisted state survives reordering of the enum.
func (t TopicID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TopicID) UnmarshalText(b []byte) error {
	id, _ := ParseTopicID(string(b))
	*t = id
	return nil
}
