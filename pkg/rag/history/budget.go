package history

import (
	"unicode/utf8"

	"ai-tutor-be/internal/entity"
)

// MessageOverheadTokens is the fixed per-message cost added to the estimate.
const MessageOverheadTokens = 4

// EstimateTokens approximates one token per four characters plus overhead.
func EstimateTokens(content string) int {
	return (utf8.RuneCountInString(content)+3)/4 + MessageOverheadTokens
}

// TrimToBudget keeps the longest suffix of msgs that fits both limit and
// budget. A non-positive limit or budget disables that bound.
func TrimToBudget(msgs []entity.ChatMessage, limit, budget int) []entity.ChatMessage {
	start := len(msgs)
	used := 0
	for i := len(msgs) - 1; i >= 0; i-- {
		if limit > 0 && len(msgs)-i > limit {
			break
		}
		cost := EstimateTokens(msgs[i].Content)
		if budget > 0 && used+cost > budget {
			break
		}
		used += cost
		start = i
	}
	return msgs[start:]
}
