package session

import "time"

// RecentTurns returns the suffix of history bounded by maxTurns and
// maxTokens. The turn limit applies first, then the oldest remaining turns
// are dropped until the estimated token total fits. The returned slice
// preserves insertion order, oldest first.
func RecentTurns(history []ConversationTurn, maxTurns, maxTokens int) []ConversationTurn {
	if len(history) == 0 {
		return history
	}

	if maxTurns > 0 && len(history) > maxTurns {
		history = history[len(history)-maxTurns:]
	}

	if maxTokens <= 0 {
		return history
	}

	total := 0
	for _, t := range history {
		total += EstimateTokens(t.Text)
	}
	for total > maxTokens && len(history) > 0 {
		total -= EstimateTokens(history[0].Text)
		history = history[1:]
	}

	return history
}

// NewTurn builds a ConversationTurn stamped with the current time.
func NewTurn(role, text string, metadata map[string]string) ConversationTurn {
	return ConversationTurn{
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}
}

// EstimateTokens estimates the token count for a given text using a
// Unicode-aware heuristic. ASCII characters are weighted at ~4 per token,
// non-ASCII (CJK, Cyrillic, Arabic, Emoji, etc.) at ~1 per token.
func EstimateTokens(text string) int {
	weight := 0
	for _, r := range text {
		switch {
		case r <= 127:
			weight += 1
		default:
			weight += 4
		}
	}
	return (weight + 3) / 4
}
