package signal

import (
	"strings"

	"grail-agent/internal/models"
)

// Keyword lists for the sentiment heuristic. Matching is substring
// containment on the lowercased text; each keyword counts at most once.
var (
	positiveWords = []string{"profit", "gain", "up", "bullish", "positive"}
	negativeWords = []string{"loss", "down", "bearish", "negative", "risk"}
)

// AnalyzeSentiment scores an event description with the keyword heuristic.
// The dominant keyword class wins: score is 0.6 plus 0.1 per matched
// keyword of that class. A tie (including zero matches) is NEUTRAL at 0.5.
func AnalyzeSentiment(text string) (models.Sentiment, float64) {
	lower := strings.ToLower(text)

	posCount := 0
	for _, word := range positiveWords {
		if strings.Contains(lower, word) {
			posCount++
		}
	}
	negCount := 0
	for _, word := range negativeWords {
		if strings.Contains(lower, word) {
			negCount++
		}
	}

	switch {
	case posCount > negCount:
		return models.SentimentPositive, 0.6 + float64(posCount)*0.1
	case negCount > posCount:
		return models.SentimentNegative, 0.6 + float64(negCount)*0.1
	default:
		return models.SentimentNeutral, 0.5
	}
}
