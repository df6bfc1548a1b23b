package constants

import "strings"

type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

var allSentiments = []Sentiment{
	SentimentPositive,
	SentimentNeutral,
	SentimentNegative,
}

func SentimentsAsStringSlice() []string {
	result := make([]string, len(allSentiments))
	for i, s := range allSentiments {
		result[i] = string(s)
	}
	return result
}

// CanonicalizeSentiment maps free-form model output onto one of the three labels.
// Unknown input falls back to Neutral and reports false.
func CanonicalizeSentiment(input string) (Sentiment, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return SentimentNeutral, false
	}

	// synonyms map
	synonyms := map[string]Sentiment{
		"pos":           SentimentPositive,
		"good":          SentimentPositive,
		"upbeat":        SentimentPositive,
		"optimistic":    SentimentPositive,
		"neg":           SentimentNegative,
		"bad":           SentimentNegative,
		"critical":      SentimentNegative,
		"mixed":         SentimentNeutral,
		"neutral/mixed": SentimentNeutral,
	}
	if s, ok := synonyms[normalized]; ok {
		return s, true
	}

	for _, s := range allSentiments {
		if normalized == strings.ToLower(string(s)) {
			return s, true
		}
	}
	return SentimentNeutral, false
}
