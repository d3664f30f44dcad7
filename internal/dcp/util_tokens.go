package dcp

// EstimateTokens provides a rough token estimate for text, grounded on
// the teacher's session.estimateTokens heuristic (1 token ~= 4 chars),
// which is the same rule of thumb sashabaranov/go-openai callers use
// for local pre-flight budget checks before an API round-trip.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// RedactionSavings estimates the tokens reclaimed by replacing original
// with the fixed placeholder string.
func RedactionSavings(original, placeholder string) int {
	saved := EstimateTokens(original) - EstimateTokens(placeholder)
	if saved < 0 {
		return 0
	}
	return saved
}
