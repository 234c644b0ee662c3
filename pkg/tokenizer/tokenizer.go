package tokenizer

import "strings"

// EstimateTokens gives a rough token count for sizing chunk payloads and
// embedding batches. Word count scaled by 4/3 tracks common BPE vocabularies
// closely enough for budgeting; exact counts would need a model tokenizer.
func EstimateTokens(text string) int {
	words := strings.Fields(text)
	n := len(words) * 4 / 3
	if n < 1 {
		n = 1
	}
	return n
}
