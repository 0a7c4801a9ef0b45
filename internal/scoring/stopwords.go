package scoring

// DefaultStopwords returns the common-English stopword list used to
// strip noise tokens before keyword overlap scoring (spec.md §4.3
// keyword_matching). Configurable per tenant by constructing a custom
// Context rather than editing this table.
func DefaultStopwords() map[string]bool {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"of", "on", "in", "at", "to", "from", "by", "with", "without",
		"is", "are", "was", "were", "be", "been", "being", "as", "it",
		"its", "this", "that", "these", "those", "shall", "will", "would",
		"can", "could", "should", "may", "might", "must", "not", "no",
		"any", "all", "each", "other", "such", "than", "too", "very",
		"per", "into", "over", "under", "between", "through", "during",
		"about", "above", "below", "up", "down", "out", "off", "again",
		"further", "once", "here", "there", "when", "where", "why", "how",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
