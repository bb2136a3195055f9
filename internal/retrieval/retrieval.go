// Package retrieval implements lexical term-frequency scoring over transcript
// chunks and attachment excerpts.
package retrieval

import (
	"sort"
	"strings"
)

// Document is anything that exposes text for lexical matching.
type Document interface {
	RetrievalText() string
}

// Tokenize splits text into lowercase ASCII alphanumeric runs. Punctuation
// and unicode letters outside A-Z act as separators.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	tokens := make([]string, 0, 16)
	start := -1
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, lower[start:i])
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, lower[start:])
	}
	return tokens
}

func termFrequencies(tokens []string) map[string]int {
	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}
	return freq
}

type scored struct {
	index int
	score int
}

// TopK scores every document against the query and returns up to k documents
// with a positive score, best first. The score of a document is the sum over
// distinct query terms of the term's frequency in the document times its
// frequency in the query. An empty query matches nothing.
func TopK[T Document](query string, docs []T, k int) []T {
	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 || k <= 0 {
		return nil
	}
	queryFreq := termFrequencies(queryTokens)

	matches := make([]scored, 0, len(docs))
	for i, doc := range docs {
		docTokens := Tokenize(doc.RetrievalText())
		if len(docTokens) == 0 {
			continue
		}
		docFreq := termFrequencies(docTokens)
		score := 0
		for term, weight := range queryFreq {
			score += docFreq[term] * weight
		}
		if score > 0 {
			matches = append(matches, scored{index: i, score: score})
		}
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].score > matches[b].score
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	result := make([]T, len(matches))
	for i, match := range matches {
		result[i] = docs[match.index]
	}
	return result
}
