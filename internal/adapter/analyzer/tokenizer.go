package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer splits text into lowercase word tokens with stopword removal.
type Tokenizer struct {
	stopwords map[string]struct{}
}

// NewTokenizer creates a Tokenizer using the default English stopwords plus
// any extra words supplied by the caller.
func NewTokenizer(extraStopwords ...string) *Tokenizer {
	stops := defaultStopwords()
	for _, w := range extraStopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			stops[w] = struct{}{}
		}
	}
	return &Tokenizer{stopwords: stops}
}

// Tokenize splits text into tokens. Words shorter than two characters and
// stopwords are dropped.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	tokens := make([]string, 0, len(words))

	for _, word := range words {
		word = strings.ToLower(word)
		if utf8.RuneCountInString(word) < 2 {
			continue
		}
		if t.IsStopword(word) {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// IsStopword reports whether the lowercase word is filtered out.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[word]
	return ok
}

// CountTokens returns an approximate LLM token count for prompt budgeting.
func (t *Tokenizer) CountTokens(text string) int {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}
	// Rough estimate: average word is about 1.3 tokens
	return int(float64(len(words)) * 1.3)
}

// splitWords splits text into runs of letters, digits and underscores.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}
