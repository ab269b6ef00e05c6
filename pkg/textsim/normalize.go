// Package textsim turns free text into word sets and compares them.
package textsim

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = toSet([]string{
	"a", "about", "after", "all", "also", "am", "an", "and", "any", "are",
	"as", "at", "be", "been", "before", "being", "but", "by", "can", "could",
	"did", "do", "does", "don't", "down", "for", "from", "had", "has", "have",
	"he", "her", "here", "him", "his", "how", "i'm", "i've", "if", "in",
	"into", "is", "it", "it's", "its", "just", "may", "me", "might", "mine",
	"must", "my", "no", "not", "of", "off", "on", "only", "or", "our",
	"out", "over", "really", "shall", "she", "should", "so", "some", "such", "than",
	"that", "the", "their", "them", "then", "there", "these", "they", "this", "those",
	"to", "too", "up", "us", "very", "was", "we", "were", "what", "when",
	"where", "which", "who", "whom", "why", "will", "with", "would", "you", "your",
})

// Tokenize lowercases text, treats everything except letters, digits,
// apostrophes and hyphens as a separator, and drops single-rune tokens.
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-' {
			return r
		}
		return ' '
	}, text)

	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ContentWords returns the set of tokens left after stopword removal.
func ContentWords(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, tok := range Tokenize(text) {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		words[tok] = struct{}{}
	}
	return words
}

// IsStopword reports whether word is in the stopword list.
func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
