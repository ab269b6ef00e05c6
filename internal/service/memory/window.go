package memory

import (
	"strings"
	"unicode/utf8"
)

const (
	maxWindowLen    = 200
	minWindowLen    = 8
	minDirectiveLen = 5
	maxExcerptLen   = 300
)

// isTerminator reports whether text[i] ends a sentence: a newline, or one of
// .!? followed by whitespace or the end of the text. Decimal points and
// clock times therefore do not split sentences.
func isTerminator(text string, i int) bool {
	switch text[i] {
	case '\n':
		return true
	case '.', '!', '?':
		return i+1 == len(text) || isSpaceByte(text[i+1])
	}
	return false
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// contextWindow returns the sentence that contains text[start:end], cut down
// to maxWindowLen bytes centred on the match when the sentence is longer.
func contextWindow(text string, start, end int) string {
	sentStart := 0
	for i := start - 1; i >= 0; i-- {
		if isTerminator(text, i) {
			sentStart = i + 1
			break
		}
	}

	sentEnd := len(text)
	for j := end; j < len(text); j++ {
		if isTerminator(text, j) {
			sentEnd = j
			if text[j] != '\n' {
				sentEnd = j + 1
			}
			break
		}
	}

	if sentEnd-sentStart > maxWindowLen {
		center := (start + end) / 2
		ws := center - maxWindowLen/2
		if ws < sentStart {
			ws = sentStart
		}
		we := ws + maxWindowLen
		if we > sentEnd {
			we = sentEnd
			ws = we - maxWindowLen
		}
		sentStart, sentEnd = alignRunes(text, ws, we)
	}

	return strings.TrimSpace(text[sentStart:sentEnd])
}

// alignRunes moves start forward and end backward onto rune boundaries.
func alignRunes(text string, start, end int) (int, int) {
	for start < end && start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	return start, end
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	_, end := alignRunes(s, 0, n)
	return s[:end]
}

// lowerForMatch lowercases text. When lowercasing changes byte offsets the
// lowered text is returned as the source too, so match offsets stay valid.
func lowerForMatch(text string) (source, lowered string) {
	lowered = strings.ToLower(text)
	if len(lowered) != len(text) {
		return lowered, lowered
	}
	return text, lowered
}
