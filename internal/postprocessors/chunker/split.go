package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultSeparators are tried in order: paragraph, line, sentence punctuation,
// clause punctuation, word, and finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", ";", ",", " ", ""}

// Split breaks text into chunks of at most size runes, carrying up to overlap
// runes of trailing context into the next chunk. The result is deterministic.
// Empty or whitespace-only text yields no chunks.
func Split(text string, size, overlap int) []string {
	if strings.TrimSpace(text) == "" || size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	s := splitter{size: size, overlap: overlap}
	return s.split(text, DefaultSeparators)
}

type splitter struct {
	size    int
	overlap int
}

// split picks the first separator present in text and recurses into any
// piece that is still too large using the remaining separators.
func (s splitter) split(text string, separators []string) []string {
	sep, rest := pickSeparator(text, separators)
	pieces := splitKeep(text, sep)

	var chunks []string
	var small []string
	for _, piece := range pieces {
		if runeLen(piece) <= s.size {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, s.merge(small)...)
			small = nil
		}
		if len(rest) == 0 {
			// Indivisible unit longer than size.
			if t := strings.TrimSpace(piece); t != "" {
				chunks = append(chunks, t)
			}
			continue
		}
		chunks = append(chunks, s.split(piece, rest)...)
	}
	if len(small) > 0 {
		chunks = append(chunks, s.merge(small)...)
	}
	return chunks
}

// merge packs consecutive pieces into windows of at most size runes. After a
// window is emitted, pieces are dropped from its head until at most overlap
// runes remain, and those become the head of the next window.
func (s splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > s.size && len(window) > 0 {
			if t := strings.TrimSpace(strings.Join(window, "")); t != "" {
				chunks = append(chunks, t)
			}
			for len(window) > 0 && (total > s.overlap || total+n > s.size) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	if t := strings.TrimSpace(strings.Join(window, "")); t != "" {
		chunks = append(chunks, t)
	}
	return chunks
}

func pickSeparator(text string, separators []string) (string, []string) {
	for i, sep := range separators {
		if sep == "" || strings.Contains(text, sep) {
			return sep, separators[i+1:]
		}
	}
	return "", nil
}

// splitKeep splits text after each separator so joining the pieces restores text.
func splitKeep(text, sep string) []string {
	if sep == "" {
		pieces := make([]string, 0, len(text))
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
		return pieces
	}
	parts := strings.SplitAfter(text, sep)
	pieces := parts[:0]
	for _, p := range parts {
		if p != "" {
			pieces = append(pieces, p)
		}
	}
	return pieces
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
