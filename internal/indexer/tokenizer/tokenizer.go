// Package tokenizer splits text into lowercase alphabetic words. A maximal
// run of letters is one word; every other rune is a separator.
package tokenizer

import (
	"bytes"
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenize returns a lazy sequence over the words of text. The sequence
// holds no state between iterations, so it can be ranged over any number of
// times and stopped early.
func Tokenize(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := -1
		for i, r := range text {
			if unicode.IsLetter(r) {
				if start < 0 {
					start = i
				}
				continue
			}
			if start >= 0 {
				if !yield(lower(text[start:i])) {
					return
				}
				start = -1
			}
		}
		if start >= 0 {
			yield(lower(text[start:]))
		}
	}
}

// Words collects Tokenize(text) into a slice.
func Words(text string) []string {
	words := make([]string, 0, len(text)/6)
	for w := range Tokenize(text) {
		words = append(words, w)
	}
	return words
}

// ScanWords is a bufio.SplitFunc that yields the same words as Tokenize,
// already lowercased. Tokens are letter runs, so newlines carry no meaning
// and only a single word must fit in the scanner's buffer.
func ScanWords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := 0
	for start < len(data) {
		if !atEOF && !utf8.FullRune(data[start:]) {
			return start, nil, nil
		}
		r, width := utf8.DecodeRune(data[start:])
		if unicode.IsLetter(r) {
			break
		}
		start += width
	}
	for i := start; i < len(data); {
		if !atEOF && !utf8.FullRune(data[i:]) {
			return start, nil, nil
		}
		r, width := utf8.DecodeRune(data[i:])
		if !unicode.IsLetter(r) {
			return i + width, lowerBytes(data[start:i]), nil
		}
		i += width
	}
	if atEOF && start < len(data) {
		return len(data), lowerBytes(data[start:]), nil
	}
	return start, nil, nil
}

func lowerBytes(word []byte) []byte {
	for _, c := range word {
		if c >= utf8.RuneSelf || ('A' <= c && c <= 'Z') {
			return bytes.Map(unicode.ToLower, word)
		}
	}
	return word
}

// lower avoids an allocation when the word is already lowercase ASCII.
func lower(word string) string {
	for i := 0; i < len(word); i++ {
		c := word[i]
		if c >= utf8.RuneSelf || ('A' <= c && c <= 'Z') {
			return strings.Map(unicode.ToLower, word)
		}
	}
	return word
}
