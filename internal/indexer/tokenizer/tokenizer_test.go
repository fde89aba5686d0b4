package tokenizer

import (
	"bufio"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWords(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"separators only", " 123 ,.;-- ", []string{}},
		{"sentence", "The Fox ran.", []string{"the", "fox", "ran"}},
		{"repeated", "The fox the FOX.", []string{"the", "fox", "the", "fox"}},
		{"digits split words", "abc123def", []string{"abc", "def"}},
		{"apostrophe splits", "don't", []string{"don", "t"}},
		{"unicode letters", "Über café", []string{"über", "café"}},
		{"trailing word", "end", []string{"end"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Words(tt.text))
		})
	}
}

func TestTokenizeRestartable(t *testing.T) {
	seq := Tokenize("one Two three")
	first := make([]string, 0)
	for w := range seq {
		first = append(first, w)
	}
	second := make([]string, 0)
	for w := range seq {
		second = append(second, w)
	}
	assert.Equal(t, []string{"one", "two", "three"}, first)
	assert.Equal(t, first, second)
}

func TestTokenizeEarlyBreak(t *testing.T) {
	var got []string
	for w := range Tokenize("alpha beta gamma") {
		got = append(got, w)
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"alpha", "beta"}, got)
}

func TestTokenizeDoesNotMutateInput(t *testing.T) {
	text := "MiXeD Case"
	_ = Words(text)
	assert.Equal(t, "MiXeD Case", text)
}

func scan(t *testing.T, r io.Reader, maxToken int) []string {
	t.Helper()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 16), maxToken)
	scanner.Split(ScanWords)
	got := make([]string, 0)
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return got
}

func TestScanWordsMatchesTokenize(t *testing.T) {
	texts := []string{
		"",
		" 123 ,.;-- ",
		"The Fox ran.",
		"abc123def\ndon't",
		"Über café\nStraße Ελληνικά",
		"end",
	}
	for _, text := range texts {
		assert.Equal(t, Words(text), scan(t, strings.NewReader(text), 64), text)
		// one byte at a time splits runes and words across reads
		assert.Equal(t, Words(text), scan(t, iotest.OneByteReader(strings.NewReader(text)), 64), text)
	}
}

func TestScanWordsIgnoresLineLength(t *testing.T) {
	text := strings.Repeat("fox ", 1000) + "tail"
	got := scan(t, strings.NewReader(text), 32)
	require.Len(t, got, 1001)
	assert.Equal(t, "tail", got[1000])
}

func TestScanWordsRejectsOverlongWord(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("ok " + strings.Repeat("x", 100)))
	scanner.Buffer(make([]byte, 0, 16), 32)
	scanner.Split(ScanWords)
	require.True(t, scanner.Scan())
	assert.Equal(t, "ok", scanner.Text())
	assert.False(t, scanner.Scan())
	assert.ErrorIs(t, scanner.Err(), bufio.ErrTooLong)
}
