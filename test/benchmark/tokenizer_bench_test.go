package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "The quick brown fox jumps over the lazy dog",
	"medium": `It was the best of times, it was the worst of times, it was the age of
        wisdom, it was the age of foolishness, it was the epoch of belief, it was the
        epoch of incredulity, it was the season of Light, it was the season of Darkness,
        it was the spring of hope, it was the winter of despair.`,
	"long": strings.Repeat(`Call me Ishmael. Some years ago, never mind how long precisely,
        having little or no money in my purse, and nothing particular to interest me on
        shore, I thought I would sail about a little and see the watery part of the world.
        It is a way I have of driving off the spleen and regulating the circulation. `, 20),
	"unicode": strings.Repeat("Größe Ärger naïve café Straße déjà vu Ελληνικά ", 10),
}

func drain(text string) int {
	n := 0
	for range tokenizer.Tokenize(text) {
		n++
	}
	return n
}

func BenchmarkTokenize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = drain(text)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = drain(text)
		}
	})
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "distributed word frequency dictionary shards "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = drain(text)
			}
		})
	}
}
