package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

func newDict(t *testing.T, shards int) *Dictionary {
	t.Helper()
	d, err := New(shards)
	require.NoError(t, err)
	return d
}

func ingest(d *Dictionary, id DocumentID, text string) {
	for w := range tokenizer.Tokenize(text) {
		d.Insert(w, id)
	}
}

func statsByWord(d *Dictionary) map[string]WordStat {
	out := make(map[string]WordStat)
	d.ForEach(func(ws WordStat) bool {
		out[ws.Word] = ws
		return true
	})
	return out
}

func TestNewRejectsZeroShards(t *testing.T) {
	_, err := New(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestShardIndexDeterministic(t *testing.T) {
	d := newDict(t, 16)
	for i := 0; i < 200; i++ {
		w := fmt.Sprintf("w%d", i)
		assert.Equal(t, d.ShardIndex(w), d.ShardIndex(w))
	}
}

func TestInsertAdditivity(t *testing.T) {
	d := newDict(t, 8)
	for i := 0; i < 5; i++ {
		d.Insert("fox", 7)
	}
	ws, ok := d.Lookup("fox")
	require.True(t, ok)
	assert.Equal(t, uint64(5), ws.Count)
	assert.Equal(t, []DocumentID{7}, ws.DocumentIDs)
	assert.Equal(t, 1, d.Len())
}

func TestInsertIgnoresEmptyWord(t *testing.T) {
	d := newDict(t, 4)
	d.Insert("", 1)
	assert.Equal(t, 0, d.Len())
}

func TestInsertLandsInRoutedShard(t *testing.T) {
	d := newDict(t, 8)
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for _, w := range words {
		d.Insert(w, 0)
	}
	sizes := d.ShardSizes()
	expected := make([]int, 8)
	for _, w := range words {
		expected[d.ShardIndex(w)]++
	}
	assert.Equal(t, expected, sizes)
}

func TestScenarioSingleDictionary(t *testing.T) {
	d := newDict(t, 16)
	ingest(d, 0, "The Fox ran.")
	ingest(d, 1, "The fox the FOX.")

	removed := d.RemoveSingleOccurrences()
	assert.Equal(t, 1, removed)

	got := d.Snapshot()
	assert.Equal(t, []WordStat{
		{Word: "fox", Count: 3, DocumentIDs: []DocumentID{0, 1}},
		{Word: "the", Count: 3, DocumentIDs: []DocumentID{0, 1}},
	}, got)
	_, ok := d.Lookup("ran")
	assert.False(t, ok)
}

func TestScenarioTwoDictionariesEitherOrder(t *testing.T) {
	build := func(first, second string) []WordStat {
		a := newDict(t, 16)
		ingest(a, 0, "The Fox ran.")
		b := newDict(t, 16)
		ingest(b, 1, "The fox the FOX.")
		parts := map[string]*Dictionary{"a": a, "b": b}

		acc := newDict(t, 16)
		require.NoError(t, acc.Merge(parts[first]))
		require.NoError(t, acc.Merge(parts[second]))
		acc.RemoveSingleOccurrences()
		return acc.Snapshot()
	}

	ab := build("a", "b")
	ba := build("b", "a")
	assert.Equal(t, ab, ba)
	assert.Equal(t, []WordStat{
		{Word: "fox", Count: 3, DocumentIDs: []DocumentID{0, 1}},
		{Word: "the", Count: 3, DocumentIDs: []DocumentID{0, 1}},
	}, ab)
}

func TestMergeCommutativeAndAssociative(t *testing.T) {
	texts := map[string][]string{
		"a": {"one two two three", "four four"},
		"b": {"two three five", "one"},
		"c": {"six six six", "one five"},
	}
	fresh := func(name string, base DocumentID) *Dictionary {
		d := newDict(t, 8)
		for i, text := range texts[name] {
			ingest(d, base+DocumentID(i), text)
		}
		return d
	}
	build := func(order ...string) map[string]WordStat {
		bases := map[string]DocumentID{"a": 0, "b": 10, "c": 20}
		acc := fresh(order[0], bases[order[0]])
		for _, name := range order[1:] {
			require.NoError(t, acc.Merge(fresh(name, bases[name])))
		}
		return statsByWord(acc)
	}

	abc := build("a", "b", "c")
	assert.Equal(t, abc, build("a", "c", "b"))
	assert.Equal(t, abc, build("c", "b", "a"))

	// (A+B)+C versus A+(B+C)
	bc := fresh("b", 10)
	require.NoError(t, bc.Merge(fresh("c", 20)))
	a := fresh("a", 0)
	require.NoError(t, a.Merge(bc))
	assert.Equal(t, abc, statsByWord(a))

	assert.Equal(t, uint64(3), abc["one"].Count)
	assert.Equal(t, []DocumentID{0, 11, 21}, abc["one"].DocumentIDs)
}

func TestMergeRejectsShardMismatch(t *testing.T) {
	dst := newDict(t, 8)
	dst.Insert("keep", 0)
	src := newDict(t, 4)
	src.Insert("keep", 1)

	err := dst.Merge(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrShardMismatch)
	assert.Equal(t, apperrors.KindInvariant, apperrors.KindOf(err))

	ws, _ := dst.Lookup("keep")
	assert.Equal(t, uint64(1), ws.Count)
	assert.False(t, src.Consumed())
}

func TestMergeRejectsSelfAndNil(t *testing.T) {
	d := newDict(t, 4)
	assert.ErrorIs(t, d.Merge(d), apperrors.ErrSelfMerge)
	assert.Error(t, d.Merge(nil))
}

func TestMergeConsumesSource(t *testing.T) {
	acc := newDict(t, 4)
	src := newDict(t, 4)
	src.Insert("word", 3)

	require.NoError(t, acc.Merge(src))
	assert.True(t, src.Consumed())

	other := newDict(t, 4)
	assert.ErrorIs(t, other.Merge(src), apperrors.ErrDictionaryConsumed)
	assert.ErrorIs(t, src.Merge(other), apperrors.ErrDictionaryConsumed)
	assert.False(t, other.Consumed())
}

func TestMergeRejectsSourceThatIsReceiving(t *testing.T) {
	a := newDict(t, 4)
	b := newDict(t, 4)
	require.True(t, b.claimDestination()) // b is mid-merge as a destination
	err := a.Merge(b)
	assert.ErrorIs(t, err, apperrors.ErrConcurrentMerge)
	assert.False(t, b.Consumed())
	b.state.Add(-1)
	assert.NoError(t, a.Merge(b))
}

func TestMergeIntoConsumedDestinationLeavesSourceIntact(t *testing.T) {
	a := newDict(t, 4)
	b := newDict(t, 4)
	c := newDict(t, 4)
	b.Insert("kept", 1)

	require.NoError(t, c.Merge(a))
	err := a.Merge(b)
	assert.ErrorIs(t, err, apperrors.ErrDictionaryConsumed)
	assert.False(t, b.Consumed())
	assert.True(t, a.Consumed())
	_, ok := b.Lookup("kept")
	assert.True(t, ok)
}

func TestConcurrentChainedMergeKeepsWords(t *testing.T) {
	for i := 0; i < 200; i++ {
		a := newDict(t, 4)
		b := newDict(t, 4)
		c := newDict(t, 4)
		b.Insert("y", 1)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() { defer wg.Done(); errs[0] = a.Merge(b) }()
		go func() { defer wg.Done(); errs[1] = c.Merge(a) }()
		wg.Wait()

		if errs[0] == nil && errs[1] == nil {
			// b into a must have finished before a was consumed
			_, ok := c.Lookup("y")
			assert.True(t, ok, "words merged into a consumed dictionary were lost")
		}
		if errs[0] != nil {
			assert.False(t, b.Consumed(), "failed merge consumed its source")
		}
	}
}

func TestConcurrentBidirectionalMergeNeverBothSucceed(t *testing.T) {
	for i := 0; i < 200; i++ {
		a := newDict(t, 4)
		b := newDict(t, 4)
		a.Insert("x", 0)
		b.Insert("y", 1)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		wg.Add(2)
		go func() { defer wg.Done(); errs[0] = a.Merge(b) }()
		go func() { defer wg.Done(); errs[1] = b.Merge(a) }()
		wg.Wait()

		assert.False(t, errs[0] == nil && errs[1] == nil, "both directions succeeded")
	}
}

func TestRemoveSingleOccurrences(t *testing.T) {
	d := newDict(t, 4)
	for i := 0; i < 100; i++ {
		w := fmt.Sprintf("w%d", i)
		d.Insert(w, 0)
		if i%2 == 0 {
			d.Insert(w, 1)
			d.Insert(w, 2)
		}
	}
	before := statsByWord(d)

	removed := d.RemoveSingleOccurrences()
	assert.Equal(t, 50, removed)

	after := statsByWord(d)
	assert.Len(t, after, 50)
	for w, ws := range after {
		assert.GreaterOrEqual(t, ws.Count, uint64(2))
		assert.Equal(t, before[w], ws)
	}
	assert.Equal(t, 0, d.RemoveSingleOccurrences())
}

func TestConcurrentDisjointShardInserts(t *testing.T) {
	const shards = 16
	d := newDict(t, shards)

	words := make([]string, 0, shards)
	seen := make(map[int]bool)
	for i := 0; len(words) < shards; i++ {
		w := fmt.Sprintf("candidate%d", i)
		idx := d.ShardIndex(w)
		if !seen[idx] {
			seen[idx] = true
			words = append(words, w)
		}
	}

	var wg sync.WaitGroup
	for i, w := range words {
		wg.Add(1)
		go func(word string, id DocumentID) {
			defer wg.Done()
			d.Insert(word, id)
		}(w, DocumentID(i))
	}
	wg.Wait()

	require.Equal(t, shards, d.Len())
	for i, w := range words {
		ws, ok := d.Lookup(w)
		require.True(t, ok)
		assert.Equal(t, uint64(1), ws.Count)
		assert.Equal(t, []DocumentID{DocumentID(i)}, ws.DocumentIDs)
	}
}

func TestConcurrentSameWordInserts(t *testing.T) {
	d := newDict(t, 4)
	const goroutines, perG = 8, 1000
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id DocumentID) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				d.Insert("hot", id)
			}
		}(DocumentID(g))
	}
	wg.Wait()
	ws, _ := d.Lookup("hot")
	assert.Equal(t, uint64(goroutines*perG), ws.Count)
	assert.Len(t, ws.DocumentIDs, goroutines)
}

func TestForEachStopsEarly(t *testing.T) {
	d := newDict(t, 4)
	for i := 0; i < 20; i++ {
		d.Insert(fmt.Sprintf("w%d", i), 0)
	}
	visited := 0
	d.ForEach(func(WordStat) bool {
		visited++
		return visited < 3
	})
	assert.Equal(t, 3, visited)
}
