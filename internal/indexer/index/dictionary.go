// Package index implements the sharded word dictionary. Each shard has its
// own lock, so inserts of words routed to different shards never contend.
package index

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/shard"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

type shardTable struct {
	mu    sync.RWMutex
	table map[string]*entry
}

// Dictionary maps words to occurrence counts and document id sets, spread
// over a fixed number of independently locked shards.
//
// A Dictionary is consumed when it is merged into another one. After that
// it must not be used again; Merge rejects it on either side.
type Dictionary struct {
	router shard.Router
	shards []shardTable

	// state is stateConsumed once merged away, otherwise the number of
	// merges currently running into this dictionary.
	state atomic.Int32
}

const stateConsumed = -1

// New returns an empty Dictionary with numShards shards.
func New(numShards int) (*Dictionary, error) {
	router, err := shard.NewRouter(numShards)
	if err != nil {
		return nil, err
	}
	d := &Dictionary{
		router: router,
		shards: make([]shardTable, numShards),
	}
	for i := range d.shards {
		d.shards[i].table = make(map[string]*entry)
	}
	return d, nil
}

// NumShards returns the shard count fixed at construction.
func (d *Dictionary) NumShards() int {
	return len(d.shards)
}

// ShardIndex returns the shard that owns word.
func (d *Dictionary) ShardIndex(word string) int {
	return d.router.Route(word)
}

// Consumed reports whether d has been merged into another dictionary.
func (d *Dictionary) Consumed() bool {
	return d.state.Load() == stateConsumed
}

// claimDestination registers one running merge into d unless d is consumed.
func (d *Dictionary) claimDestination() bool {
	for {
		n := d.state.Load()
		if n == stateConsumed {
			return false
		}
		if d.state.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// claimSource consumes d if nothing is merging into it and it was not
// consumed before.
func (d *Dictionary) claimSource() error {
	if d.state.CompareAndSwap(0, stateConsumed) {
		return nil
	}
	if d.state.Load() == stateConsumed {
		return apperrors.New(apperrors.ErrDictionaryConsumed, apperrors.KindInvariant, "merge source was already merged away")
	}
	return apperrors.New(apperrors.ErrConcurrentMerge, apperrors.KindInvariant, "merge source is receiving a merge")
}

// Insert records one occurrence of word in document id.
func (d *Dictionary) Insert(word string, id DocumentID) {
	if word == "" {
		return
	}
	s := &d.shards[d.router.Route(word)]
	s.mu.Lock()
	e, ok := s.table[word]
	if !ok {
		e = newEntry()
		s.table[word] = e
	}
	e.count++
	e.docs.Add(uint32(id))
	s.mu.Unlock()
}

// Merge adds every entry of other into d and marks other consumed.
//
// Merges flow one way only: other must not be the destination of a merge
// that is still running, and neither side may have been consumed already.
// All checks happen before any shard is touched. A source shard lock is
// always released before the matching destination lock is taken.
func (d *Dictionary) Merge(other *Dictionary) error {
	if other == nil {
		return apperrors.New(apperrors.ErrInternal, apperrors.KindInvariant, "merge source is nil")
	}
	if other == d {
		return apperrors.New(apperrors.ErrSelfMerge, apperrors.KindInvariant, "merge source and destination are the same dictionary")
	}
	if !d.router.Compatible(other.router) {
		return apperrors.Newf(apperrors.ErrShardMismatch, apperrors.KindInvariant,
			"destination has %d shards, source has %d", d.NumShards(), other.NumShards())
	}

	// Each side changes state with a single CAS, so a dictionary can never
	// be consumed while it is receiving, nor receive once consumed.
	if !d.claimDestination() {
		return apperrors.New(apperrors.ErrDictionaryConsumed, apperrors.KindInvariant, "merge destination was already merged away")
	}
	defer d.state.Add(-1)
	if err := other.claimSource(); err != nil {
		return err
	}

	type pending struct {
		word string
		e    *entry
	}
	for i := range other.shards {
		src := &other.shards[i]
		src.mu.RLock()
		batch := make([]pending, 0, len(src.table))
		for word, e := range src.table {
			batch = append(batch, pending{word: word, e: e.clone()})
		}
		src.mu.RUnlock()

		if len(batch) == 0 {
			continue
		}
		// Compatible routers send every word of source shard i to shard i.
		dst := &d.shards[i]
		dst.mu.Lock()
		for _, p := range batch {
			if mine, ok := dst.table[p.word]; ok {
				mine.absorb(p.e)
			} else {
				dst.table[p.word] = p.e
			}
		}
		dst.mu.Unlock()
	}
	return nil
}

// RemoveSingleOccurrences deletes every word seen exactly once and returns
// how many were removed. Victims are collected before any delete.
func (d *Dictionary) RemoveSingleOccurrences() int {
	removed := 0
	var victims []string
	for i := range d.shards {
		s := &d.shards[i]
		s.mu.Lock()
		victims = victims[:0]
		for word, e := range s.table {
			if e.count == 1 {
				victims = append(victims, word)
			}
		}
		for _, word := range victims {
			delete(s.table, word)
		}
		s.mu.Unlock()
		removed += len(victims)
	}
	return removed
}

// ForEach calls visit for every word, one shard at a time, stopping early
// when visit returns false. Only the shard being visited is locked, so an
// Insert running concurrently may show up in some shards and not others.
// visit must not call back into d.
func (d *Dictionary) ForEach(visit func(WordStat) bool) {
	for i := range d.shards {
		s := &d.shards[i]
		s.mu.RLock()
		for word, e := range s.table {
			if !visit(e.stat(word)) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// Lookup returns the statistics for word.
func (d *Dictionary) Lookup(word string) (WordStat, bool) {
	s := &d.shards[d.router.Route(word)]
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.table[word]
	if !ok {
		return WordStat{}, false
	}
	return e.stat(word), true
}

// Len returns the number of distinct words.
func (d *Dictionary) Len() int {
	total := 0
	for i := range d.shards {
		s := &d.shards[i]
		s.mu.RLock()
		total += len(s.table)
		s.mu.RUnlock()
	}
	return total
}

// ShardSizes returns the number of words held by each shard.
func (d *Dictionary) ShardSizes() []int {
	sizes := make([]int, len(d.shards))
	for i := range d.shards {
		s := &d.shards[i]
		s.mu.RLock()
		sizes[i] = len(s.table)
		s.mu.RUnlock()
	}
	return sizes
}

// Snapshot returns every word's statistics sorted by word.
func (d *Dictionary) Snapshot() []WordStat {
	stats := make([]WordStat, 0, d.Len())
	d.ForEach(func(ws WordStat) bool {
		stats = append(stats, ws)
		return true
	})
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Word < stats[j].Word
	})
	return stats
}
