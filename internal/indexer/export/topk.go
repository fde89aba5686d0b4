package export

import (
	"container/heap"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/index"
)

// TopK returns the k most frequent words, highest count first. Ties are
// broken by word so the result is deterministic.
func TopK(dict *index.Dictionary, k int) []index.WordStat {
	if k <= 0 {
		return nil
	}
	h := &statHeap{}
	dict.ForEach(func(ws index.WordStat) bool {
		heap.Push(h, ws)
		if h.Len() > k {
			heap.Pop(h)
		}
		return true
	})
	result := make([]index.WordStat, h.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(h).(index.WordStat)
	}
	return result
}

// statHeap is a min-heap: the root is the word that would be ranked last.
type statHeap []index.WordStat

func (h statHeap) Len() int { return len(h) }

func (h statHeap) Less(i, j int) bool {
	if h[i].Count != h[j].Count {
		return h[i].Count < h[j].Count
	}
	return h[i].Word > h[j].Word
}

func (h statHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *statHeap) Push(x any) {
	*h = append(*h, x.(index.WordStat))
}

func (h *statHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
