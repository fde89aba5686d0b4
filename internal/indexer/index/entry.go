package index

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// DocumentID identifies one ingested document. The coordinator assigns ids
// as startOffset+localIndex, so they are unique across workers.
type DocumentID uint32

// entry is the per-word aggregate kept inside a shard. It is only touched
// while the owning shard's lock is held.
type entry struct {
	count uint64
	docs  *roaring.Bitmap
}

func newEntry() *entry {
	return &entry{docs: roaring.New()}
}

func (e *entry) clone() *entry {
	return &entry{count: e.count, docs: e.docs.Clone()}
}

func (e *entry) absorb(other *entry) {
	e.count += other.count
	e.docs.Or(other.docs)
}

func (e *entry) stat(word string) WordStat {
	ids := e.docs.ToArray()
	docIDs := make([]DocumentID, len(ids))
	for i, id := range ids {
		docIDs[i] = DocumentID(id)
	}
	return WordStat{
		Word:        word,
		Count:       e.count,
		DocumentIDs: docIDs,
	}
}

// WordStat is a read-only copy of one word's statistics. DocumentIDs are
// ascending.
type WordStat struct {
	Word        string       `json:"word"`
	Count       uint64       `json:"count"`
	DocumentIDs []DocumentID `json:"document_ids"`
}
