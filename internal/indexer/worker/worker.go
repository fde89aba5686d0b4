// Package worker ingests one contiguous slice of documents into a private
// dictionary. Workers share nothing with each other; progress and failures
// are reported as Events on a channel owned by the coordinator.
package worker

import (
	"bufio"
	"context"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

// DefaultMaxWordBytes bounds a single word read from a document. Lines
// are not limited.
const DefaultMaxWordBytes = 1 << 20

// Slice is a contiguous run of documents. The i-th location gets document
// id Start+i.
type Slice struct {
	Worker    int
	Start     int
	Locations []string
}

type EventKind int

const (
	// EventDocumentIndexed is sent after a document was fully read.
	EventDocumentIndexed EventKind = iota
	// EventDocumentSkipped is sent when a document could not be opened.
	EventDocumentSkipped
	// EventDocumentFailed is sent when reading stopped partway through a
	// document. Words inserted before the failure are kept.
	EventDocumentFailed
)

func (k EventKind) String() string {
	switch k {
	case EventDocumentIndexed:
		return "indexed"
	case EventDocumentSkipped:
		return "skipped"
	case EventDocumentFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is a structured progress report from a worker.
type Event struct {
	Kind       EventKind
	Worker     int
	DocumentID index.DocumentID
	Location   string
	Words      int
	Err        error
}

// Worker owns a private dictionary for the duration of one ingestion run.
type Worker struct {
	slice        Slice
	src          source.Source
	dict         *index.Dictionary
	events       chan<- Event
	maxWordBytes int
}

// New creates a worker for slice with a fresh dictionary of numShards
// shards. events may be nil.
func New(slice Slice, src source.Source, numShards int, events chan<- Event) (*Worker, error) {
	dict, err := index.New(numShards)
	if err != nil {
		return nil, fmt.Errorf("creating dictionary for worker %d: %w", slice.Worker, err)
	}
	return &Worker{
		slice:        slice,
		src:          src,
		dict:         dict,
		events:       events,
		maxWordBytes: DefaultMaxWordBytes,
	}, nil
}

// WithMaxWordBytes overrides the per-word read limit.
func (w *Worker) WithMaxWordBytes(n int) *Worker {
	if n > 0 {
		w.maxWordBytes = n
	}
	return w
}

// Dictionary returns the worker's private dictionary.
func (w *Worker) Dictionary() *index.Dictionary {
	return w.dict
}

// Run ingests every document of the slice in order. Unreadable documents
// are reported and skipped; only ctx cancellation stops the run early.
func (w *Worker) Run(ctx context.Context) (*index.Dictionary, error) {
	for i, location := range w.slice.Locations {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("worker %d cancelled: %w", w.slice.Worker, err)
		}
		id := index.DocumentID(w.slice.Start + i)
		words, kind, err := w.ingest(location, id)
		w.emit(ctx, Event{
			Kind:       kind,
			Worker:     w.slice.Worker,
			DocumentID: id,
			Location:   location,
			Words:      words,
			Err:        err,
		})
	}
	return w.dict, nil
}

func (w *Worker) ingest(location string, id index.DocumentID) (int, EventKind, error) {
	rc, err := w.src.Open(location)
	if err != nil {
		return 0, EventDocumentSkipped, fmt.Errorf("%w: %s: %w", apperrors.ErrDocumentRead, location, err)
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 0, min(64*1024, w.maxWordBytes)), w.maxWordBytes)
	scanner.Split(tokenizer.ScanWords)
	words := 0
	for scanner.Scan() {
		w.dict.Insert(scanner.Text(), id)
		words++
	}
	if err := scanner.Err(); err != nil {
		return words, EventDocumentFailed, fmt.Errorf("%w: %s: %w", apperrors.ErrDocumentRead, location, err)
	}
	return words, EventDocumentIndexed, nil
}

func (w *Worker) emit(ctx context.Context, ev Event) {
	if w.events == nil {
		return
	}
	select {
	case w.events <- ev:
	case <-ctx.Done():
	}
}
