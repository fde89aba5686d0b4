package export

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/metrics"
)

// TextSink prints one line per word, "word: N times, in M documents".
// Words are sorted alphabetically, or by frequency when top is set.
type TextSink struct {
	w       io.Writer
	closer  io.Closer
	top     int
	metrics *metrics.Metrics
}

func NewTextSink(w io.Writer, top int) *TextSink {
	return &TextSink{w: w, top: top}
}

func (s *TextSink) Export(ctx context.Context, dict *index.Dictionary) error {
	var stats []index.WordStat
	if s.top > 0 {
		stats = TopK(dict, s.top)
	} else {
		stats = dict.Snapshot()
	}
	bw := bufio.NewWriter(s.w)
	for _, ws := range stats {
		fmt.Fprintf(bw, "%s: %d times, in %d documents\n", ws.Word, ws.Count, len(ws.DocumentIDs))
	}
	err := bw.Flush()
	if err != nil {
		err = fmt.Errorf("writing text output: %w", err)
	}
	s.metrics.SinkWrite(config.SinkText, len(stats), err)
	return err
}

func (s *TextSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// JSONSink writes the whole dictionary as one JSON array sorted by word.
type JSONSink struct {
	w       io.Writer
	closer  io.Closer
	metrics *metrics.Metrics
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) Export(ctx context.Context, dict *index.Dictionary) error {
	stats := dict.Snapshot()
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	err := enc.Encode(stats)
	if err != nil {
		err = fmt.Errorf("encoding json output: %w", err)
	}
	s.metrics.SinkWrite(config.SinkJSON, len(stats), err)
	return err
}

func (s *JSONSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
