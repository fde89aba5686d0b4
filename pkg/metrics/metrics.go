// Package metrics defines the Prometheus collectors for the indexing
// pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	DocumentsTotal      *prometheus.CounterVec
	WordsInsertedTotal  prometheus.Counter
	StageDuration       *prometheus.HistogramVec
	DictionaryWords     prometheus.Gauge
	WordsPrunedTotal    prometheus.Counter
	ShardEntries        *prometheus.GaugeVec
	ActiveWorkers       prometheus.Gauge
	SinkWritesTotal     *prometheus.CounterVec
	SinkRecordsExported *prometheus.CounterVec
}

// New creates all collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DocumentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordindex_documents_total",
				Help: "Documents processed by workers, by status (indexed, skipped, failed).",
			},
			[]string{"status"},
		),
		WordsInsertedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordindex_words_inserted_total",
				Help: "Total word occurrences inserted into worker dictionaries.",
			},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wordindex_stage_duration_seconds",
				Help:    "Duration of each pipeline stage in seconds.",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		DictionaryWords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wordindex_dictionary_words",
				Help: "Distinct words in the final dictionary.",
			},
		),
		WordsPrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "wordindex_words_pruned_total",
				Help: "Words removed because they occurred exactly once.",
			},
		),
		ShardEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "wordindex_shard_entries",
				Help: "Words held by each shard of the final dictionary.",
			},
			[]string{"shard_id"},
		),
		ActiveWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "wordindex_active_workers",
				Help: "Ingestion workers currently running.",
			},
		),
		SinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordindex_sink_writes_total",
				Help: "Export attempts by sink and status.",
			},
			[]string{"sink", "status"},
		),
		SinkRecordsExported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wordindex_sink_records_total",
				Help: "Word records written by each sink.",
			},
			[]string{"sink"},
		),
	}

	reg.MustRegister(
		m.DocumentsTotal,
		m.WordsInsertedTotal,
		m.StageDuration,
		m.DictionaryWords,
		m.WordsPrunedTotal,
		m.ShardEntries,
		m.ActiveWorkers,
		m.SinkWritesTotal,
		m.SinkRecordsExported,
	)

	return m
}

func (m *Metrics) DocumentProcessed(status string, words int) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(status).Inc()
	m.WordsInsertedTotal.Add(float64(words))
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) WorkerStarted() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Inc()
}

func (m *Metrics) WorkerFinished() {
	if m == nil {
		return
	}
	m.ActiveWorkers.Dec()
}

// RecordDictionary publishes the final word count, pruned count and
// per-shard sizes.
func (m *Metrics) RecordDictionary(words, pruned int, shardSizes []int) {
	if m == nil {
		return
	}
	m.DictionaryWords.Set(float64(words))
	m.WordsPrunedTotal.Add(float64(pruned))
	for i, n := range shardSizes {
		m.ShardEntries.WithLabelValues(strconv.Itoa(i)).Set(float64(n))
	}
}

func (m *Metrics) SinkWrite(sink string, records int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.SinkWritesTotal.WithLabelValues(sink, "error").Inc()
		return
	}
	m.SinkWritesTotal.WithLabelValues(sink, "ok").Inc()
	m.SinkRecordsExported.WithLabelValues(sink).Add(float64(records))
}

// Handler returns the Prometheus scrape HTTP handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
