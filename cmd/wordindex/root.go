package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/export"
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/pipeline"
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/tracing"
)

type options struct {
	configPath string
	workers    int
	shards     int
	merge      string
	sink       string
	output     string
	top        int
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "wordindex [directory]",
		Short: "Count word occurrences across every file below a directory",
		Long: `wordindex reads every regular file below a directory in parallel,
counts how often each word occurs and in which documents, drops words seen
only once and writes the result to the configured sink.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, stdout)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	f.IntVarP(&opts.workers, "workers", "w", 0, "ingestion workers (0 = one per CPU)")
	f.IntVarP(&opts.shards, "shards", "s", 0, "dictionary shards")
	f.StringVar(&opts.merge, "merge", "", "merge strategy: sequential or tree")
	f.StringVar(&opts.sink, "sink", "", "export sink: text, json, kafka, redis or postgres")
	f.StringVarP(&opts.output, "output", "o", "", "output file for the text and json sinks (default stdout)")
	f.IntVar(&opts.top, "top", 0, "only print the N most frequent words (text sink)")
	return cmd
}

// loadConfig reads the config file and environment, then applies the
// positional directory and any flags set explicitly on the command line.
func loadConfig(cmd *cobra.Command, opts options, args []string) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, &apperrors.Error{
			Err:     fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err),
			Kind:    apperrors.KindConfiguration,
			Message: "loading configuration",
		}
	}
	if len(args) == 1 {
		cfg.Index.Root = args[0]
	}
	f := cmd.Flags()
	if f.Changed("workers") {
		cfg.Index.Workers = opts.workers
	}
	if f.Changed("shards") {
		cfg.Index.Shards = opts.shards
	}
	if f.Changed("merge") {
		cfg.Index.MergeStrategy = opts.merge
	}
	if f.Changed("sink") {
		cfg.Output.Sink = opts.sink
	}
	if f.Changed("output") {
		cfg.Output.Path = opts.output
	}
	if f.Changed("top") {
		cfg.Output.Top = opts.top
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = max(1, runtime.NumCPU())
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, stdout io.Writer) (err error) {
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)
	log := logger.FromContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "wordindex", runID)
	defer func() { endRunSpan(span, err, log, cfg.Tracing.Enabled) }()

	log.Info("starting wordindex",
		"root", cfg.Index.Root,
		"workers", cfg.Index.Workers,
		"shards", cfg.Index.Shards,
		"merge", cfg.Index.MergeStrategy,
		"sink", cfg.Output.Sink,
	)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	checker := health.NewChecker()
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, reg, checker.Handlers())
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				log.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	src, err := source.Discover(cfg.Index.Root)
	if err != nil {
		return err
	}

	sink, err := export.Open(cfg, runID, stdout, m)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			log.Warn("closing sink failed", "error", cerr)
		}
	}()
	if p, ok := sink.(health.Pinger); ok {
		checker.Register(cfg.Output.Sink, health.PingCheck(p))
		hctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := checker.Require(hctx)
		cancel()
		if err != nil {
			return err
		}
	}

	res, err := pipeline.BuildIndex(ctx, src, pipeline.Config{
		Workers:       cfg.Index.Workers,
		Shards:        cfg.Index.Shards,
		MergeStrategy: cfg.Index.MergeStrategy,
		MaxWordBytes:  cfg.Index.MaxWordBytes,
		Metrics:       m,
	})
	if err != nil {
		return err
	}

	ectx, exportSpan := tracing.StartChildSpan(ctx, "export")
	err = sink.Export(ectx, res.Dictionary)
	m.ObserveStage("export", exportSpan.End())
	if err != nil {
		return err
	}

	logStats(log, res.Stats)
	return nil
}

// endRunSpan annotates and closes the run's root span, then logs the span
// tree when tracing is enabled.
func endRunSpan(span *tracing.Span, err error, log *slog.Logger, logSpans bool) {
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	span.End()
	if logSpans {
		span.Log(log)
	}
}

func logStats(log *slog.Logger, st pipeline.Stats) {
	durations := make([]any, 0, 2*len(st.StageDurations))
	for stage, d := range st.StageDurations {
		durations = append(durations, stage, d.String())
	}
	log.Info("run complete",
		"documents", st.Documents,
		"indexed", st.Indexed,
		"skipped", st.Skipped,
		"failed", st.Failed,
		"occurrences", st.Occurrences,
		"workers", st.Workers,
		"words_before_prune", st.WordsBeforePrune,
		"pruned", st.Pruned,
		"words", st.Words,
		slog.Group("stages", durations...),
	)
	if len(st.SkippedDocumentList) > 0 {
		log.Warn("documents not fully indexed", "locations", st.SkippedDocumentList)
	}
}
