// Package pipeline coordinates one indexing run: it partitions the
// documents, runs one worker per slice, waits for all of them, merges the
// private dictionaries and prunes words seen only once.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/worker"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/wordindex/pkg/tracing"
)

// Stage is a step of the coordinator's state machine.
type Stage int

const (
	StageInit Stage = iota
	StagePartition
	StageIngest
	StageJoin
	StageMerge
	StagePrune
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StagePartition:
		return "partition"
	case StageIngest:
		return "ingest"
	case StageJoin:
		return "join"
	case StageMerge:
		return "merge"
	case StagePrune:
		return "prune"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Config controls one run. Metrics may be nil.
type Config struct {
	Workers       int
	Shards        int
	MergeStrategy string
	MaxWordBytes  int
	Metrics       *metrics.Metrics
}

// Stats summarises a finished run.
type Stats struct {
	Documents           int
	Indexed             int
	Skipped             int
	Failed              int
	Occurrences         uint64
	Workers             int
	WordsBeforePrune    int
	Pruned              int
	Words               int
	StageDurations      map[string]time.Duration
	SkippedDocumentList []string
}

// Result is the final, pruned dictionary plus run statistics.
type Result struct {
	Dictionary *index.Dictionary
	Stats      Stats
}

type coordinator struct {
	cfg     Config
	stage   Stage
	logger  *slog.Logger
	metrics *metrics.Metrics
	stats   Stats
}

// BuildIndex runs the whole pipeline over src. Configuration problems are
// reported before any worker starts. Documents that cannot be read are
// logged and skipped; they never fail the run.
func BuildIndex(ctx context.Context, src source.Source, cfg Config) (*Result, error) {
	c := &coordinator{
		cfg:     cfg,
		stage:   StageInit,
		logger:  logger.FromContext(ctx).With("component", "coordinator"),
		metrics: cfg.Metrics,
	}
	ctx, span := tracing.StartChildSpan(ctx, "build_index")
	defer span.End()

	locations := src.Locations()
	if err := validate(cfg, len(locations)); err != nil {
		c.logger.Error("invalid pipeline configuration", "error", err)
		return nil, err
	}
	if c.cfg.MergeStrategy == "" {
		c.cfg.MergeStrategy = config.MergeSequential
	}
	c.stats.Documents = len(locations)

	var slices []worker.Slice
	c.run(ctx, StagePartition, func(context.Context) error {
		slices = Partition(locations, c.cfg.Workers)
		c.stats.Workers = len(slices)
		return nil
	})

	workers := make([]*worker.Worker, len(slices))
	events := make(chan worker.Event, 256)
	for i, sl := range slices {
		w, err := worker.New(sl, src, c.cfg.Shards, events)
		if err != nil {
			return nil, err
		}
		workers[i] = w.WithMaxWordBytes(c.cfg.MaxWordBytes)
	}

	// Ingest launches the workers and the event drain; join waits for both.
	// They are sibling stages so each gets its own duration.
	dicts := make([]*index.Dictionary, len(workers))
	drained := make(chan struct{})
	var g *errgroup.Group
	c.run(ctx, StageIngest, func(ctx context.Context) error {
		go func() {
			defer close(drained)
			for ev := range events {
				c.record(ev)
			}
		}()

		var gctx context.Context
		g, gctx = errgroup.WithContext(ctx)
		for i, w := range workers {
			g.Go(func() error {
				c.metrics.WorkerStarted()
				defer c.metrics.WorkerFinished()
				d, err := w.Run(gctx)
				if err != nil {
					return err
				}
				dicts[i] = d
				return nil
			})
		}
		return nil
	})

	err := c.run(ctx, StageJoin, func(context.Context) error {
		err := g.Wait()
		close(events)
		<-drained
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("ingesting documents: %w", err)
	}

	var final *index.Dictionary
	err = c.run(ctx, StageMerge, func(context.Context) error {
		var err error
		switch c.cfg.MergeStrategy {
		case config.MergeTree:
			final, err = MergeTree(c.cfg.Shards, dicts)
		default:
			final, err = MergeSequential(c.cfg.Shards, dicts)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("merging worker dictionaries: %w", err)
	}

	c.run(ctx, StagePrune, func(context.Context) error {
		c.stats.WordsBeforePrune = final.Len()
		c.stats.Pruned = final.RemoveSingleOccurrences()
		c.stats.Words = final.Len()
		return nil
	})

	c.transition(StageDone)
	c.stats.StageDurations = span.ChildDurations()
	c.metrics.RecordDictionary(c.stats.Words, c.stats.Pruned, final.ShardSizes())
	c.logger.Info("index built",
		"documents", c.stats.Documents,
		"indexed", c.stats.Indexed,
		"skipped", c.stats.Skipped+c.stats.Failed,
		"workers", c.stats.Workers,
		"words_before_prune", c.stats.WordsBeforePrune,
		"pruned", c.stats.Pruned,
		"words", c.stats.Words,
	)
	return &Result{Dictionary: final, Stats: c.stats}, nil
}

func validate(cfg Config, documents int) error {
	switch {
	case cfg.Workers < 1:
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"worker count must be at least 1, got %d", cfg.Workers)
	case cfg.Shards < 1:
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"shard count must be at least 1, got %d", cfg.Shards)
	case documents == 0:
		return apperrors.New(apperrors.ErrNoDocuments, apperrors.KindConfiguration, "document list is empty")
	case uint64(documents) > math.MaxUint32:
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"%d documents exceed the document id space", documents)
	}
	switch cfg.MergeStrategy {
	case "", config.MergeSequential, config.MergeTree:
		return nil
	default:
		return apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"unknown merge strategy %q", cfg.MergeStrategy)
	}
}

// run executes one stage inside its own span and records its duration.
func (c *coordinator) run(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	c.transition(stage)
	ctx, span := tracing.StartChildSpan(ctx, stage.String())
	err := fn(ctx)
	d := span.End()
	c.metrics.ObserveStage(stage.String(), d)
	if err != nil {
		span.SetAttr("error", err.Error())
		c.logger.Error("stage failed", "stage", stage.String(), "error", err)
	}
	return err
}

func (c *coordinator) transition(next Stage) {
	c.logger.Debug("stage transition", "from", c.stage.String(), "to", next.String())
	c.stage = next
}

// record runs on the single event-draining goroutine.
func (c *coordinator) record(ev worker.Event) {
	c.metrics.DocumentProcessed(ev.Kind.String(), ev.Words)
	c.stats.Occurrences += uint64(ev.Words)
	switch ev.Kind {
	case worker.EventDocumentIndexed:
		c.stats.Indexed++
		c.logger.Debug("document indexed",
			"worker", ev.Worker,
			"doc_id", ev.DocumentID,
			"location", ev.Location,
			"words", ev.Words,
		)
	case worker.EventDocumentSkipped, worker.EventDocumentFailed:
		if ev.Kind == worker.EventDocumentSkipped {
			c.stats.Skipped++
		} else {
			c.stats.Failed++
		}
		c.stats.SkippedDocumentList = append(c.stats.SkippedDocumentList, ev.Location)
		c.logger.Warn("document not fully read",
			"worker", ev.Worker,
			"doc_id", ev.DocumentID,
			"location", ev.Location,
			"status", ev.Kind.String(),
			"words", ev.Words,
			"error", ev.Err,
		)
	}
}
