package pipeline

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/wordindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

// MergeSequential folds every dictionary into a fresh accumulator owned by
// the caller. Merges run one after another, always accumulator <- worker.
func MergeSequential(numShards int, dicts []*index.Dictionary) (*index.Dictionary, error) {
	acc, err := index.New(numShards)
	if err != nil {
		return nil, err
	}
	for i, d := range dicts {
		if err := acc.Merge(d); err != nil {
			return nil, fmt.Errorf("merging dictionary %d: %w", i, err)
		}
	}
	return acc, nil
}

// MergeTree reduces dicts pairwise, one level at a time. Within a level the
// pairs are disjoint and each pair merges in one direction only (right into
// left), so no dictionary is ever both source and destination at once. The
// level barrier orders every merge after the ones it depends on.
func MergeTree(numShards int, dicts []*index.Dictionary) (*index.Dictionary, error) {
	if len(dicts) == 0 {
		return index.New(numShards)
	}
	level := dicts
	for depth := 0; len(level) > 1; depth++ {
		next := make([]*index.Dictionary, (len(level)+1)/2)
		var g errgroup.Group
		for i := 0; i < len(level); i += 2 {
			dst := level[i]
			next[i/2] = dst
			if i+1 == len(level) {
				continue
			}
			src := level[i+1]
			g.Go(func() error {
				return dst.Merge(src)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, fmt.Errorf("tree merge level %d: %w", depth, err)
		}
		level = next
	}
	if level[0].NumShards() != numShards {
		return nil, apperrors.Newf(apperrors.ErrShardMismatch, apperrors.KindInvariant,
			"tree merge produced %d shards, want %d", level[0].NumShards(), numShards)
	}
	return level[0], nil
}
