// Package shard provides hash-based word routing for sharded dictionaries.
// Two dictionaries can only be merged shard by shard when their routers are
// Compatible: same shard count and same hash function.
package shard

import (
	"github.com/cespare/xxhash/v2"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

// HashVersion identifies the routing hash. Bump it if Route ever changes.
const HashVersion = 1

// DefaultShards matches the dictionary default of the command-line tool.
const DefaultShards = 16

// Router maps words to shard indexes in [0, NumShards).
type Router struct {
	numShards uint64
	version   int
}

// NewRouter returns a Router over numShards shards. numShards must be at
// least one.
func NewRouter(numShards int) (Router, error) {
	if numShards < 1 {
		return Router{}, apperrors.Newf(apperrors.ErrInvalidConfig, apperrors.KindConfiguration,
			"shard count must be at least 1, got %d", numShards)
	}
	return Router{numShards: uint64(numShards), version: HashVersion}, nil
}

// Route returns the shard index responsible for word.
func (r Router) Route(word string) int {
	return int(xxhash.Sum64String(word) % r.numShards)
}

// NumShards returns the number of shards this router spreads words over.
func (r Router) NumShards() int {
	return int(r.numShards)
}

// Compatible reports whether words route identically under r and other.
func (r Router) Compatible(other Router) bool {
	return r.numShards == other.numShards && r.version == other.version
}
