// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package stats

import (
	"fmt"

	lru "github.com/elastic/go-freelru"

	"github.com/profilekit/framestack/framestack"
	"github.com/profilekit/framestack/metrics"
)

// DefaultCacheSize is the default capacity of the stack hash cache.
const DefaultCacheSize = 8192

// Aggregator front-ends a Tree with an LRU mapping stack content hashes to
// leaf entries, so repeated samples of the same code path skip the tree walk.
// A 64-bit hash collision misattributes a sample to the colliding path; with
// the cache bounded to recently seen stacks this is considered acceptable for
// statistical profiles.
type Aggregator struct {
	tree  *Tree
	cache *lru.LRU[StackHash, *Entry]

	hits   uint64
	misses uint64
}

// NewAggregator creates an Aggregator with the given cache capacity.
func NewAggregator(cacheSize uint32) (*Aggregator, error) {
	cache, err := lru.New[StackHash, *Entry](cacheSize, StackHash.Hash32)
	if err != nil {
		return nil, fmt.Errorf("creating stack hash cache: %w", err)
	}
	return &Aggregator{tree: NewTree(), cache: cache}, nil
}

// Add records one extracted stack, ordered outermost first.
func (a *Aggregator) Add(stack []*framestack.Frame) {
	if len(stack) == 0 {
		return
	}
	hash := HashStack(stack)

	// The cache shares the tree lock: cached entries point into the tree, so
	// the lookup and the count update must be one critical section.
	a.tree.mu.Lock()
	defer a.tree.mu.Unlock()
	if entry, ok := a.cache.Get(hash); ok {
		a.hits++
		metrics.Add(metrics.IDStackCacheHit, 1)
		entry.OwnSamples++
		a.tree.samples++
		return
	}
	a.misses++
	metrics.Add(metrics.IDStackCacheMiss, 1)
	entry := a.tree.recordLocked(stack)
	a.cache.Add(hash, entry)
}

// Snapshot freezes the current statistics.
func (a *Aggregator) Snapshot() *Snapshot {
	return a.tree.Snapshot()
}

// Reset drops all statistics and the cached stack hashes.
func (a *Aggregator) Reset() {
	a.tree.mu.Lock()
	defer a.tree.mu.Unlock()
	a.tree.resetLocked()
	a.cache.Purge()
	a.hits = 0
	a.misses = 0
}

// CacheStats returns the hit and miss counts of the stack hash cache.
func (a *Aggregator) CacheStats() (hits, misses uint64) {
	a.tree.mu.Lock()
	defer a.tree.mu.Unlock()
	return a.hits, a.misses
}
