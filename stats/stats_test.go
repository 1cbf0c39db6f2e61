// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package stats_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilekit/framestack/framestack"
	"github.com/profilekit/framestack/stats"
	"github.com/profilekit/framestack/testsupport"
)

func TestTreeRecord(t *testing.T) {
	main := testsupport.MockCode("main")
	workA := testsupport.MockCode("work_a")
	workB := testsupport.MockCode("work_b")

	tree := stats.NewTree()
	tree.Record(framestack.ExtractAll(testsupport.MockStack(main, workA)))
	tree.Record(framestack.ExtractAll(testsupport.MockStack(main, workA)))
	tree.Record(framestack.ExtractAll(testsupport.MockStack(main, workB)))
	tree.Record(framestack.ExtractAll(testsupport.MockStack(main)))
	tree.Record(nil)

	assert.Equal(t, uint64(4), tree.Samples())

	snapshot := tree.Snapshot()
	require.Len(t, snapshot.Roots, 1)
	root := snapshot.Roots[0]
	assert.Equal(t, "main", root.Name)
	assert.Equal(t, uint64(1), root.OwnSamples)
	assert.Equal(t, uint64(4), root.DeepSamples)

	require.Len(t, root.Children, 2)
	// Sorted by deep samples descending.
	assert.Equal(t, "work_a", root.Children[0].Name)
	assert.Equal(t, uint64(2), root.Children[0].DeepSamples)
	assert.Equal(t, "work_b", root.Children[1].Name)
	assert.Equal(t, uint64(1), root.Children[1].DeepSamples)
}

func TestTreeDistinguishesByCodeIdentity(t *testing.T) {
	// Two distinct code objects with identical names must not be merged.
	first := testsupport.MockCode("f")
	second := testsupport.MockCode("f")

	tree := stats.NewTree()
	tree.Record(framestack.ExtractAll(testsupport.MockStack(first)))
	tree.Record(framestack.ExtractAll(testsupport.MockStack(second)))

	assert.Len(t, tree.Snapshot().Roots, 2)
}

func TestTreeReset(t *testing.T) {
	tree := stats.NewTree()
	tree.Record(framestack.ExtractAll(testsupport.MockStack(testsupport.MockCode("f"))))
	tree.Reset()

	assert.Zero(t, tree.Samples())
	assert.Empty(t, tree.Snapshot().Roots)
}

func TestHashStack(t *testing.T) {
	main := testsupport.MockCodeAt("main", "app.script", 1)
	work := testsupport.MockCodeAt("work", "app.script", 10)

	t.Run("same code path hashes equal across samples", func(t *testing.T) {
		first := framestack.ExtractAll(testsupport.MockStack(main, work))
		second := framestack.ExtractAll(testsupport.MockStack(main, work))
		require.NotSame(t, first[0], second[0])
		assert.Equal(t, stats.HashStack(first), stats.HashStack(second))
	})

	t.Run("different code paths hash differently", func(t *testing.T) {
		outer := framestack.ExtractAll(testsupport.MockStack(main))
		nested := framestack.ExtractAll(testsupport.MockStack(main, work))
		reversed := framestack.ExtractAll(testsupport.MockStack(work, main))
		assert.NotEqual(t, stats.HashStack(outer), stats.HashStack(nested))
		assert.NotEqual(t, stats.HashStack(nested), stats.HashStack(reversed))
	})

	t.Run("recursion depth changes the hash", func(t *testing.T) {
		once := framestack.ExtractAll(testsupport.MockStack(main, work))
		twice := framestack.ExtractAll(testsupport.MockStack(main, work, work))
		assert.NotEqual(t, stats.HashStack(once), stats.HashStack(twice))
	})
}

func TestAggregatorCachesRepeatedStacks(t *testing.T) {
	main := testsupport.MockCode("main")
	work := testsupport.MockCode("work")

	agg, err := stats.NewAggregator(stats.DefaultCacheSize)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		agg.Add(framestack.ExtractAll(testsupport.MockStack(main, work)))
	}
	agg.Add(framestack.ExtractAll(testsupport.MockStack(main)))
	agg.Add(nil)

	hits, misses := agg.CacheStats()
	assert.Equal(t, uint64(2), hits)
	assert.Equal(t, uint64(2), misses)

	snapshot := agg.Snapshot()
	assert.Equal(t, uint64(4), snapshot.Samples)
	require.Len(t, snapshot.Roots, 1)
	require.Len(t, snapshot.Roots[0].Children, 1)
	assert.Equal(t, uint64(3), snapshot.Roots[0].Children[0].OwnSamples)
}

func TestAggregatorReset(t *testing.T) {
	agg, err := stats.NewAggregator(64)
	require.NoError(t, err)

	stack := framestack.ExtractAll(testsupport.MockStack(testsupport.MockCode("f")))
	agg.Add(stack)
	agg.Reset()

	assert.Zero(t, agg.Snapshot().Samples)
	hits, misses := agg.CacheStats()
	assert.Zero(t, hits)
	assert.Zero(t, misses)

	// A stack seen before the reset must repopulate the tree, not resurrect
	// the evicted leaf entry.
	agg.Add(stack)
	snapshot := agg.Snapshot()
	assert.Equal(t, uint64(1), snapshot.Samples)
	require.Len(t, snapshot.Roots, 1)
	assert.Equal(t, uint64(1), snapshot.Roots[0].OwnSamples)
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	tree := stats.NewTree()
	main := testsupport.MockCodeAt("main", "app.script", 1)
	work := testsupport.MockCodeAt("work", "app.script", 10)
	tree.Record(framestack.ExtractAll(testsupport.MockStack(main, work)))

	encoded, err := json.Marshal(tree.Snapshot())
	require.NoError(t, err)

	var decoded stats.Snapshot
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, uint64(1), decoded.Samples)
	require.Len(t, decoded.Roots, 1)
	assert.Equal(t, "main", decoded.Roots[0].Name)
	require.Len(t, decoded.Roots[0].Children, 1)
	assert.Equal(t, uint32(10), decoded.Roots[0].Children[0].StartLine)
}
