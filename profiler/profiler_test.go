// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package profiler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/profilekit/framestack/framestack"
	"github.com/profilekit/framestack/profiler"
	"github.com/profilekit/framestack/sampler"
	"github.com/profilekit/framestack/testsupport"
)

type staticSource struct {
	frames map[sampler.ThreadID]*framestack.Frame
}

func (s *staticSource) CurrentFrames() map[sampler.ThreadID]*framestack.Frame {
	return s.frames
}

// manualSampler delivers a fixed number of sampling rounds synchronously on
// Start, which makes profiler tests deterministic.
type manualSampler struct {
	rounds int
}

func (s *manualSampler) Start(_ context.Context, src sampler.FrameSource,
	handler sampler.Handler) (func(), error) {
	for i := 0; i < s.rounds; i++ {
		for tid, frame := range src.CurrentFrames() {
			handler(tid, frame)
		}
	}
	return func() {}, nil
}

func TestProfilerLifecycle(t *testing.T) {
	src := &staticSource{}
	p, err := profiler.New(src)
	require.NoError(t, err)
	assert.False(t, p.IsRunning())

	require.ErrorIs(t, p.Stop(), profiler.ErrNotStarted)

	require.NoError(t, p.Start(context.Background()))
	assert.True(t, p.IsRunning())
	require.ErrorIs(t, p.Start(context.Background()), profiler.ErrAlreadyStarted)

	require.NoError(t, p.Stop())
	assert.False(t, p.IsRunning())
	require.ErrorIs(t, p.Stop(), profiler.ErrNotStarted)
}

func TestProfilerRequiresFrameSource(t *testing.T) {
	_, err := profiler.New(nil)
	assert.Error(t, err)
}

func TestProfilerRecordsSamples(t *testing.T) {
	main := testsupport.MockCode("main")
	work := testsupport.MockCode("work")
	src := &staticSource{frames: map[sampler.ThreadID]*framestack.Frame{
		1: testsupport.MockStack(main, work),
	}}

	p, err := profiler.New(src, profiler.WithSampler(&manualSampler{rounds: 5}))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())

	snapshot := p.Result()
	assert.Equal(t, uint64(5), snapshot.Samples)
	require.Len(t, snapshot.Roots, 1)
	assert.Equal(t, "main", snapshot.Roots[0].Name)
	require.Len(t, snapshot.Roots[0].Children, 1)
	assert.Equal(t, uint64(5), snapshot.Roots[0].Children[0].OwnSamples)

	// Identical stacks after the first are served from the hash cache.
	hits, misses := p.CacheStats()
	assert.Equal(t, uint64(4), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestProfilerAppliesFilter(t *testing.T) {
	scheduler := testsupport.MockCode("scheduler")
	main := testsupport.MockCode("main")
	work := testsupport.MockCode("work")
	src := &staticSource{frames: map[sampler.ThreadID]*framestack.Frame{
		1: testsupport.MockStack(scheduler, main, work),
	}}

	p, err := profiler.New(src,
		profiler.WithSampler(&manualSampler{rounds: 3}),
		profiler.WithFilter(&framestack.ExtractFilter{
			TopCodes: framestack.NewSet(main),
		}))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())

	snapshot := p.Result()
	require.Len(t, snapshot.Roots, 1)
	// The scheduler frame is cut off by the top boundary.
	assert.Equal(t, "main", snapshot.Roots[0].Name)
}

func TestProfilerDropsFullyFilteredStacks(t *testing.T) {
	noise := testsupport.MockCode("noise")
	src := &staticSource{frames: map[sampler.ThreadID]*framestack.Frame{
		1: testsupport.MockStack(noise),
	}}

	p, err := profiler.New(src,
		profiler.WithSampler(&manualSampler{rounds: 3}),
		profiler.WithFilter(&framestack.ExtractFilter{
			IgnoredCodes: framestack.NewSet(noise),
		}))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())

	assert.Zero(t, p.Result().Samples)
}

func TestProfilerClear(t *testing.T) {
	src := &staticSource{frames: map[sampler.ThreadID]*framestack.Frame{
		1: testsupport.MockStack(testsupport.MockCode("f")),
	}}

	p, err := profiler.New(src, profiler.WithSampler(&manualSampler{rounds: 2}))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Stop())
	require.Positive(t, p.Result().Samples)

	p.Clear()
	assert.Zero(t, p.Result().Samples)
}

func TestProfilerWithTickerSampler(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &staticSource{frames: map[sampler.ThreadID]*framestack.Frame{
		1: testsupport.MockStack(testsupport.MockCode("main")),
	}}
	p, err := profiler.New(src,
		profiler.WithSampler(&sampler.TickerSampler{Interval: time.Millisecond}))
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return p.Result().Samples > 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, p.Stop())
}
