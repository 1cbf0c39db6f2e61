// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilekit/framestack/framestack"
	"github.com/profilekit/framestack/profiler"
	"github.com/profilekit/framestack/sampler"
)

func TestScriptEnginePublishesFrames(t *testing.T) {
	engine := newScriptEngine()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(ctx, 2)
	}()

	// Wait until both threads published a frame chain.
	require.Eventually(t, func() bool {
		return len(engine.CurrentFrames()) == 2
	}, 5*time.Second, time.Millisecond)

	for tid, frame := range engine.CurrentFrames() {
		require.NotNil(t, frame, "thread %d has no frame", tid)
		chain := framestack.ExtractAll(frame)
		require.NotEmpty(t, chain)
		// The outermost frame is always the scheduler.
		assert.Same(t, engine.schedulerCode, chain[0].Code)
		for _, f := range chain {
			assert.NotNil(t, f.Code)
		}
	}

	cancel()
	<-done
	assert.Empty(t, engine.CurrentFrames())
	assert.Positive(t, engine.Iterations())
}

func TestScriptEngineLookupCode(t *testing.T) {
	engine := newScriptEngine()

	code, ok := engine.LookupCode("fib")
	require.True(t, ok)
	assert.Same(t, engine.fibCode, code)

	_, ok = engine.LookupCode("missing")
	assert.False(t, ok)
}

func TestBuildFilter(t *testing.T) {
	engine := newScriptEngine()

	filter, err := buildFilter(engine, &arguments{
		topCodes:    "main",
		upperCodes:  "scheduler",
		ignoreCodes: "parse, evaluate",
	})
	require.NoError(t, err)

	assert.True(t, filter.TopCodes.Contains(engine.mainCode))
	assert.True(t, filter.UpperCodes.Contains(engine.schedulerCode))
	assert.True(t, filter.IgnoredCodes.Contains(engine.parseCode))
	assert.True(t, filter.IgnoredCodes.Contains(engine.evaluateCode))

	_, err = buildFilter(engine, &arguments{topCodes: "nope"})
	assert.Error(t, err)
}

func TestProfileDemoEngine(t *testing.T) {
	engine := newScriptEngine()
	// The upper boundary drops samples caught between two script runs, when
	// only the scheduler frame is live.
	filter, err := buildFilter(engine, &arguments{
		topCodes:   "main",
		upperCodes: "scheduler",
	})
	require.NoError(t, err)

	p, err := profiler.New(engine,
		profiler.WithSampler(&sampler.TickerSampler{Interval: time.Millisecond}),
		profiler.WithFilter(filter))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Start(ctx))
	engine.Run(ctx, 1)
	require.NoError(t, p.Stop())

	snapshot := p.Result()
	require.Positive(t, snapshot.Samples)
	// The top boundary cuts the scheduler frame, so main is the only root.
	require.Len(t, snapshot.Roots, 1)
	assert.Equal(t, "main", snapshot.Roots[0].Name)

	var buf bytes.Buffer
	printSnapshot(&buf, snapshot, 0)
	assert.Contains(t, buf.String(), "main (<demo>:10)")
}

func TestPrintSnapshotDepthLimit(t *testing.T) {
	engine := newScriptEngine()
	p, err := profiler.New(engine,
		profiler.WithSampler(&sampler.TickerSampler{Interval: time.Millisecond}))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, p.Start(ctx))
	engine.Run(ctx, 1)
	require.NoError(t, p.Stop())

	var buf bytes.Buffer
	printSnapshot(&buf, p.Result(), 1)
	assert.Contains(t, buf.String(), "scheduler (<demo>:1)")
	assert.NotContains(t, buf.String(), "  main")
}
