// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampler provides the pacing strategies that periodically pull the
// host engine's live frames and hand them to the profiler.
package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/profilekit/framestack/framestack"
)

// DefaultInterval is the default sampling interval.
const DefaultInterval = time.Millisecond

// ThreadID identifies one thread of execution inside the host engine.
type ThreadID int64

// FrameSource is the host engine's introspection hook. CurrentFrames returns
// the innermost live frame of every engine thread. The engine must guarantee
// that the returned chains stay stable until the call consuming them returns;
// typically it publishes immutable frames and only swaps the per-thread head.
type FrameSource interface {
	CurrentFrames() map[ThreadID]*framestack.Frame
}

// Handler consumes one sampled frame chain.
type Handler func(tid ThreadID, frame *framestack.Frame)

// Sampler triggers a Handler for every thread of a FrameSource at a fixed
// pace. Start returns a stop function that is idempotent and waits for the
// sampling loop to exit; canceling ctx stops sampling as well.
type Sampler interface {
	Start(ctx context.Context, src FrameSource, handler Handler) (func(), error)
}

// TickerSampler samples on a wall-clock ticker from its own goroutine.
type TickerSampler struct {
	// Interval is the sampling interval. Zero selects DefaultInterval.
	Interval time.Duration
}

var _ Sampler = (*TickerSampler)(nil)

// Start implements Sampler.
func (s *TickerSampler) Start(ctx context.Context, src FrameSource,
	handler Handler) (func(), error) {
	interval, err := effectiveInterval(s.Interval)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				sample(src, handler)
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// sample delivers the current frame of every engine thread to the handler.
func sample(src FrameSource, handler Handler) {
	for tid, frame := range src.CurrentFrames() {
		handler(tid, frame)
	}
}

func effectiveInterval(interval time.Duration) (time.Duration, error) {
	if interval < 0 {
		return 0, fmt.Errorf("invalid sampling interval %v", interval)
	}
	if interval == 0 {
		return DefaultInterval, nil
	}
	return interval, nil
}
