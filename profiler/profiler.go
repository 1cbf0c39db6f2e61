// Copyright The Framestack Authors
// SPDX-License-Identifier: Apache-2.0

// Package profiler ties a pacing Sampler, an ExtractFilter and a statistics
// Aggregator into the sampling profiler a host engine embeds.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/profilekit/framestack/framestack"
	"github.com/profilekit/framestack/metrics"
	"github.com/profilekit/framestack/sampler"
	"github.com/profilekit/framestack/stats"
)

var (
	// ErrAlreadyStarted is returned by Start on a running profiler.
	ErrAlreadyStarted = errors.New("profiler already started")
	// ErrNotStarted is returned by Stop on a stopped profiler.
	ErrNotStarted = errors.New("profiler not started")
)

// Option configures a SamplingProfiler.
type Option func(*SamplingProfiler)

// WithSampler selects the pacing strategy. The default is a TickerSampler
// with the default interval.
func WithSampler(s sampler.Sampler) Option {
	return func(p *SamplingProfiler) { p.smplr = s }
}

// WithFilter installs the extraction filter applied to every sampled chain.
func WithFilter(f *framestack.ExtractFilter) Option {
	return func(p *SamplingProfiler) { p.filter = f }
}

// WithCacheSize overrides the stack hash cache capacity.
func WithCacheSize(n uint32) Option {
	return func(p *SamplingProfiler) { p.cacheSize = n }
}

// SamplingProfiler periodically samples the live frames of a FrameSource,
// extracts the interesting part of each chain and aggregates the results.
type SamplingProfiler struct {
	src       sampler.FrameSource
	smplr     sampler.Sampler
	filter    *framestack.ExtractFilter
	cacheSize uint32
	agg       *stats.Aggregator

	mu   sync.Mutex
	stop func()
}

// New creates a profiler over the given frame source.
func New(src sampler.FrameSource, opts ...Option) (*SamplingProfiler, error) {
	if src == nil {
		return nil, errors.New("no frame source")
	}
	p := &SamplingProfiler{
		src:       src,
		smplr:     &sampler.TickerSampler{},
		cacheSize: stats.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	agg, err := stats.NewAggregator(p.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating aggregator: %w", err)
	}
	p.agg = agg
	return p, nil
}

// Start begins sampling until Stop is called or ctx is canceled.
func (p *SamplingProfiler) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		return ErrAlreadyStarted
	}
	stop, err := p.smplr.Start(ctx, p.src, p.handleSample)
	if err != nil {
		return fmt.Errorf("starting sampler: %w", err)
	}
	p.stop = stop
	log.Debug("Profiler started")
	return nil
}

// Stop ends sampling and waits for the sampling loop to drain. Statistics
// collected so far remain available through Result.
func (p *SamplingProfiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		return ErrNotStarted
	}
	p.stop()
	p.stop = nil
	log.Debug("Profiler stopped")
	return nil
}

// IsRunning reports whether the profiler is currently sampling.
func (p *SamplingProfiler) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stop != nil
}

// Result freezes the statistics collected so far. It may be called while the
// profiler is running.
func (p *SamplingProfiler) Result() *stats.Snapshot {
	return p.agg.Snapshot()
}

// Clear drops all collected statistics.
func (p *SamplingProfiler) Clear() {
	p.agg.Reset()
}

// CacheStats returns the hit and miss counts of the stack hash cache.
func (p *SamplingProfiler) CacheStats() (hits, misses uint64) {
	return p.agg.CacheStats()
}

func (p *SamplingProfiler) handleSample(_ sampler.ThreadID, frame *framestack.Frame) {
	metrics.Add(metrics.IDSamplesTaken, 1)
	stack := framestack.Extract(frame, p.filter)
	if len(stack) == 0 {
		return
	}
	p.agg.Add(stack)
	metrics.Add(metrics.IDStacksRecorded, 1)
}
